package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/denorm/internal/access"
	"github.com/roach88/denorm/internal/denorm"
	"github.com/roach88/denorm/internal/ir"
	"github.com/roach88/denorm/internal/schema"
	"github.com/roach88/denorm/internal/store"
	"github.com/roach88/denorm/internal/testutil"
)

// Harness executes one scenario.
type Harness struct {
	scenario *Scenario
	node     schema.Node
	denorm   *denorm.Denormalizer
	db       *store.Store // nil for the memory backend
	logger   *slog.Logger

	entities ir.IRValue
	inputs   map[string]ir.IRValue // step -> value denormalized
	stores   map[string]ir.IRValue // step -> store it was denormalized against
}

// Run executes a scenario and returns the result.
//
// Each scenario gets a fresh cache (and, for the sqlite backend, a fresh
// in-memory database). The cache identifier is the scenario name so log
// output is reproducible.
//
// Execution flow:
// 1. Load the schema and resolve the root
// 2. Build the initial store
// 3. For each step: apply patches, denormalize, record the result
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	h, err := newHarness(ctx, scenario)
	if err != nil {
		return nil, err
	}
	if h.db != nil {
		defer h.db.Close()
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Name, err)
		}
	}
	if c := h.denorm.Cache(); c != nil {
		result.Cache = c.Stats()
	}

	actx := &AssertionContext{
		Node:   h.node,
		Inputs: h.inputs,
		Stores: h.stores,
		Logger: h.logger,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func newHarness(ctx context.Context, scenario *Scenario) (*Harness, error) {
	catalog, err := schema.LoadFile(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	node := catalog.Root
	if scenario.Root != nil {
		node, err = catalog.Resolve(scenario.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root: %w", err)
		}
	}
	if node == nil {
		return nil, fmt.Errorf("schema %s declares no root and the scenario sets none", scenario.Schema)
	}

	entities, err := storeFromYAML(scenario.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to convert store: %w", err)
	}
	if scenario.Persistent {
		entities = ir.Freeze(entities)
	}

	// Suppress logs in tests
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	opts := []denorm.Option{denorm.WithLogger(logger)}
	if scenario.Memoized {
		opts = append(opts, denorm.WithCache(denorm.NewCache(
			denorm.WithCapacity(scenario.CacheCapacity),
			denorm.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.Name)),
			denorm.WithCacheLogger(logger),
		)))
	}

	h := &Harness{
		scenario: scenario,
		node:     node,
		denorm:   denorm.New(opts...),
		logger:   logger,
		entities: entities,
		inputs:   make(map[string]ir.IRValue, len(scenario.Steps)),
		stores:   make(map[string]ir.IRValue, len(scenario.Steps)),
	}

	if scenario.Backend == BackendSQLite {
		db, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		if _, err := db.PutStore(ctx, entities); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to write initial store: %w", err)
		}
		h.db = db
	}

	return h, nil
}

// executeStep applies the step's patches, then denormalizes.
func (h *Harness) executeStep(ctx context.Context, step Step, result *Result) error {
	for i, p := range step.Patch {
		if err := h.applyPatch(ctx, p); err != nil {
			return fmt.Errorf("patch %d: %w", i, err)
		}
	}

	if h.db != nil {
		loaded, err := h.db.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load store: %w", err)
		}
		h.entities = loaded
	}

	value, err := h.stepValue(step, result)
	if err != nil {
		return err
	}

	out, err := h.denorm.Denormalize(value, h.entities, h.node)
	if err != nil {
		return fmt.Errorf("denormalize: %w", err)
	}

	h.inputs[step.Name] = value
	h.stores[step.Name] = h.entities
	result.AddStep(step.Name, out)
	return nil
}

func (h *Harness) applyPatch(ctx context.Context, p Patch) error {
	if h.db == nil {
		current, _ := access.GetIn(h.entities, p.Partition, p.ID)
		entity, err := patchEntity(current, p, h.scenario.Persistent)
		if err != nil {
			return err
		}
		h.entities = applyPatch(h.entities, p.Partition, p.ID, entity)
		return nil
	}

	if p.Delete {
		_, err := h.db.Delete(ctx, p.Partition, p.ID)
		return err
	}
	current, _, err := h.db.Get(ctx, p.Partition, p.ID)
	if err != nil {
		return err
	}
	entity, err := patchEntity(current, p, false)
	if err != nil {
		return err
	}
	_, err = h.db.Put(ctx, p.Partition, p.ID, entity)
	return err
}

// stepValue picks the value a step denormalizes: an earlier result, the
// step's own value, or the scenario value.
func (h *Harness) stepValue(step Step, result *Result) (ir.IRValue, error) {
	if step.Reuse != "" {
		v, ok := result.Step(step.Reuse)
		if !ok {
			return nil, fmt.Errorf("reuse: no result for step %q", step.Reuse)
		}
		return v, nil
	}

	raw := h.scenario.Value
	if step.Value != nil {
		raw = step.Value
	}
	v, err := ir.FromAny(raw)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	if h.scenario.Persistent {
		v = ir.Freeze(v)
	}
	return v, nil
}
