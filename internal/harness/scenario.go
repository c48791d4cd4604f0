package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a denormalization scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path to a schema document (YAML or CUE).
	// Relative paths are resolved against the scenario file's directory.
	Schema string `yaml:"schema"`

	// Root optionally overrides the document root, using document
	// reference syntax ("books", [books], {featured: [books]}).
	Root any `yaml:"root,omitempty"`

	// Memoized selects the memoized walker.
	Memoized bool `yaml:"memoized,omitempty"`

	// Persistent converts store and values to persistent containers.
	Persistent bool `yaml:"persistent,omitempty"`

	// Backend is "memory" (default) or "sqlite".
	Backend string `yaml:"backend,omitempty"`

	// CacheCapacity bounds the memo cache. Zero means unbounded.
	CacheCapacity int `yaml:"cache_capacity,omitempty"`

	// Store is the initial entity store: partition -> id -> entity.
	Store map[string]map[string]any `yaml:"store"`

	// Value is denormalized by every step that does not override it.
	Value any `yaml:"value"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions compare step results.
	Assertions []Assertion `yaml:"assertions"`
}

// Step patches the store and denormalizes once.
type Step struct {
	// Name identifies the step in assertions.
	Name string `yaml:"name"`

	// Patch lists store changes applied before denormalizing.
	Patch []Patch `yaml:"patch,omitempty"`

	// Value overrides the scenario value for this step.
	Value any `yaml:"value,omitempty"`

	// Reuse feeds the named earlier step's result in as the value.
	Reuse string `yaml:"reuse,omitempty"`
}

// Patch changes one stored entity. Exactly one of Set, Entity and Delete
// must be given.
type Patch struct {
	Partition string `yaml:"partition"`
	ID        string `yaml:"id"`

	// Set merges fields into a copy of the stored entity.
	Set map[string]any `yaml:"set,omitempty"`

	// Entity replaces the stored entity.
	Entity map[string]any `yaml:"entity,omitempty"`

	// Delete removes the stored entity.
	Delete bool `yaml:"delete,omitempty"`
}

// Assertion compares step results.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Step names the step whose result is checked.
	Step string `yaml:"step"`

	// Against names the step compared with (same, changed).
	Against string `yaml:"against,omitempty"`

	// Path is a dot-separated path into the results. Empty means the root.
	Path string `yaml:"path,omitempty"`

	// Value is the expected literal (equals).
	Value any `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertSame         = "same"
	AssertChanged      = "changed"
	AssertEquals       = "equals"
	AssertMatchesPlain = "matches_plain"
)

// Backend constants.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// LoadScenario reads and parses a scenario YAML file.
// The schema path is resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}
	if _, err := os.Stat(scenario.Schema); err != nil {
		return nil, fmt.Errorf("invalid scenario: schema file not found: %s", scenario.Schema)
	}

	return scenario, nil
}

// ParseScenario parses and validates scenario YAML. The schema path is left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	switch s.Backend {
	case "", BackendMemory:
	case BackendSQLite:
		if s.Persistent {
			return fmt.Errorf("backend sqlite does not support persistent containers")
		}
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if s.CacheCapacity < 0 {
		return fmt.Errorf("cache_capacity must be non-negative")
	}

	seen := make(map[string]bool, len(s.Steps))
	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if seen[step.Name] {
			return fmt.Errorf("steps[%d]: duplicate step name %q", i, step.Name)
		}
		if step.Reuse != "" && !seen[step.Reuse] {
			return fmt.Errorf("steps[%d]: reuse must name an earlier step, got %q", i, step.Reuse)
		}
		if step.Reuse != "" && step.Value != nil {
			return fmt.Errorf("steps[%d]: value and reuse are mutually exclusive", i)
		}
		for j, p := range step.Patch {
			if err := validatePatch(p); err != nil {
				return fmt.Errorf("steps[%d].patch[%d]: %w", i, j, err)
			}
		}
		seen[step.Name] = true
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, seen); err != nil {
			return err
		}
	}

	return nil
}

func validatePatch(p Patch) error {
	if p.Partition == "" || p.ID == "" {
		return fmt.Errorf("partition and id are required")
	}
	n := 0
	if p.Set != nil {
		n++
	}
	if p.Entity != nil {
		n++
	}
	if p.Delete {
		n++
	}
	if n != 1 {
		return fmt.Errorf("exactly one of set, entity or delete is required")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if !steps[a.Step] {
		return fmt.Errorf("assertions[%d]: unknown step %q", index, a.Step)
	}

	switch a.Type {
	case AssertSame, AssertChanged:
		if !steps[a.Against] {
			return fmt.Errorf("assertions[%d]: against must name a step for %s, got %q", index, a.Type, a.Against)
		}
	case AssertEquals, AssertMatchesPlain:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
