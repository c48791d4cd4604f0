package denorm

import (
	"fmt"
	"log/slog"

	"github.com/roach88/denorm/internal/access"
	"github.com/roach88/denorm/internal/ir"
	"github.com/roach88/denorm/internal/schema"
)

// memoWalker performs one memoized rebuild against a shared Cache.
//
// Every walk takes the raw value and the value produced for the same
// position by an earlier call (prev, nil when unknown) and returns prev
// itself whenever nothing beneath it changed identity.
type memoWalker struct {
	store      ir.IRValue
	cache      *Cache
	inProgress map[slotKey]bool
	logger     *slog.Logger
}

func newMemoWalker(store ir.IRValue, cache *Cache, logger *slog.Logger) *memoWalker {
	return &memoWalker{
		store:      store,
		cache:      cache,
		inProgress: make(map[slotKey]bool),
		logger:     logger,
	}
}

func (w *memoWalker) walk(value, prev ir.IRValue, n schema.Node) (ir.IRValue, error) {
	if ir.IsAbsent(value) {
		return value, nil
	}

	switch schema.Classify(n) {
	case schema.KindEntity:
		return w.entity(value, n.(*schema.Entity))
	case schema.KindCollection:
		return w.collection(value, prev, n.(*schema.Collection))
	case schema.KindUnion:
		item, err := unionItem(value, n.(*schema.Union))
		if err != nil {
			return nil, err
		}
		return w.walk(value, prev, item)
	case schema.KindComposite:
		if !access.IsStructured(value) {
			return value, nil
		}
		base := value
		if access.IsStructured(prev) {
			base = prev
		}
		return w.fields(value, base, n.(schema.Composite))
	default:
		return value, nil
	}
}

func (w *memoWalker) entity(value ir.IRValue, e *schema.Entity) (ir.IRValue, error) {
	ref := Resolve(value, w.store, e)
	key, ok := ref.slot()
	if !ok || !ref.Found {
		w.logger.Debug("entity missing from store", "partition", e.Key, "id", ref.ID)
		return ir.IRNull{}, nil
	}

	slot := w.cache.acquire(key, ref.Entity)
	if w.inProgress[key] {
		return ref.ID, nil
	}
	if !access.IsStructured(ref.Entity) {
		return ref.Entity, nil
	}

	w.inProgress[key] = true
	defer delete(w.inProgress, key)

	out, err := w.fields(ref.Entity, slot.Denormalized, e.Fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if !ir.Same(out, slot.Denormalized) {
		w.cache.store(key, Slot{Source: ref.Entity, Denormalized: out})
	}
	return out, nil
}

// fields rebuilds the declared fields of source and merges the ones whose
// result differs from base into a shallow copy of base. base is returned
// untouched when no field changed. base holds the previous result for
// source, or source itself when there is none.
func (w *memoWalker) fields(source, base ir.IRValue, fields schema.Composite) (ir.IRValue, error) {
	type change struct {
		name  string
		value ir.IRValue
	}
	var changes []change

	for _, name := range fields.FieldNames() {
		raw, ok := access.Get(source, name)
		if !ok {
			continue
		}
		before, _ := access.Get(base, name)
		var prev ir.IRValue
		if !ir.Same(base, source) {
			prev = before
		}
		d, err := w.walk(raw, prev, fields[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if !ir.Same(d, before) {
			changes = append(changes, change{name: name, value: d})
		}
	}

	if len(changes) == 0 {
		return base, nil
	}
	acc := access.For(base)
	out := acc.Copy(base)
	for _, ch := range changes {
		out = acc.Set(out, ch.name, ch.value)
	}
	return out, nil
}

func (w *memoWalker) collection(value, prev ir.IRValue, c *schema.Collection) (ir.IRValue, error) {
	acc := access.For(value)
	items, err := acc.Items(value)
	if err != nil {
		return nil, err
	}

	var prevItems []ir.IRValue
	hasPrev := false
	if access.IsSequence(prev) {
		prevItems, _ = access.For(prev).Items(prev)
		hasPrev = len(prevItems) == len(items)
	}

	out := make([]ir.IRValue, len(items))
	samePrev, sameValue := hasPrev, true
	for i, item := range items {
		var p ir.IRValue
		if hasPrev {
			p = prevItems[i]
		}
		d, err := w.walk(item, p, c.Item)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = d
		if samePrev && !ir.Same(d, p) {
			samePrev = false
		}
		if sameValue && !ir.Same(d, item) {
			sameValue = false
		}
	}

	switch {
	case samePrev:
		return prev, nil
	case sameValue:
		return value, nil
	default:
		return acc.MakeSeq(out), nil
	}
}
