package denorm

import (
	"fmt"
	"log/slog"

	"github.com/roach88/denorm/internal/access"
	"github.com/roach88/denorm/internal/ir"
	"github.com/roach88/denorm/internal/schema"
)

// plainWalker performs one non-memoized rebuild.
//
// INVARIANT: arena[k] is set before the fields of entity k are expanded, and
// holds the finished entity afterwards. Every reference to k within the call
// resolves to that one value.
type plainWalker struct {
	store  ir.IRValue
	arena  map[slotKey]ir.IRValue
	logger *slog.Logger
}

func newPlainWalker(store ir.IRValue, logger *slog.Logger) *plainWalker {
	return &plainWalker{
		store:  store,
		arena:  make(map[slotKey]ir.IRValue),
		logger: logger,
	}
}

func (w *plainWalker) walk(value ir.IRValue, n schema.Node) (ir.IRValue, error) {
	if ir.IsAbsent(value) {
		return value, nil
	}

	switch schema.Classify(n) {
	case schema.KindEntity:
		return w.entity(value, n.(*schema.Entity))
	case schema.KindCollection:
		return w.collection(value, n.(*schema.Collection))
	case schema.KindUnion:
		item, err := unionItem(value, n.(*schema.Union))
		if err != nil {
			return nil, err
		}
		return w.walk(value, item)
	case schema.KindComposite:
		if !access.IsStructured(value) {
			return value, nil
		}
		return w.fields(access.For(value).Copy(value), n.(schema.Composite))
	default:
		return value, nil
	}
}

func (w *plainWalker) entity(value ir.IRValue, e *schema.Entity) (ir.IRValue, error) {
	ref := Resolve(value, w.store, e)
	key, ok := ref.slot()
	if !ok || !ref.Found {
		w.logger.Debug("entity missing from store", "partition", e.Key, "id", ref.ID)
		return ir.IRNull{}, nil
	}
	if done, ok := w.arena[key]; ok {
		return done, nil
	}
	if !access.IsStructured(ref.Entity) {
		return ref.Entity, nil
	}

	obj := access.For(ref.Entity).Copy(ref.Entity)
	w.arena[key] = obj
	out, err := w.fields(obj, e.Fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	w.arena[key] = out
	return out, nil
}

func (w *plainWalker) collection(value ir.IRValue, c *schema.Collection) (ir.IRValue, error) {
	acc := access.For(value)
	items, err := acc.Items(value)
	if err != nil {
		return nil, err
	}
	out := make([]ir.IRValue, len(items))
	for i, item := range items {
		d, err := w.walk(item, c.Item)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = d
	}
	return acc.MakeSeq(out), nil
}

// fields expands the declared fields of obj in place. obj must already be a
// private copy. Persistent copies are replaced rather than mutated, so the
// returned container is the one to keep.
func (w *plainWalker) fields(obj ir.IRValue, fields schema.Composite) (ir.IRValue, error) {
	acc := access.For(obj)
	out := obj
	for _, name := range fields.FieldNames() {
		raw, ok := acc.Get(out, name)
		if !ok {
			continue
		}
		d, err := w.walk(raw, fields[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = acc.Set(out, name, d)
	}
	return out, nil
}
