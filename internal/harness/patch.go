package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/denorm/internal/access"
	"github.com/roach88/denorm/internal/ir"
)

// storeFromYAML converts a decoded scenario store to an IR entity store.
func storeFromYAML(raw map[string]map[string]any) (ir.IRValue, error) {
	partitions := make(map[string]any, len(raw))
	for p, entities := range raw {
		m := make(map[string]any, len(entities))
		for id, e := range entities {
			m[id] = e
		}
		partitions[p] = m
	}
	return ir.FromAny(partitions)
}

// patchEntity computes the entity a patch leaves behind. current is the
// entity stored before the patch, nil if none. Deletions return IRNull.
func patchEntity(current ir.IRValue, p Patch, persistent bool) (ir.IRValue, error) {
	switch {
	case p.Delete:
		return ir.IRNull{}, nil

	case p.Entity != nil:
		entity, err := ir.FromAny(p.Entity)
		if err != nil {
			return nil, fmt.Errorf("entity: %w", err)
		}
		if persistent {
			entity = ir.Freeze(entity)
		}
		return entity, nil

	default:
		if !access.IsStructured(current) {
			return nil, fmt.Errorf("set: no structured entity stored at %s/%s", p.Partition, p.ID)
		}
		acc := access.For(current)
		out := acc.Copy(current)
		for _, field := range sortedKeys(p.Set) {
			v, err := ir.FromAny(p.Set[field])
			if err != nil {
				return nil, fmt.Errorf("set %s: %w", field, err)
			}
			if persistent {
				v = ir.Freeze(v)
			}
			out = acc.Set(out, field, v)
		}
		return out, nil
	}
}

// applyPatch returns a store with entity written at partition/id. Only the
// partition and entity on the patched path get new identities.
func applyPatch(store ir.IRValue, partition, id string, entity ir.IRValue) ir.IRValue {
	acc := access.For(store)

	part, ok := acc.Get(store, partition)
	if !ok || !access.IsStructured(part) {
		if _, persistent := store.(*ir.IRMap); persistent {
			part = ir.NewIRMap()
		} else {
			part = ir.IRObject{}
		}
	} else {
		part = access.For(part).Copy(part)
	}
	part = access.For(part).Set(part, id, entity)

	return acc.Set(acc.Copy(store), partition, part)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
