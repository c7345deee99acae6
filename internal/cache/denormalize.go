package cache

import (
	"github.com/refcache/refcache/internal/policy"
	"github.com/refcache/refcache/internal/value"
)

// Denormalize reconstructs a nested value from a reference-bearing shape
// and a composed entity view.
//
// Scalars and Null pass through. Lists map element-wise. A Ref resolves
// by lookup in view: a missing target yields an absent (nil) value at
// that position - a dangling reference is not an error. Embedded objects
// denormalize field-by-field; fields that resolve to absent are omitted.
//
// Cycle handling is path-scoped: an entity already on the active ancestor
// chain resolves to its raw Ref instead of recursing, which terminates
// cycles. Because the visited set is add-then-remove, the same entity is
// still fully resolved on a sibling branch that does not pass through the
// same ancestor chain; a visited-forever set would under-resolve
// diamond-shaped graphs.
func Denormalize(v value.Value, view EntityMap, set *policy.Set) value.Value {
	d := &denormalizer{view: view, policies: set, visited: make(map[EntityID]bool)}
	return d.walk(v)
}

type denormalizer struct {
	view     EntityMap
	policies *policy.Set
	visited  map[EntityID]bool // active recursion path, not history
}

func (d *denormalizer) walk(v value.Value) value.Value {
	switch val := v.(type) {
	case value.Ref:
		return d.resolveRef(val)
	case value.List:
		out := make(value.List, len(val))
		for i, elem := range val {
			out[i] = d.walk(elem)
		}
		return out
	case value.Object:
		out := make(value.Object, len(val))
		for k, elem := range val {
			if res := d.walk(elem); res != nil {
				out[k] = res
			}
		}
		return out
	default:
		return v
	}
}

func (d *denormalizer) resolveRef(ref value.Ref) value.Value {
	id := EntityID(ref.ID)

	rec, ok := d.view[id]
	if !ok {
		// Dangling reference: absent, not an error.
		return nil
	}
	if d.visited[id] {
		// Re-entry on the active path: return the raw reference.
		return ref
	}

	d.visited[id] = true
	defer delete(d.visited, id)

	return d.walkRecord(id, rec)
}

// walkRecord denormalizes one entity record, applying any configured
// per-field read overrides before descending.
func (d *denormalizer) walkRecord(id EntityID, rec Record) value.Value {
	typename := ""
	if tn, ok := rec[d.policies.TypenameField()].(value.String); ok {
		typename = string(tn)
	}
	p, hasPolicy := d.policies.Lookup(typename)

	out := make(value.Object, len(rec))
	for k, stored := range rec {
		if hasPolicy {
			if fp, ok := p.FieldFor(k); ok && fp.Read != nil {
				stored = fp.Read(stored)
			}
		}
		if res := d.walk(stored); res != nil {
			out[k] = res
		}
	}
	return out
}
