package cache

import (
	"github.com/refcache/refcache/internal/policy"
	"github.com/refcache/refcache/internal/value"
)

// NormalizeResult holds the outcome of one normalization pass: the input
// tree with every extracted entity replaced by a value.Ref, plus the flat
// map of extracted records.
type NormalizeResult struct {
	Result   value.Value
	Entities EntityMap
}

// Normalize walks an arbitrary nested payload depth-first, extracts every
// object with a resolvable identity into a flat entity map, and replaces
// each extracted object with a reference in the returned result tree.
//
// Field values are normalized before the parent object is classified, so
// nested entities are extracted before the parent record is built. Within
// a single pass, repeated encounters of the same entity merge
// left-to-right in traversal order (later field values win).
//
// Normalize never writes to a store; callers decide where the entity map
// lands (base store or an optimistic layer).
func Normalize(v value.Value, set *policy.Set) NormalizeResult {
	n := &normalizer{policies: set, entities: make(EntityMap)}
	result := n.walk(v)
	return NormalizeResult{Result: result, Entities: n.entities}
}

type normalizer struct {
	policies *policy.Set
	entities EntityMap
}

func (n *normalizer) walk(v value.Value) value.Value {
	switch val := v.(type) {
	case value.List:
		out := make(value.List, len(val))
		for i, elem := range val {
			out[i] = n.walk(elem)
		}
		return out
	case value.Object:
		return n.walkObject(val)
	default:
		// Scalars, Null, and pre-existing Refs pass through unchanged.
		return v
	}
}

func (n *normalizer) walkObject(obj value.Object) value.Value {
	// Children first: nested entities are extracted before the parent is
	// classified, so the parent's field map already holds refs. Fields
	// walk in canonical key order, keeping in-pass merge order
	// deterministic when one entity appears under several fields.
	fields := make(value.Object, len(obj))
	for _, k := range obj.SortedKeys() {
		fields[k] = n.walk(obj[k])
	}

	ident := ResolveIdentity(obj, n.policies)
	if ident.Kind == IdentityEmbedded {
		return fields
	}

	existing := n.entities[ident.ID]
	if existing == nil {
		existing = make(Record, len(fields))
	}
	for k, elem := range fields {
		existing[k] = elem
	}
	n.entities[ident.ID] = existing

	return value.Ref{ID: string(ident.ID)}
}
