package cache

import (
	"github.com/refcache/refcache/internal/policy"
	"github.com/refcache/refcache/internal/value"
)

// MaskFields restricts a denormalized entity to the declared field set
// plus the always-present type discriminator.
//
// declared is the fragment's top-level selection by output name (aliases
// count by their output name); it is supplied externally - the cache does
// not parse fragment syntax. Declared fields absent from the record are
// simply missing from the result; record fields outside the declared set
// are omitted even though stored.
//
// Masking is shallow: a declared field holding a Ref (or a list of Refs)
// is fully denormalized against the view, and the referenced entity is
// exposed in full rather than re-masked against any nested selection.
func MaskFields(rec Record, view EntityMap, declared []string, set *policy.Set) value.Object {
	out := make(value.Object, len(declared)+1)

	tnField := set.TypenameField()
	typename := ""
	if tn, ok := rec[tnField]; ok {
		out[tnField] = tn
		if s, isStr := tn.(value.String); isStr {
			typename = string(s)
		}
	}
	p, hasPolicy := set.Lookup(typename)

	for _, name := range declared {
		if name == tnField {
			continue
		}
		stored, ok := rec[name]
		if !ok {
			continue
		}
		if hasPolicy {
			if fp, ok := p.FieldFor(name); ok && fp.Read != nil {
				stored = fp.Read(stored)
			}
		}
		if res := Denormalize(stored, view, set); res != nil {
			out[name] = res
		}
	}
	return out
}
