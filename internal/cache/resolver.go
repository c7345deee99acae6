package cache

import (
	"strings"

	"github.com/refcache/refcache/internal/policy"
	"github.com/refcache/refcache/internal/value"
)

// EntityID identifies one entity record in the store.
//
// Wire format: "<typename>:<v1>[:<v2>...]" where the segments are the
// stringified identity-field values in policy order. Collaborators may
// persist or log these, so the format is part of the public contract and
// must stay stable across runs for the same logical entity.
type EntityID string

// IdentityKind tags the outcome of identity resolution.
type IdentityKind int

const (
	// IdentityEmbedded means the object has no resolvable identity and is
	// stored inline where it appears, never deduplicated.
	IdentityEmbedded IdentityKind = iota

	// IdentityEntity means the object resolved to an EntityID and is
	// extracted into the store.
	IdentityEntity
)

// Identity is the explicit decision returned by ResolveIdentity: either
// Entity with an ID, or Embedded. Callers switch on Kind instead of
// re-sniffing object shapes.
type Identity struct {
	Kind IdentityKind
	ID   EntityID
}

// Embedded is the zero Identity, returned for objects without a
// resolvable identity.
var Embedded = Identity{Kind: IdentityEmbedded}

// Entity constructs an entity decision for id.
func Entity(id EntityID) Identity {
	return Identity{Kind: IdentityEntity, ID: id}
}

// ResolveIdentity classifies an object under the given policy set.
//
// Resolution order:
//  1. No discriminator field -> Embedded.
//  2. Type policy with KeyFunc: a (key, true) result becomes the identity
//     value; (_, false) -> Embedded.
//  3. Type policy with KeyFields: segments are the stringified primitive
//     values of those fields in order; a non-primitive or missing field
//     contributes an empty segment. All-empty -> Embedded.
//  4. No policy: the first of "id", "_id" holding a primitive value; no
//     such field -> Embedded.
//
// Unresolvable identity is a silent fallback, never an error: the object
// is simply treated as embedded.
func ResolveIdentity(obj value.Object, set *policy.Set) Identity {
	typename, ok := obj[set.TypenameField()].(value.String)
	if !ok || typename == "" {
		return Embedded
	}

	p, hasPolicy := set.Lookup(string(typename))
	if hasPolicy && p.KeyFunc != nil {
		key, ok := p.KeyFunc(obj)
		if !ok || key == "" {
			return Embedded
		}
		return Entity(EntityID(string(typename) + ":" + key))
	}

	if hasPolicy && len(p.KeyFields) > 0 {
		segments := make([]string, len(p.KeyFields))
		empty := true
		for i, field := range p.KeyFields {
			if seg, ok := value.Primitive(obj[field]); ok {
				segments[i] = seg
				empty = false
			}
		}
		if empty {
			return Embedded
		}
		return Entity(EntityID(string(typename) + ":" + strings.Join(segments, ":")))
	}

	for _, field := range policy.DefaultKeyFields() {
		if seg, ok := value.Primitive(obj[field]); ok {
			return Entity(EntityID(string(typename) + ":" + seg))
		}
	}
	return Embedded
}
