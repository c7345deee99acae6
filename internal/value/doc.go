// Package value provides the closed value model for normalized cache data.
//
// This package contains type definitions and serialization only. All other
// internal packages import value; value imports nothing internal. This keeps
// it the foundational layer with no circular dependencies.
//
// Every datum the cache touches is one of seven variants: Null, String,
// Number, Bool, List, Object, or Ref. The set is sealed so that dispatch
// over field values (reference vs list vs embedded object vs scalar) is a
// closed type switch rather than a chain of shape checks.
//
// Ref is the tagged indirection used to replace an extracted entity inside
// a normalized result tree. On the JSON wire it is the single-key object
// {"__ref": "<entity-id>"}.
package value
