// Package policy defines per-type configuration for the entity cache:
// how identity is derived per typename, and optional field-level read and
// merge overrides applied by the store and denormalizer.
package policy

import (
	"sort"

	"github.com/refcache/refcache/internal/value"
)

// DefaultTypenameField is the field that carries the type discriminator
// unless the Set is configured otherwise.
const DefaultTypenameField = "__typename"

// defaultKeyFields are tried in order when a type has no policy.
// Only primitive (string/number) values are accepted.
var defaultKeyFields = []string{"id", "_id"}

// KeyFunc derives an identity value from an object. Returning ok=false
// means the object has no identity under this policy and is embedded.
// A KeyFunc that panics propagates to the caller of the triggering
// write/read; the cache never recovers user policy code.
type KeyFunc func(obj value.Object) (key string, ok bool)

// MergeFunc combines an existing stored value with an incoming one and
// returns the value to store. existing is nil on first write.
type MergeFunc func(existing, incoming value.Value) value.Value

// ReadFunc transforms a stored field value at read time.
type ReadFunc func(stored value.Value) value.Value

// FieldPolicy configures one field of a type.
type FieldPolicy struct {
	// Read, when set, intercepts reads of this field.
	Read ReadFunc

	// Merge, when set, intercepts store merges of this field.
	Merge MergeFunc

	// KeyArgs names the arguments that distinguish stored variants of
	// this field. Recorded for collaborators that build storage field
	// names from argument values; the core engine stores fields by name.
	KeyArgs []string
}

// TypePolicy configures identity derivation and field behavior for one
// typename.
type TypePolicy struct {
	// KeyFields lists identity fields, joined in order into the entity
	// identifier. Ignored when KeyFunc is set.
	KeyFields []string

	// KeyFunc derives the identity value directly. Takes precedence over
	// KeyFields.
	KeyFunc KeyFunc

	// Fields holds per-field overrides.
	Fields map[string]FieldPolicy

	// Merge, when set, intercepts merges of every field of this type that
	// has no field-level Merge of its own.
	Merge MergeFunc
}

// FieldFor returns the field policy for name, if configured.
func (p TypePolicy) FieldFor(name string) (FieldPolicy, bool) {
	fp, ok := p.Fields[name]
	return fp, ok
}

// Set is the full policy configuration of one cache instance: the
// discriminator field name plus a mapping from typename to TypePolicy.
// A Set is mutable until handed to a cache; the cache treats it as
// read-only afterwards.
type Set struct {
	typenameField string
	policies      map[string]TypePolicy
}

// Option configures a Set.
type Option func(*Set)

// WithTypenameField overrides the type-discriminator field name.
func WithTypenameField(name string) Option {
	return func(s *Set) {
		if name != "" {
			s.typenameField = name
		}
	}
}

// NewSet creates an empty policy set with the default discriminator field.
func NewSet(opts ...Option) *Set {
	s := &Set{
		typenameField: DefaultTypenameField,
		policies:      make(map[string]TypePolicy),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TypenameField returns the configured type-discriminator field name.
func (s *Set) TypenameField() string {
	if s == nil || s.typenameField == "" {
		return DefaultTypenameField
	}
	return s.typenameField
}

// Add registers or replaces the policy for a typename.
func (s *Set) Add(typename string, p TypePolicy) {
	s.policies[typename] = p
}

// Lookup returns the policy for a typename, if configured.
func (s *Set) Lookup(typename string) (TypePolicy, bool) {
	if s == nil {
		return TypePolicy{}, false
	}
	p, ok := s.policies[typename]
	return p, ok
}

// Types returns the typenames with a registered policy, sorted.
func (s *Set) Types() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.policies))
	for typename := range s.policies {
		out = append(out, typename)
	}
	sort.Strings(out)
	return out
}

// Merge folds another set's policies into this one. Policies from other win
// on typename conflicts; the discriminator field is taken from other only
// when other overrides the default. Supports late policy registration
// after cache initialization.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	if other.typenameField != "" && other.typenameField != DefaultTypenameField {
		s.typenameField = other.typenameField
	}
	for typename, p := range other.policies {
		s.policies[typename] = p
	}
}

// DefaultKeyFields returns the identity fields tried for types without a
// policy.
func DefaultKeyFields() []string {
	out := make([]string, len(defaultKeyFields))
	copy(out, defaultKeyFields)
	return out
}
