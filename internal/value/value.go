package value

import (
	"slices"
	"strconv"
	"unicode/utf16"
)

// RefKey is the JSON object key that marks a serialized Ref.
// A single-key object {"__ref": "<id>"} round-trips to a Ref.
const RefKey = "__ref"

// Value is a sealed interface over the cache's data variants.
// Only Null, String, Number, Bool, List, Object, and Ref implement it.
type Value interface {
	isValue() // Sealed - only these types implement it
}

// Null represents an explicit JSON null.
// Distinct from a missing value: a dangling reference denormalizes to an
// absent (nil) Value, never to Null.
type Null struct{}

func (Null) isValue() {}

// String represents a string value.
type String string

func (String) isValue() {}

// Number represents a JSON number. Stored as float64, the JSON-native
// representation; integral values print without a fraction.
type Number float64

func (Number) isValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) isValue() {}

// List represents an ordered list of values.
type List []Value

func (List) isValue() {}

// Object represents a map of field name to value.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) isValue() {}

// Ref is a reference to an entity by its identifier. Inside a normalized
// result tree or an entity record, a nested entity appears only as a Ref,
// never inline.
type Ref struct {
	ID string
}

func (Ref) isValue() {}

// Clone returns a deep copy of v. Scalars and Refs are value types and are
// returned as-is; Lists and Objects are copied recursively.
func Clone(v Value) Value {
	switch val := v.(type) {
	case List:
		out := make(List, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case Object:
		out := make(Object, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	default:
		return v
	}
}

// Equal reports deep structural equality of two values.
// A nil (absent) value is equal only to another nil value.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Ref:
		bv, ok := b.(Ref)
		return ok && av.ID == bv.ID
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, elem := range av {
			other, present := bv[k]
			if !present || !Equal(elem, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Primitive reports whether v is a scalar usable as an identity segment
// (string or number). Returns the stringified form when primitive.
func Primitive(v Value) (string, bool) {
	switch val := v.(type) {
	case String:
		return string(val), true
	case Number:
		return FormatNumber(float64(val)), true
	default:
		return "", false
	}
}

// FormatNumber renders a float64 the way identity segments and canonical
// JSON need it: integral values without a fraction, everything else in the
// shortest round-trippable form.
func FormatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering as
// required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}
