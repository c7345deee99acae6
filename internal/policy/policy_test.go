package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refcache/refcache/internal/value"
)

func TestNewSet_Defaults(t *testing.T) {
	s := NewSet()
	assert.Equal(t, DefaultTypenameField, s.TypenameField())

	_, ok := s.Lookup("User")
	assert.False(t, ok)
}

func TestSet_WithTypenameField(t *testing.T) {
	s := NewSet(WithTypenameField("kind"))
	assert.Equal(t, "kind", s.TypenameField())

	empty := NewSet(WithTypenameField(""))
	assert.Equal(t, DefaultTypenameField, empty.TypenameField(), "empty override is ignored")
}

func TestSet_AddLookup(t *testing.T) {
	s := NewSet()
	s.Add("Product", TypePolicy{KeyFields: []string{"sku"}})

	p, ok := s.Lookup("Product")
	require.True(t, ok)
	assert.Equal(t, []string{"sku"}, p.KeyFields)
}

func TestSet_Merge_OtherWins(t *testing.T) {
	base := NewSet()
	base.Add("User", TypePolicy{KeyFields: []string{"id"}})
	base.Add("Product", TypePolicy{KeyFields: []string{"sku"}})

	other := NewSet(WithTypenameField("kind"))
	other.Add("Product", TypePolicy{KeyFields: []string{"sku", "warehouse"}})

	base.Merge(other)

	p, _ := base.Lookup("Product")
	assert.Equal(t, []string{"sku", "warehouse"}, p.KeyFields, "merged set wins on conflicts")
	u, ok := base.Lookup("User")
	require.True(t, ok, "existing policies survive the merge")
	assert.Equal(t, []string{"id"}, u.KeyFields)
	assert.Equal(t, "kind", base.TypenameField())
}

func TestSet_Merge_NilIsNoop(t *testing.T) {
	s := NewSet()
	s.Add("User", TypePolicy{KeyFields: []string{"id"}})
	s.Merge(nil)

	_, ok := s.Lookup("User")
	assert.True(t, ok)
}

func TestTypePolicy_FieldFor(t *testing.T) {
	p := TypePolicy{Fields: map[string]FieldPolicy{
		"posts": {KeyArgs: []string{"sort"}},
	}}

	fp, ok := p.FieldFor("posts")
	require.True(t, ok)
	assert.Equal(t, []string{"sort"}, fp.KeyArgs)

	_, ok = p.FieldFor("missing")
	assert.False(t, ok)
}

func TestDefaultKeyFields_CopyIsIndependent(t *testing.T) {
	fields := DefaultKeyFields()
	require.Equal(t, []string{"id", "_id"}, fields)

	fields[0] = "mutated"
	assert.Equal(t, []string{"id", "_id"}, DefaultKeyFields())
}

func TestMergeFunc_Signature(t *testing.T) {
	var m MergeFunc = func(existing, incoming value.Value) value.Value {
		if existing == nil {
			return incoming
		}
		return existing
	}
	assert.Equal(t, value.String("first"), m(value.String("first"), value.String("second")))
	assert.Equal(t, value.String("second"), m(nil, value.String("second")))
}
