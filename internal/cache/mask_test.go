package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refcache/refcache/internal/policy"
	"github.com/refcache/refcache/internal/value"
)

func TestMaskFields_Exactness(t *testing.T) {
	set := policy.NewSet()
	rec := Record{
		"__typename": value.String("User"),
		"id":         value.String("1"),
		"name":       value.String("A"),
		"email":      value.String("e"),
		"phone":      value.String("555"),
	}

	got := MaskFields(rec, EntityMap{}, []string{"name", "email"}, set)

	assert.Equal(t, value.Object{
		"__typename": value.String("User"),
		"name":       value.String("A"),
		"email":      value.String("e"),
	}, got, "exactly the declared fields plus the discriminator; id and phone absent")
}

func TestMaskFields_DiscriminatorAlwaysPresent(t *testing.T) {
	set := policy.NewSet()
	rec := Record{"__typename": value.String("User"), "name": value.String("A")}

	got := MaskFields(rec, EntityMap{}, []string{"name"}, set)
	assert.Equal(t, value.String("User"), got["__typename"],
		"the discriminator is implicit in every declared set")
}

func TestMaskFields_DeclaredFieldMissingFromRecord(t *testing.T) {
	set := policy.NewSet()
	rec := Record{"__typename": value.String("User"), "name": value.String("A")}

	got := MaskFields(rec, EntityMap{}, []string{"name", "email"}, set)
	assert.NotContains(t, got, "email", "missing declared fields stay missing, no error")
}

func TestMaskFields_RefFullyDenormalized(t *testing.T) {
	set := policy.NewSet()
	view := EntityMap{
		"User:2": {
			"__typename": value.String("User"),
			"id":         value.String("2"),
			"name":       value.String("friend"),
			"secret":     value.String("visible"),
		},
	}
	rec := Record{
		"__typename": value.String("User"),
		"friend":     value.Ref{ID: "User:2"},
	}

	got := MaskFields(rec, view, []string{"friend"}, set)

	friend, ok := got["friend"].(value.Object)
	require.True(t, ok)
	// Masking is shallow: the referenced entity is exposed in full, not
	// re-masked against any nested selection.
	assert.Equal(t, value.String("friend"), friend["name"])
	assert.Equal(t, value.String("visible"), friend["secret"])
}

func TestMaskFields_ListOfRefsDenormalized(t *testing.T) {
	set := policy.NewSet()
	view := EntityMap{
		"Item:a": {"__typename": value.String("Item"), "id": value.String("a"), "n": value.Number(1)},
		"Item:b": {"__typename": value.String("Item"), "id": value.String("b"), "n": value.Number(2)},
	}
	rec := Record{
		"__typename": value.String("Cart"),
		"items":      value.List{value.Ref{ID: "Item:a"}, value.Ref{ID: "Item:b"}},
	}

	got := MaskFields(rec, view, []string{"items"}, set)

	items, ok := got["items"].(value.List)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, value.Number(1), items[0].(value.Object)["n"])
	assert.Equal(t, value.Number(2), items[1].(value.Object)["n"])
}

func TestMaskFields_DanglingRefOmitted(t *testing.T) {
	set := policy.NewSet()
	rec := Record{
		"__typename": value.String("User"),
		"friend":     value.Ref{ID: "User:404"},
	}

	got := MaskFields(rec, EntityMap{}, []string{"friend"}, set)
	assert.NotContains(t, got, "friend")
}

func TestMaskFields_ReadPolicyApplied(t *testing.T) {
	set := policy.NewSet()
	set.Add("User", policy.TypePolicy{
		Fields: map[string]policy.FieldPolicy{
			"name": {Read: func(stored value.Value) value.Value {
				s, _ := stored.(value.String)
				return value.String(string(s) + "!")
			}},
		},
	})
	rec := Record{"__typename": value.String("User"), "name": value.String("A")}

	got := MaskFields(rec, EntityMap{}, []string{"name"}, set)
	assert.Equal(t, value.String("A!"), got["name"])
}

func TestMaskFields_CustomTypenameField(t *testing.T) {
	set := policy.NewSet(policy.WithTypenameField("kind"))
	rec := Record{"kind": value.String("User"), "name": value.String("A")}

	got := MaskFields(rec, EntityMap{}, []string{"name"}, set)
	assert.Equal(t, value.String("User"), got["kind"])
	assert.NotContains(t, got, "__typename")
}
