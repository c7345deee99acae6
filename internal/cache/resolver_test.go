package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refcache/refcache/internal/policy"
	"github.com/refcache/refcache/internal/testutil"
	"github.com/refcache/refcache/internal/value"
)

// =============================================================================
// ResolveIdentity Unit Tests
// =============================================================================

func TestResolveIdentity_DefaultIDField(t *testing.T) {
	set := policy.NewSet()
	obj := testutil.MustObject(t, `{"__typename":"User","id":"1","name":"A"}`)

	ident := ResolveIdentity(obj, set)
	require.Equal(t, IdentityEntity, ident.Kind)
	assert.Equal(t, EntityID("User:1"), ident.ID)
}

func TestResolveIdentity_UnderscoreIDFallback(t *testing.T) {
	set := policy.NewSet()
	obj := testutil.MustObject(t, `{"__typename":"User","_id":"42"}`)

	ident := ResolveIdentity(obj, set)
	require.Equal(t, IdentityEntity, ident.Kind)
	assert.Equal(t, EntityID("User:42"), ident.ID)
}

func TestResolveIdentity_NumericID(t *testing.T) {
	set := policy.NewSet()
	obj := testutil.MustObject(t, `{"__typename":"User","id":7}`)

	ident := ResolveIdentity(obj, set)
	require.Equal(t, IdentityEntity, ident.Kind)
	assert.Equal(t, EntityID("User:7"), ident.ID, "integral number should stringify without fraction")
}

func TestResolveIdentity_NoTypename_Embedded(t *testing.T) {
	set := policy.NewSet()
	obj := testutil.MustObject(t, `{"id":"1","name":"A"}`)

	ident := ResolveIdentity(obj, set)
	assert.Equal(t, IdentityEmbedded, ident.Kind, "object without discriminator is embedded")
}

func TestResolveIdentity_NonPrimitiveID_Embedded(t *testing.T) {
	set := policy.NewSet()
	obj := testutil.MustObject(t, `{"__typename":"User","id":{"nested":true}}`)

	ident := ResolveIdentity(obj, set)
	assert.Equal(t, IdentityEmbedded, ident.Kind, "non-primitive id is rejected silently")
}

func TestResolveIdentity_BoolID_Embedded(t *testing.T) {
	set := policy.NewSet()
	obj := testutil.MustObject(t, `{"__typename":"User","id":true}`)

	ident := ResolveIdentity(obj, set)
	assert.Equal(t, IdentityEmbedded, ident.Kind, "only string/number ids are accepted by default")
}

func TestResolveIdentity_KeyFields_MultiField(t *testing.T) {
	set := policy.NewSet()
	set.Add("Product", policy.TypePolicy{KeyFields: []string{"sku", "warehouse"}})
	obj := testutil.MustObject(t, `{"__typename":"Product","sku":"X","warehouse":"W1"}`)

	ident := ResolveIdentity(obj, set)
	require.Equal(t, IdentityEntity, ident.Kind)
	assert.Equal(t, EntityID("Product:X:W1"), ident.ID)
}

func TestResolveIdentity_KeyFields_NonPrimitiveSegmentEmpty(t *testing.T) {
	set := policy.NewSet()
	set.Add("Product", policy.TypePolicy{KeyFields: []string{"sku", "warehouse"}})
	obj := testutil.MustObject(t, `{"__typename":"Product","sku":"X","warehouse":["W1"]}`)

	ident := ResolveIdentity(obj, set)
	require.Equal(t, IdentityEntity, ident.Kind)
	assert.Equal(t, EntityID("Product:X:"), ident.ID, "non-primitive key field contributes an empty segment")
}

func TestResolveIdentity_KeyFields_AllEmpty_Embedded(t *testing.T) {
	set := policy.NewSet()
	set.Add("Product", policy.TypePolicy{KeyFields: []string{"sku"}})
	obj := testutil.MustObject(t, `{"__typename":"Product","name":"no sku"}`)

	ident := ResolveIdentity(obj, set)
	assert.Equal(t, IdentityEmbedded, ident.Kind)
}

func TestResolveIdentity_KeyFunc(t *testing.T) {
	set := policy.NewSet()
	set.Add("Session", policy.TypePolicy{
		KeyFunc: func(obj value.Object) (string, bool) {
			tok, ok := obj["token"].(value.String)
			return strings.ToLower(string(tok)), ok
		},
	})
	obj := testutil.MustObject(t, `{"__typename":"Session","token":"ABC"}`)

	ident := ResolveIdentity(obj, set)
	require.Equal(t, IdentityEntity, ident.Kind)
	assert.Equal(t, EntityID("Session:abc"), ident.ID)
}

func TestResolveIdentity_KeyFunc_Declines_Embedded(t *testing.T) {
	set := policy.NewSet()
	set.Add("Session", policy.TypePolicy{
		KeyFunc: func(obj value.Object) (string, bool) { return "", false },
	})
	obj := testutil.MustObject(t, `{"__typename":"Session","id":"would-resolve-by-default"}`)

	ident := ResolveIdentity(obj, set)
	assert.Equal(t, IdentityEmbedded, ident.Kind, "a declining KeyFunc wins over default id resolution")
}

func TestResolveIdentity_Deterministic(t *testing.T) {
	// Same identity fields, different other fields: same EntityID.
	set := policy.NewSet()
	a := testutil.MustObject(t, `{"__typename":"User","id":"1","name":"A"}`)
	b := testutil.MustObject(t, `{"__typename":"User","id":"1","email":"a@x"}`)

	identA := ResolveIdentity(a, set)
	identB := ResolveIdentity(b, set)
	require.Equal(t, IdentityEntity, identA.Kind)
	require.Equal(t, IdentityEntity, identB.Kind)
	assert.Equal(t, identA.ID, identB.ID)
}

func TestResolveIdentity_CustomTypenameField(t *testing.T) {
	set := policy.NewSet(policy.WithTypenameField("kind"))
	obj := testutil.MustObject(t, `{"kind":"User","id":"1"}`)

	ident := ResolveIdentity(obj, set)
	require.Equal(t, IdentityEntity, ident.Kind)
	assert.Equal(t, EntityID("User:1"), ident.ID)
}
