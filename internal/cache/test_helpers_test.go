package cache

import (
	"testing"

	"github.com/refcache/refcache/internal/testutil"
	"github.com/refcache/refcache/internal/value"
)

// mustPayload parses an inline JSON payload for facade-level tests.
func mustPayload(t *testing.T, jsonDoc string) value.Value {
	t.Helper()
	return testutil.MustValue(t, jsonDoc)
}
