// Package testutil provides shared helpers for building payload values in
// tests.
package testutil

import (
	"testing"

	"github.com/refcache/refcache/internal/value"
)

// MustValue parses a JSON document into a value.Value, failing the test
// on malformed input. The compact literal form keeps payload fixtures
// readable inline:
//
//	payload := testutil.MustValue(t, `{"__typename":"User","id":"1"}`)
func MustValue(t *testing.T, jsonDoc string) value.Value {
	t.Helper()

	v, err := value.FromJSON([]byte(jsonDoc))
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	return v
}

// MustObject is MustValue for documents that must decode to an object.
func MustObject(t *testing.T, jsonDoc string) value.Object {
	t.Helper()

	obj, ok := MustValue(t, jsonDoc).(value.Object)
	if !ok {
		t.Fatalf("payload is not an object: %s", jsonDoc)
	}
	return obj
}
