package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refcache/refcache/internal/value"
)

func intPtr(n int) *int      { return &n }
func int64Ptr(n int64) *int64 { return &n }

func userPayload(id, name string) map[string]any {
	return map[string]any{"__typename": "User", "id": id, "name": name}
}

func TestRun_WriteAndAssert(t *testing.T) {
	result, err := Run(&Scenario{
		Name:  "write",
		Steps: []Step{{Write: &WriteStep{Payload: userPayload("1", "A")}}},
		Assertions: []Assertion{
			{Type: "entity_present", ID: "User:1"},
			{Type: "entity_count", Count: intPtr(1)},
			{Type: "field_equals", ID: "User:1", Field: "name", Equals: "A"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, value.String("A"), result.Snapshot["User:1"]["name"])
}

func TestRun_SettleDiscardRestoresBase(t *testing.T) {
	_, err := Run(&Scenario{
		Name: "discard",
		Steps: []Step{
			{Write: &WriteStep{Payload: userPayload("1", "A")}},
			{Optimistic: &OptimisticStep{Label: "l1", Payload: userPayload("1", "pending")}},
			{Settle: &SettleStep{Label: "l1", Outcome: "discard"}},
		},
		Assertions: []Assertion{
			{Type: "layer_count", Count: intPtr(0)},
			{Type: "field_equals", ID: "User:1", Field: "name", Equals: "A"},
		},
	})
	require.NoError(t, err)
}

func TestRun_SettleConfirmWritesBase(t *testing.T) {
	_, err := Run(&Scenario{
		Name: "confirm",
		Steps: []Step{
			{Write: &WriteStep{Payload: userPayload("1", "A")}},
			{Optimistic: &OptimisticStep{Label: "l1", Payload: userPayload("1", "pending")}},
			{Settle: &SettleStep{Label: "l1", Outcome: "confirm", Payload: userPayload("1", "confirmed")}},
		},
		Assertions: []Assertion{
			{Type: "layer_count", Count: intPtr(0)},
			{Type: "field_equals", ID: "User:1", Field: "name", Equals: "confirmed"},
		},
	})
	require.NoError(t, err)
}

func TestRun_LayerPrecedence(t *testing.T) {
	_, err := Run(&Scenario{
		Name: "precedence",
		Steps: []Step{
			{Optimistic: &OptimisticStep{Label: "l1", Payload: userPayload("1", "A")}},
			{Optimistic: &OptimisticStep{Label: "l2", Payload: userPayload("1", "B")}},
		},
		Assertions: []Assertion{
			{Type: "field_equals", ID: "User:1", Field: "name", Equals: "B"},
		},
	})
	require.NoError(t, err)
}

func TestRun_EvictAndClear(t *testing.T) {
	_, err := Run(&Scenario{
		Name: "evict",
		Steps: []Step{
			{Write: &WriteStep{Payload: userPayload("1", "A")}},
			{Write: &WriteStep{Payload: userPayload("2", "B")}},
			{Evict: &EvictStep{ID: "User:1"}},
		},
		Assertions: []Assertion{
			{Type: "entity_absent", ID: "User:1"},
			{Type: "entity_present", ID: "User:2"},
		},
	})
	require.NoError(t, err)

	_, err = Run(&Scenario{
		Name: "clear",
		Steps: []Step{
			{Write: &WriteStep{Payload: userPayload("1", "A")}},
			{Clear: &struct{}{}},
		},
		Assertions: []Assertion{{Type: "entity_count", Count: intPtr(0)}},
	})
	require.NoError(t, err)
}

func TestRun_StaleStamp(t *testing.T) {
	_, err := Run(&Scenario{
		Name: "stale",
		Steps: []Step{
			{Write: &WriteStep{Payload: userPayload("1", "fresh"), Stamp: int64Ptr(5)}},
			{Write: &WriteStep{Payload: userPayload("1", "stale"), Stamp: int64Ptr(3)}},
		},
		Assertions: []Assertion{
			{Type: "field_equals", ID: "User:1", Field: "name", Equals: "fresh"},
		},
	})
	require.NoError(t, err)
}

func TestRun_WriteFragment(t *testing.T) {
	_, err := Run(&Scenario{
		Name: "fragment",
		Steps: []Step{
			{WriteFragment: &WriteFragmentStep{ID: "User:1", Fields: map[string]any{"name": "patched"}}},
		},
		Assertions: []Assertion{
			{Type: "field_equals", ID: "User:1", Field: "name", Equals: "patched"},
		},
	})
	require.NoError(t, err)
}

func TestRun_FailedAssertionHasDiff(t *testing.T) {
	_, err := Run(&Scenario{
		Name:  "mismatch",
		Steps: []Step{{Write: &WriteStep{Payload: userPayload("1", "actual")}}},
		Assertions: []Assertion{
			{Type: "field_equals", ID: "User:1", Field: "name", Equals: "expected"},
		},
	})
	require.Error(t, err)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "field_equals", ae.Type)
	assert.NotEmpty(t, ae.Diff, "value mismatches carry a structural diff")
}

func TestRun_PolicyFromScenario(t *testing.T) {
	_, err := Run(&Scenario{
		Name: "policy",
		Policies: &PolicyDoc{
			Types: map[string]PolicySpec{"Product": {KeyFields: []string{"sku", "warehouse"}}},
		},
		Steps: []Step{
			{Write: &WriteStep{Payload: map[string]any{
				"__typename": "Product", "sku": "X", "warehouse": "W1", "qty": 3,
			}}},
		},
		Assertions: []Assertion{{Type: "entity_present", ID: "Product:X:W1"}},
	})
	require.NoError(t, err)
}

func TestRun_UnknownAssertionType(t *testing.T) {
	_, err := Run(&Scenario{
		Name:       "bad-assert",
		Steps:      []Step{{Clear: &struct{}{}}},
		Assertions: []Assertion{{Type: "no_such_check"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown assertion type")
}
