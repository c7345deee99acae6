package harness

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/refcache/refcache/internal/cache"
	"github.com/refcache/refcache/internal/value"
)

// AssertionError is returned when an assertion fails. It carries enough
// context to debug the failure without re-running the scenario.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Diff     string // Structural diff when values were compared
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Diff != "" {
		fmt.Fprintf(&buf, "\nDiff (-expected +actual):\n%s", e.Diff)
	}
	return buf.String()
}

func check(result *Result, assertion Assertion) error {
	switch assertion.Type {
	case "entity_present":
		if _, ok := result.Snapshot[cache.EntityID(assertion.ID)]; !ok {
			return &AssertionError{
				Type:     assertion.Type,
				Expected: fmt.Sprintf("entity %s present", assertion.ID),
				Actual:   "not in composed view",
			}
		}
		return nil

	case "entity_absent":
		if _, ok := result.Snapshot[cache.EntityID(assertion.ID)]; ok {
			return &AssertionError{
				Type:     assertion.Type,
				Expected: fmt.Sprintf("entity %s absent", assertion.ID),
				Actual:   "present in composed view",
			}
		}
		return nil

	case "field_equals":
		return checkFieldEquals(result, assertion)

	case "entity_count":
		if assertion.Count == nil {
			return fmt.Errorf("entity_count requires count")
		}
		if got := len(result.Snapshot); got != *assertion.Count {
			return &AssertionError{
				Type:     assertion.Type,
				Expected: fmt.Sprintf("%d entities", *assertion.Count),
				Actual:   fmt.Sprintf("%d entities", got),
			}
		}
		return nil

	case "layer_count":
		if assertion.Count == nil {
			return fmt.Errorf("layer_count requires count")
		}
		if result.LayerCount != *assertion.Count {
			return &AssertionError{
				Type:     assertion.Type,
				Expected: fmt.Sprintf("%d layers", *assertion.Count),
				Actual:   fmt.Sprintf("%d layers", result.LayerCount),
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown assertion type %q", assertion.Type)
	}
}

// checkFieldEquals reads the entity as a fragment (so refs resolve and
// read policies apply) and compares one field structurally.
func checkFieldEquals(result *Result, assertion Assertion) error {
	if assertion.Field == "" {
		return fmt.Errorf("field_equals requires field")
	}

	obj, ok := result.Cache.ReadFragment(cache.EntityID(assertion.ID))
	if !ok {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("entity %s with field %s", assertion.ID, assertion.Field),
			Actual:   "entity not in composed view",
		}
	}

	expected, err := value.FromAny(assertion.Equals)
	if err != nil {
		return fmt.Errorf("field_equals expected value: %w", err)
	}

	got, present := obj[assertion.Field]
	if !present {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("%s.%s = %v", assertion.ID, assertion.Field, assertion.Equals),
			Actual:   "field absent",
		}
	}
	if !value.Equal(expected, got) {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("%s.%s = %v", assertion.ID, assertion.Field, assertion.Equals),
			Actual:   fmt.Sprintf("%v", value.ToAny(got)),
			Diff:     cmp.Diff(value.ToAny(expected), value.ToAny(got)),
		}
	}
	return nil
}
