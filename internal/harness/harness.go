package harness

import (
	"fmt"

	"github.com/refcache/refcache/internal/cache"
	"github.com/refcache/refcache/internal/policy"
	"github.com/refcache/refcache/internal/value"
)

// Result captures the final observable state after a scenario run.
type Result struct {
	// Snapshot is the composed entity table (base store plus remaining
	// layers), deep-copied.
	Snapshot cache.EntityMap

	// LayerCount is the number of optimistic layers still active.
	LayerCount int

	// Cache is the instance the scenario ran against, for assertions
	// that need fragment reads.
	Cache *cache.Cache
}

// Run executes a scenario against a fresh cache and evaluates its
// assertions. The first failing assertion is returned as an error; a
// step that cannot be applied fails immediately.
func Run(scenario *Scenario) (*Result, error) {
	c, err := buildCache(scenario)
	if err != nil {
		return nil, err
	}

	handles := make(map[string]string)
	for i, step := range scenario.Steps {
		if err := applyStep(c, step, handles); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	result := &Result{
		Snapshot:   c.Extract(),
		LayerCount: c.LayerCount(),
		Cache:      c,
	}

	for _, assertion := range scenario.Assertions {
		if err := check(result, assertion); err != nil {
			return result, err
		}
	}
	return result, nil
}

func buildCache(scenario *Scenario) (*cache.Cache, error) {
	set := policy.NewSet()
	if doc := scenario.Policies; doc != nil {
		if doc.TypenameField != "" {
			set = policy.NewSet(policy.WithTypenameField(doc.TypenameField))
		}
		for typename, spec := range doc.Types {
			if len(spec.KeyFields) == 0 {
				return nil, fmt.Errorf("policy %q: keyFields required", typename)
			}
			set.Add(typename, policy.TypePolicy{KeyFields: spec.KeyFields})
		}
	}

	opts := []cache.Option{cache.WithPolicies(set)}
	if labels := scenario.layerLabels(); len(labels) > 0 {
		opts = append(opts, cache.WithHandleGenerator(cache.NewFixedGenerator(labels...)))
	}
	return cache.New(opts...), nil
}

func applyStep(c *cache.Cache, step Step, handles map[string]string) error {
	switch {
	case step.Write != nil:
		payload, err := value.FromAny(step.Write.Payload)
		if err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
		if step.Write.Stamp != nil {
			c.WriteAt(payload, *step.Write.Stamp)
		} else {
			c.Write(payload)
		}
		return nil

	case step.WriteFragment != nil:
		fields, err := value.FromAny(step.WriteFragment.Fields)
		if err != nil {
			return fmt.Errorf("fragment fields: %w", err)
		}
		obj, ok := fields.(value.Object)
		if !ok {
			return fmt.Errorf("fragment fields must be an object")
		}
		c.WriteFragment(cache.EntityID(step.WriteFragment.ID), obj)
		return nil

	case step.Optimistic != nil:
		payload, err := value.FromAny(step.Optimistic.Payload)
		if err != nil {
			return fmt.Errorf("optimistic payload: %w", err)
		}
		handles[step.Optimistic.Label] = c.AddOptimisticLayer(payload)
		return nil

	case step.Settle != nil:
		handle, ok := handles[step.Settle.Label]
		if !ok {
			return fmt.Errorf("settle: no layer under label %q", step.Settle.Label)
		}
		if step.Settle.Outcome == "confirm" {
			if step.Settle.Payload != nil {
				payload, err := value.FromAny(step.Settle.Payload)
				if err != nil {
					return fmt.Errorf("settle payload: %w", err)
				}
				c.Write(payload)
			}
		}
		if !c.RemoveOptimisticLayer(handle) {
			return fmt.Errorf("settle: layer %q already removed", step.Settle.Label)
		}
		delete(handles, step.Settle.Label)
		return nil

	case step.Evict != nil:
		if step.Evict.Field != "" {
			c.Evict(cache.EntityID(step.Evict.ID), step.Evict.Field)
		} else {
			c.Evict(cache.EntityID(step.Evict.ID))
		}
		return nil

	case step.Clear != nil:
		c.Clear()
		return nil

	default:
		return fmt.Errorf("empty step")
	}
}
