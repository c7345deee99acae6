package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a cache configuration, a
// sequence of operations, and assertions over the final state.
type Scenario struct {
	// Name uniquely identifies this scenario; it is also the golden file
	// name when snapshotting is enabled.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Policies configures the cache's type policies declaratively.
	Policies *PolicyDoc `yaml:"policies,omitempty"`

	// Steps lists the operations to apply in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final composed state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// PolicyDoc is the declarative policy subset expressible in YAML.
type PolicyDoc struct {
	TypenameField string                `yaml:"typenameField,omitempty"`
	Types         map[string]PolicySpec `yaml:"types,omitempty"`
}

// PolicySpec configures one typename.
type PolicySpec struct {
	KeyFields []string `yaml:"keyFields,omitempty"`
}

// Step is one cache operation. Exactly one of the operation fields must
// be set; Validate enforces this before execution.
type Step struct {
	// Write normalizes a payload into the base store.
	Write *WriteStep `yaml:"write,omitempty"`

	// WriteFragment merges fields directly into one entity.
	WriteFragment *WriteFragmentStep `yaml:"write_fragment,omitempty"`

	// Optimistic adds a speculative layer under a scenario-local label.
	Optimistic *OptimisticStep `yaml:"optimistic,omitempty"`

	// Settle resolves a previously added layer: "confirm" writes the
	// confirmed payload to the base store then removes the layer;
	// "discard" removes it without any base write.
	Settle *SettleStep `yaml:"settle,omitempty"`

	// Evict removes a field or a whole record.
	Evict *EvictStep `yaml:"evict,omitempty"`

	// Clear empties the store and drops all layers.
	Clear *struct{} `yaml:"clear,omitempty"`
}

// WriteStep carries a payload and an optional explicit stamp. Without a
// stamp the cache assigns the next logical sequence number; explicit
// stamps let scenarios replay out-of-order response arrival.
type WriteStep struct {
	Payload map[string]any `yaml:"payload"`
	Stamp   *int64         `yaml:"stamp,omitempty"`
}

// WriteFragmentStep merges fields into the identified entity.
type WriteFragmentStep struct {
	ID     string         `yaml:"id"`
	Fields map[string]any `yaml:"fields"`
}

// OptimisticStep adds a layer. Label is scenario-local; Settle steps
// refer to it.
type OptimisticStep struct {
	Label   string         `yaml:"label"`
	Payload map[string]any `yaml:"payload"`
}

// SettleStep resolves the layer added under Label.
type SettleStep struct {
	Label   string         `yaml:"label"`
	Outcome string         `yaml:"outcome"` // "confirm" | "discard"
	Payload map[string]any `yaml:"payload,omitempty"`
}

// EvictStep removes a field (when named) or a whole record.
type EvictStep struct {
	ID    string `yaml:"id"`
	Field string `yaml:"field,omitempty"`
}

// Assertion validates final state. Type selects the check:
//   - "entity_present": entity ID exists in the composed view
//   - "entity_absent":  entity ID does not exist
//   - "field_equals":   a denormalized fragment field equals a value
//   - "entity_count":   the composed view holds exactly Count entities
//   - "layer_count":    exactly Count optimistic layers remain
type Assertion struct {
	Type   string `yaml:"type"`
	ID     string `yaml:"id,omitempty"`
	Field  string `yaml:"field,omitempty"`
	Equals any    `yaml:"equals,omitempty"`
	Count  *int   `yaml:"count,omitempty"`
}

// LoadScenario reads and validates a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks structural invariants before execution.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}

	labels := make(map[string]bool)
	for i, step := range s.Steps {
		ops := 0
		if step.Write != nil {
			ops++
		}
		if step.WriteFragment != nil {
			ops++
			if step.WriteFragment.ID == "" {
				return fmt.Errorf("step %d: write_fragment requires id", i+1)
			}
		}
		if step.Optimistic != nil {
			ops++
			if step.Optimistic.Label == "" {
				return fmt.Errorf("step %d: optimistic requires label", i+1)
			}
			if labels[step.Optimistic.Label] {
				return fmt.Errorf("step %d: duplicate optimistic label %q", i+1, step.Optimistic.Label)
			}
			labels[step.Optimistic.Label] = true
		}
		if step.Settle != nil {
			ops++
			if !labels[step.Settle.Label] {
				return fmt.Errorf("step %d: settle references unknown label %q", i+1, step.Settle.Label)
			}
			switch step.Settle.Outcome {
			case "confirm", "discard":
			default:
				return fmt.Errorf("step %d: settle outcome must be confirm or discard, got %q", i+1, step.Settle.Outcome)
			}
		}
		if step.Evict != nil {
			ops++
			if step.Evict.ID == "" {
				return fmt.Errorf("step %d: evict requires id", i+1)
			}
		}
		if step.Clear != nil {
			ops++
		}
		if ops != 1 {
			return fmt.Errorf("step %d: exactly one operation required, got %d", i+1, ops)
		}
	}
	return nil
}

// layerLabels returns the optimistic labels in declaration order. The
// runner seeds the cache's fixed handle generator with them, so layer
// handles are deterministic across runs.
func (s *Scenario) layerLabels() []string {
	var labels []string
	for _, step := range s.Steps {
		if step.Optimistic != nil {
			labels = append(labels, step.Optimistic.Label)
		}
	}
	return labels
}
