package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/certledger/internal/engine"
)

// DefaultStartTime is the ledger time of the first step when a scenario
// sets none.
const DefaultStartTime uint64 = 1000

// Scenario is one executable registry story.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// StartTime is the ledger time before the first step.
	StartTime uint64 `yaml:"start_time,omitempty"`

	// Setup establishes state. Every setup step must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow is the behaviour under test.
	Flow []Step `yaml:"flow"`

	Assertions []Assertion `yaml:"assertions"`
}

// Step is one named call submitted as the identity in As.
type Step struct {
	Call string         `yaml:"call"`
	As   string         `yaml:"as,omitempty"`
	Args map[string]any `yaml:"args"`

	// Advance moves the ledger clock forward before the call.
	Advance uint64 `yaml:"advance,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the outcome a flow step must produce.
type Expect struct {
	// Status is "ok" or "error".
	Status string `yaml:"status"`

	// Code is the registry error code when Status is "error".
	Code string `yaml:"code,omitempty"`

	// Fatal, when set, must equal the error's fatal flag.
	Fatal *bool `yaml:"fatal,omitempty"`

	// Result is a subset of the returned value's JSON form.
	Result any `yaml:"result,omitempty"`
}

// Assertion validates the event trace or final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Kind is the event kind (event_contains, event_count).
	Kind string `yaml:"kind,omitempty"`

	// Payload is matched as a subset of the event payload (event_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Kinds is the expected order (event_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Count is the exact number of events of Kind (event_count).
	Count int `yaml:"count,omitempty"`

	// Call and Args name the query run after the flow (final_state).
	Call string         `yaml:"call,omitempty"`
	Args map[string]any `yaml:"args,omitempty"`

	// Expect is matched as a subset of the query result (final_state).
	Expect any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertEventContains = "event_contains"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
	AssertFinalState    = "final_state"
)

// Expect status constants.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if scenario.StartTime == 0 {
		scenario.StartTime = DefaultStartTime
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if step.Expect != nil {
			if err := validateExpect(step.Expect); err != nil {
				return fmt.Errorf("flow[%d].expect: %w", i, err)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(step Step) error {
	if step.Call == "" {
		return fmt.Errorf("call is required")
	}
	if _, ok := engine.Operations[step.Call]; !ok {
		return fmt.Errorf("unknown call %q", step.Call)
	}
	if step.Args == nil {
		return fmt.Errorf("args is required (use empty map if no args)")
	}
	return nil
}

func validateExpect(e *Expect) error {
	switch e.Status {
	case StatusOK:
		if e.Code != "" || e.Fatal != nil {
			return fmt.Errorf("code and fatal only apply to status error")
		}
	case StatusError:
		if e.Result != nil {
			return fmt.Errorf("result only applies to status ok")
		}
	default:
		return fmt.Errorf("status must be %q or %q, got %q", StatusOK, StatusError, e.Status)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_contains", index)
		}
	case AssertEventOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for event_order", index)
		}
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertFinalState:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for final_state", index)
		}
		if _, ok := engine.Operations[a.Call]; !ok {
			return fmt.Errorf("assertions[%d]: unknown call %q", index, a.Call)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
