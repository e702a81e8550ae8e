package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceStep
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nEvents:\n")
		for _, step := range e.Trace {
			for _, ev := range step.Events {
				fmt.Fprintf(&buf, "  [%d] %s %s\n", ev.Seq, ev.Kind, ev.Payload)
			}
		}
	}

	return buf.String()
}

// QueryFunc runs a read call after the flow.
type QueryFunc func(ctx context.Context, call string, args map[string]any) (any, error)

// AssertionContext provides what final_state assertions need.
type AssertionContext struct {
	Ctx   context.Context
	Query QueryFunc
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertEventContains:
			err = assertEventContains(result.Trace, assertion)
		case AssertEventOrder:
			err = assertEventOrder(result.Trace, assertion)
		case AssertEventCount:
			err = assertEventCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Query == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a query context", i)
			} else {
				err = assertFinalState(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func events(trace []TraceStep) []TraceEvent {
	var out []TraceEvent
	for _, step := range trace {
		out = append(out, step.Events...)
	}
	return out
}

// assertEventContains checks for an event of the kind whose payload
// contains the expected fields.
func assertEventContains(trace []TraceStep, assertion Assertion) error {
	for _, ev := range events(trace) {
		if ev.Kind != assertion.Kind {
			continue
		}
		if len(assertion.Payload) == 0 {
			return nil
		}
		ok, err := containsJSON(ev.Payload, assertion.Payload)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertEventContains,
		Expected: fmt.Sprintf("event %s with payload %v", assertion.Kind, assertion.Payload),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertEventOrder checks that kinds first occur in the given order.
// Intervening events are allowed.
func assertEventOrder(trace []TraceStep, assertion Assertion) error {
	positions := make(map[string]int)
	for i, ev := range events(trace) {
		if _, seen := positions[ev.Kind]; !seen {
			positions[ev.Kind] = i + 1
		}
	}

	for _, kind := range assertion.Kinds {
		if positions[kind] == 0 {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("all kinds present: %v", assertion.Kinds),
				Actual:   fmt.Sprintf("missing kind: %s", kind),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Kinds); i++ {
		prev := assertion.Kinds[i-1]
		curr := assertion.Kinds[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("kinds in order: %v", assertion.Kinds),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertEventCount checks that the kind occurs exactly Count times.
func assertEventCount(trace []TraceStep, assertion Assertion) error {
	count := 0
	for _, ev := range events(trace) {
		if ev.Kind == assertion.Kind {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s events", assertion.Count, assertion.Kind),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState runs the query and subset-matches its value.
func assertFinalState(actx *AssertionContext, assertion Assertion) error {
	value, err := actx.Query(actx.Ctx, assertion.Call, assertion.Args)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s %v to succeed", assertion.Call, assertion.Args),
			Actual:   fmt.Sprintf("error: %v", err),
		}
	}

	ok, err := containsJSON(value, assertion.Expect)
	if err != nil {
		return err
	}
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s %v to contain %v", assertion.Call, assertion.Args, assertion.Expect),
			Actual:   mustJSON(value),
		}
	}
	return nil
}

// containsJSON reports whether actual contains expected once both are
// reduced to their JSON form. Objects match by subset, arrays element-wise
// with equal length, scalars by equality.
func containsJSON(actual, expected any) (bool, error) {
	a, err := toJSONValue(actual)
	if err != nil {
		return false, fmt.Errorf("normalize actual: %w", err)
	}
	e, err := toJSONValue(expected)
	if err != nil {
		return false, fmt.Errorf("normalize expected: %w", err)
	}
	return subset(a, e), nil
}

func toJSONValue(v any) (any, error) {
	var data []byte
	if raw, ok := v.(json.RawMessage); ok {
		data = raw
	} else {
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return nil, err
		}
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func subset(actual, expected any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for key, ev := range exp {
			av, exists := act[key]
			if !exists || !subset(av, ev) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !subset(act[i], exp[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(actual, expected)
	}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
