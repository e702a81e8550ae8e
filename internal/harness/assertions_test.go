package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func traceOf(kinds ...string) []TraceStep {
	step := TraceStep{Step: "flow.0", Call: "c", Status: StatusOK}
	for i, k := range kinds {
		step.Events = append(step.Events, TraceEvent{
			Seq:     int64(i + 1),
			Kind:    k,
			Payload: json.RawMessage(fmt.Sprintf(`{"transfer_id":"T%d","fee":0}`, i+1)),
		})
	}
	return []TraceStep{step}
}

func TestAssertEventOrder(t *testing.T) {
	trace := traceOf("certificate_issued", "transfer_initiated", "transfer_accepted")

	assert.NoError(t, assertEventOrder(trace, Assertion{Kinds: []string{"certificate_issued", "transfer_accepted"}}))

	err := assertEventOrder(trace, Assertion{Kinds: []string{"transfer_accepted", "transfer_initiated"}})
	var ae *AssertionError
	require.True(t, errors.As(err, &ae))
	assert.Contains(t, ae.Actual, "should be before")

	err = assertEventOrder(trace, Assertion{Kinds: []string{"transfer_completed"}})
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "missing kind: transfer_completed", ae.Actual)
}

func TestAssertEventCount(t *testing.T) {
	trace := traceOf("transfer_rejected", "transfer_rejected")
	assert.NoError(t, assertEventCount(trace, Assertion{Kind: "transfer_rejected", Count: 2}))
	assert.NoError(t, assertEventCount(trace, Assertion{Kind: "transfer_completed", Count: 0}))
	assert.Error(t, assertEventCount(trace, Assertion{Kind: "transfer_rejected", Count: 1}))
}

func TestAssertEventContains(t *testing.T) {
	trace := traceOf("transfer_initiated", "transfer_initiated")

	assert.NoError(t, assertEventContains(trace, Assertion{Kind: "transfer_initiated"}))
	assert.NoError(t, assertEventContains(trace, Assertion{
		Kind:    "transfer_initiated",
		Payload: map[string]any{"transfer_id": "T2", "fee": 0},
	}))

	err := assertEventContains(trace, Assertion{
		Kind:    "transfer_initiated",
		Payload: map[string]any{"transfer_id": "T9"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Assertion failed: event_contains")
	assert.Contains(t, err.Error(), "[1] transfer_initiated")
}

func TestAssertFinalState(t *testing.T) {
	actx := &AssertionContext{
		Ctx: context.Background(),
		Query: func(_ context.Context, call string, _ map[string]any) (any, error) {
			if call == "get_transfer_count" {
				return uint64(3), nil
			}
			return nil, errors.New("TRANSFER_NOT_FOUND: transfer \"T9\"")
		},
	}

	assert.NoError(t, assertFinalState(actx, Assertion{Call: "get_transfer_count", Expect: 3}))
	assert.Error(t, assertFinalState(actx, Assertion{Call: "get_transfer_count", Expect: 4}))

	err := assertFinalState(actx, Assertion{Call: "get_transfer", Expect: map[string]any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRANSFER_NOT_FOUND")
}

func TestEvaluateAssertions_NoQueryContext(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertFinalState, Call: "get_transfer_count", Expect: 0}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "requires a query context")
}

func TestContainsJSON(t *testing.T) {
	type cert struct {
		ID      string `json:"id"`
		Owner   string `json:"owner"`
		Revoked bool   `json:"revoked"`
	}
	value := cert{ID: "C1", Owner: "o", Revoked: true}

	tests := []struct {
		name     string
		actual   any
		expected any
		want     bool
	}{
		{"subset object", value, map[string]any{"owner": "o"}, true},
		{"wrong value", value, map[string]any{"owner": "x"}, false},
		{"missing key", value, map[string]any{"issuer": "i"}, false},
		{"yaml int vs uint64", uint64(7), 7, true},
		{"empty list", []string{}, []any{}, true},
		{"list length differs", []string{"a", "b"}, []any{"a"}, false},
		{"list elements subset", []cert{value}, []any{map[string]any{"id": "C1"}}, true},
		{"raw payload", json.RawMessage(`{"a":{"b":1,"c":2}}`), map[string]any{"a": map[string]any{"b": 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := containsJSON(tt.actual, tt.expected)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
