package harness

import (
	"encoding/json"

	"github.com/roach88/certledger/internal/store"
)

// TraceStep records one executed call and the events it published.
type TraceStep struct {
	// Step is "setup.<i>" or "flow.<i>".
	Step   string `json:"step"`
	Call   string `json:"call"`
	As     string `json:"as,omitempty"`
	TxID   string `json:"tx_id"`
	At     uint64 `json:"at"`
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
	Fatal  bool   `json:"fatal,omitempty"`

	Events []TraceEvent `json:"events"`

	// Value is the call's return value. Kept out of golden files.
	Value any `json:"-"`
}

// TraceEvent is a published event without its content id.
type TraceEvent struct {
	Seq     int64           `json:"seq"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	Trace []TraceStep `json:"trace"`

	// Events is every published event in seq order, with ids.
	Events []store.EventRecord `json:"-"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceStep{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addStep appends a step and its events to the trace.
func (r *Result) addStep(step TraceStep, events []store.EventRecord) {
	step.Events = make([]TraceEvent, 0, len(events))
	for _, ev := range events {
		step.Events = append(step.Events, TraceEvent{Seq: ev.Seq, Kind: ev.Kind, Payload: ev.Payload})
	}
	r.Trace = append(r.Trace, step)
	r.Events = append(r.Events, events...)
}
