package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/certledger/internal/auth"
	"github.com/roach88/certledger/internal/engine"
	"github.com/roach88/certledger/internal/registry"
	"github.com/roach88/certledger/internal/store"
	"github.com/roach88/certledger/internal/testutil"
)

// Harness executes one scenario against its own engine.
type Harness struct {
	backend *store.MemoryStore
	engine  *engine.Engine
	clock   *testutil.DeterministicClock
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs on a fresh MemoryStore. An error is returned only when
// the scenario could not be executed (a setup step failed, a call could not
// be decoded); expectation and assertion failures are reported in Result.
func Run(scenario *Scenario) (*Result, error) {
	backend := store.NewMemory()
	defer backend.Close()

	clock := testutil.NewDeterministicClock(scenario.StartTime)
	eng := engine.New(backend,
		engine.WithLedgerClock(clock),
		engine.WithTxIDGenerator(testutil.NewSequentialIDs("tx")),
		engine.WithSinks(engine.LogEventSink(backend)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()
	defer func() {
		eng.Stop()
		<-done
		cancel()
	}()

	h := &Harness{backend: backend, engine: eng, clock: clock}
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{Ctx: ctx, Query: h.query}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) executeSetup(ctx context.Context, setup []Step, result *Result) error {
	for i, step := range setup {
		ts, err := h.execute(ctx, fmt.Sprintf("setup.%d", i), step, result)
		if err != nil {
			return err
		}
		if ts.Status != StatusOK {
			return fmt.Errorf("setup step %d (%s) failed with %s", i, step.Call, ts.Code)
		}
	}
	return nil
}

func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		ts, err := h.execute(ctx, fmt.Sprintf("flow.%d", i), step, result)
		if err != nil {
			return err
		}

		expect := step.Expect
		if expect == nil {
			expect = &Expect{Status: StatusOK}
		}
		for _, msg := range checkExpect(ts, expect) {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Call, msg))
		}

		slog.Debug("flow step completed",
			"step", i,
			"call", step.Call,
			"tx_id", ts.TxID,
			"status", ts.Status,
			"code", ts.Code,
		)
	}
	return nil
}

// execute submits one step and records it in the trace. Registry
// rejections are outcomes, not errors; any other failure aborts the run.
func (h *Harness) execute(ctx context.Context, name string, step Step, result *Result) (TraceStep, error) {
	op, err := decodeStep(step.Call, step.Args)
	if err != nil {
		return TraceStep{}, fmt.Errorf("%s: %w", name, err)
	}

	if step.Advance > 0 {
		h.clock.Advance(step.Advance)
	}

	callCtx := ctx
	if step.As != "" {
		callCtx = auth.WithPrincipal(ctx, step.As)
	}

	res, err := h.engine.Submit(callCtx, op)
	ts := TraceStep{
		Step:   name,
		Call:   step.Call,
		As:     step.As,
		TxID:   res.TxID,
		At:     res.At,
		Status: StatusOK,
		Value:  res.Value,
	}
	if err != nil {
		if !registry.IsDomain(err) {
			return TraceStep{}, fmt.Errorf("%s: %w", name, err)
		}
		ts.Status = StatusError
		ts.Code = string(registry.CodeOf(err))
		ts.Fatal = registry.IsFatal(err)
	}

	result.addStep(ts, res.Events)
	return ts, nil
}

// query runs a read call with no principal and returns its value.
func (h *Harness) query(ctx context.Context, call string, args map[string]any) (any, error) {
	op, err := decodeStep(call, args)
	if err != nil {
		return nil, err
	}
	res, err := h.engine.Submit(ctx, op)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// decodeStep routes YAML args through the same JSON decoding every
// transport uses.
func decodeStep(call string, args map[string]any) (engine.Operation, error) {
	var body []byte
	if len(args) > 0 {
		var err error
		body, err = json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("encode %s args: %w", call, err)
		}
	}
	return engine.Decode(call, body)
}

func checkExpect(ts TraceStep, e *Expect) []string {
	var problems []string
	if ts.Status != e.Status {
		got := ts.Status
		if ts.Code != "" {
			got += " " + ts.Code
		}
		problems = append(problems, fmt.Sprintf("expected status %s, got %s", e.Status, got))
		return problems
	}

	if e.Code != "" && e.Code != ts.Code {
		problems = append(problems, fmt.Sprintf("expected code %s, got %s", e.Code, ts.Code))
	}
	if e.Fatal != nil && *e.Fatal != ts.Fatal {
		problems = append(problems, fmt.Sprintf("expected fatal=%t, got fatal=%t", *e.Fatal, ts.Fatal))
	}
	if e.Result != nil {
		ok, err := containsJSON(ts.Value, e.Result)
		switch {
		case err != nil:
			problems = append(problems, err.Error())
		case !ok:
			problems = append(problems, fmt.Sprintf("result %s does not contain %v", mustJSON(ts.Value), e.Result))
		}
	}
	return problems
}
