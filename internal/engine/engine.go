package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/certledger/internal/auth"
	"github.com/roach88/certledger/internal/registry"
	"github.com/roach88/certledger/internal/store"
)

const tracerName = "github.com/roach88/certledger/internal/engine"

// DefaultMaxAttempts is how often a call runs before a commit conflict with
// another process sharing the store is reported.
const DefaultMaxAttempts = 3

// Engine is the single-writer transaction loop.
//
// Callers Submit operations from any goroutine. Run executes them one at a
// time in FIFO order, each against its own store.Tx overlay, so registry
// code never sees interleaved storage access.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	backend store.Backend
	auth    registry.Authenticator
	clock   *Clock
	ledger  LedgerClock
	txGen   TxIDGenerator
	sinks   []EventSink
	queue   *callQueue
	tracer  trace.Tracer

	// maxAttempts bounds how often a call runs when its commit conflicts.
	maxAttempts int
}

// Result is the outcome of a committed call.
type Result struct {
	TxID   string
	At     uint64
	Value  any
	Events []store.EventRecord
}

// call is a queued Submit.
type call struct {
	ctx   context.Context
	op    Operation
	name  string
	reply chan outcome
}

type outcome struct {
	result Result
	err    error
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithClock sets the event seq clock, e.g. from ResumeClock.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithLedgerClock sets the source of transaction time.
func WithLedgerClock(c LedgerClock) EngineOption {
	return func(e *Engine) { e.ledger = c }
}

// WithTxIDGenerator sets how transactions are named.
func WithTxIDGenerator(g TxIDGenerator) EngineOption {
	return func(e *Engine) { e.txGen = g }
}

// WithSinks appends event sinks. Sinks run in the order given.
func WithSinks(sinks ...EventSink) EngineOption {
	return func(e *Engine) { e.sinks = append(e.sinks, sinks...) }
}

// WithAuthenticator replaces the context-principal authenticator.
func WithAuthenticator(a registry.Authenticator) EngineOption {
	return func(e *Engine) { e.auth = a }
}

// WithMaxAttempts sets how many times a call is run before a commit
// conflict is reported to the caller. Values below 1 mean 1.
func WithMaxAttempts(n int) EngineOption {
	return func(e *Engine) { e.maxAttempts = max(n, 1) }
}

// WithTracer sets the tracer used for per-transaction spans.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = t }
}

// New creates an Engine over backend. Defaults: seq clock at 0, wall-clock
// ledger time, UUIDv7 transaction ids, context-principal authentication,
// the global OpenTelemetry tracer and no sinks.
func New(backend store.Backend, opts ...EngineOption) *Engine {
	e := &Engine{
		backend: backend,
		auth:    auth.Authenticator{},
		clock:   NewClock(),
		ledger:  NewWallClock(nil),
		txGen:   UUIDv7Generator{},
		queue:   newCallQueue(),
		tracer:  otel.Tracer(tracerName),

		maxAttempts: DefaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Clock returns the event seq clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Submit queues op and waits for its outcome.
//
// ctx supplies the caller's principal and bounds the wait. A call whose ctx
// ends while still queued is skipped; once execution starts it runs to
// completion.
func (e *Engine) Submit(ctx context.Context, op Operation) (Result, error) {
	c := &call{
		ctx:   ctx,
		op:    op,
		name:  op.Name(),
		reply: make(chan outcome, 1),
	}
	if !e.queue.Enqueue(c) {
		return Result{}, ErrStopped
	}

	select {
	case out := <-c.reply:
		return out.result, out.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Run starts the single-writer loop.
// Blocks until ctx is cancelled or Stop() is called and the queue drains.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "seq", e.clock.Current())

	for {
		c, ok := e.queue.TryDequeue()
		if ok {
			e.dispatch(c)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			for _, c := range e.queue.Drain() {
				c.reply <- outcome{err: ErrStopped}
			}
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes with the queue, so this fires
			// immediately once stopped.
			if e.queue.Closed() && e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop stops accepting calls. Run returns after finishing queued calls.
func (e *Engine) Stop() {
	e.queue.Close()
}

// dispatch executes one call and replies.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) dispatch(c *call) {
	if err := c.ctx.Err(); err != nil {
		slog.Debug("skipping abandoned call", "call", c.name, "error", err)
		c.reply <- outcome{err: err}
		return
	}
	result, err := e.execute(context.WithoutCancel(c.ctx), c)
	c.reply <- outcome{result: result, err: err}
}

func (e *Engine) execute(ctx context.Context, c *call) (Result, error) {
	txID := e.txGen.Generate()
	now := e.ledger.Now()

	ctx, span := e.tracer.Start(ctx, "certledger."+c.name,
		trace.WithAttributes(
			attribute.String("certledger.call", c.name),
			attribute.String("certledger.tx_id", txID),
		),
	)
	defer span.End()

	slog.Debug("executing call", "call", c.name, "tx_id", txID, "at", now)

	var (
		value   any
		emitted []registry.Event
		err     error
	)
	for attempt := 1; ; attempt++ {
		value, emitted, err = e.attempt(ctx, c, txID, now)
		if !errors.Is(err, store.ErrConflict) || attempt == e.maxAttempts {
			break
		}
		slog.Info("commit conflict, retrying", "call", c.name, "tx_id", txID, "attempt", attempt)
	}
	if err != nil {
		e.recordFailure(span, c.name, txID, err)
		return Result{TxID: txID, At: now}, err
	}

	records := e.publish(ctx, txID, emitted)
	span.SetAttributes(attribute.Int("certledger.events", len(records)))
	slog.Debug("call committed", "call", c.name, "tx_id", txID, "events", len(records))

	return Result{TxID: txID, At: now, Value: value, Events: records}, nil
}

// attempt runs the operation against a fresh overlay and commits it. A
// commit that loses a race with another writer fails with store.ErrConflict
// and leaves nothing behind, so the call can be attempted again.
func (e *Engine) attempt(ctx context.Context, c *call, txID string, now uint64) (any, []registry.Event, error) {
	tx := store.Begin(e.backend, txID)
	var emitted []registry.Event
	reg, err := registry.New(registry.Env{
		Records: tx,
		Auth:    e.auth,
		Now:     now,
		Events:  registry.EmitterFunc(func(ev registry.Event) { emitted = append(emitted, ev) }),
	})
	if err != nil {
		return nil, nil, err
	}

	value, err := c.op.Apply(ctx, reg)
	if err != nil {
		tx.Discard()
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit %s: %w", c.name, err)
	}
	return value, emitted, nil
}

// publish stamps committed events and hands them to every sink.
func (e *Engine) publish(ctx context.Context, txID string, events []registry.Event) []store.EventRecord {
	records := make([]store.EventRecord, 0, len(events))
	for _, ev := range events {
		rec, err := store.NewEventRecord(string(ev.Kind()), e.clock.Next(), txID, ev)
		if err != nil {
			slog.Error("event encoding failed", "kind", ev.Kind(), "tx_id", txID, "error", err)
			continue
		}
		records = append(records, rec)

		for _, sink := range e.sinks {
			if err := sink.Publish(ctx, rec); err != nil {
				slog.Error("event sink failed",
					"kind", rec.Kind,
					"seq", rec.Seq,
					"tx_id", txID,
					"error", err,
				)
			}
		}
	}
	return records
}

func (e *Engine) recordFailure(span trace.Span, name, txID string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	code := registry.CodeOf(err)
	if code != "" {
		span.SetAttributes(attribute.String("certledger.error_code", string(code)))
	}

	switch {
	case code == "":
		slog.Error("call failed", "call", name, "tx_id", txID, "error", err)
	case registry.IsFatal(err):
		slog.Error("call aborted", "call", name, "tx_id", txID, "code", code, "error", err)
	default:
		slog.Info("call rejected", "call", name, "tx_id", txID, "code", code, "error", err)
	}
}
