package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/certledger/internal/store"
)

// EventSink receives events after their transaction commits. Publishing is
// fire-and-forget: a sink error is logged and never undoes the commit.
type EventSink interface {
	Publish(ctx context.Context, ev store.EventRecord) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, ev store.EventRecord) error

func (f EventSinkFunc) Publish(ctx context.Context, ev store.EventRecord) error {
	return f(ctx, ev)
}

// LogSink writes one structured log line per event.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ctx context.Context, ev store.EventRecord) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "event published",
		"kind", ev.Kind,
		"seq", ev.Seq,
		"tx_id", ev.TxID,
		"id", ev.ID,
		"payload", string(ev.Payload),
	)
	return nil
}

// LogEventSink appends events to a store's event log.
func LogEventSink(log store.EventLog) EventSink {
	return EventSinkFunc(func(ctx context.Context, ev store.EventRecord) error {
		return log.AppendEvent(ctx, ev)
	})
}

// ResumeClock returns a Clock that continues after the last seq in log.
func ResumeClock(ctx context.Context, log store.EventLog) (*Clock, error) {
	last, err := log.LastEventSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume clock: %w", err)
	}
	return NewClockAt(last), nil
}
