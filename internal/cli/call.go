package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/certledger/internal/auth"
	"github.com/roach88/certledger/internal/config"
	"github.com/roach88/certledger/internal/engine"
	"github.com/roach88/certledger/internal/registry"
	"github.com/roach88/certledger/internal/store"
)

// CallOutput is the data of a successful call.
type CallOutput struct {
	Call   string              `json:"call"`
	At     uint64              `json:"at"`
	Value  any                 `json:"value"`
	Events []store.EventRecord `json:"events,omitempty"`
}

// newEngine builds an engine over st that resumes the event seq and persists
// every event to the store's log.
func newEngine(ctx context.Context, cfg config.Config, st store.Store, txIDs engine.TxIDGenerator) (*engine.Engine, error) {
	clock, err := engine.ResumeClock(ctx, st)
	if err != nil {
		return nil, err
	}

	var ledger engine.LedgerClock = engine.NewWallClock(nil)
	if cfg.Clock.Fixed != 0 {
		ledger = engine.FixedClock(cfg.Clock.Fixed)
	}
	if txIDs == nil {
		txIDs = engine.UUIDv7Generator{}
	}

	return engine.New(st,
		engine.WithClock(clock),
		engine.WithLedgerClock(ledger),
		engine.WithTxIDGenerator(txIDs),
		engine.WithSinks(engine.LogEventSink(st), engine.LogSink{}),
	), nil
}

// localCall runs one operation through an engine over the configured store,
// acting as --as.
func localCall(ctx context.Context, opts *RootOptions, op engine.Operation) (engine.Result, error) {
	st, err := store.Open(ctx, opts.Config.StoreOptions())
	if err != nil {
		return engine.Result{}, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	eng, err := newEngine(ctx, opts.Config, st, opts.TxIDs)
	if err != nil {
		return engine.Result{}, WrapExitError(ExitCommandError, "failed to start engine", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- eng.Run(runCtx) }()
	defer func() {
		eng.Stop()
		<-done
		cancel()
	}()

	if opts.As != "" {
		ctx = auth.WithPrincipal(ctx, opts.As)
	}
	return eng.Submit(ctx, op)
}

// runCall executes op locally and reports the outcome. A rejected call exits
// with ExitFailure; infrastructure failures exit with ExitCommandError.
func runCall(cmd *cobra.Command, opts *RootOptions, op engine.Operation) error {
	ctx := commandContext(cmd)
	f := opts.formatter(cmd)
	f.VerboseLog("calling %s as %q", op.Name(), opts.As)

	res, err := localCall(ctx, opts, op)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return reportCallError(f, op.Name(), res, err)
	}

	out := CallOutput{Call: op.Name(), At: res.At, Value: res.Value, Events: res.Events}
	if f.Format == "json" {
		return f.SuccessTx(res.TxID, out)
	}
	return f.Success(renderCall(res.TxID, out))
}

func reportCallError(f *OutputFormatter, call string, res engine.Result, err error) error {
	switch {
	case registry.IsDomain(err):
		details := map[string]any{"call": call, "fatal": registry.IsFatal(err)}
		if res.TxID != "" {
			details["tx_id"] = res.TxID
		}
		var regErr *registry.Error
		errors.As(err, &regErr)
		if outErr := f.ErrorTx(res.TxID, string(regErr.Code), regErr.Message, details); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, call+" rejected", err)
	case engine.IsRequestError(err):
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	default:
		return WrapExitError(ExitCommandError, call+" failed", err)
	}
}

// renderCall formats a call outcome for text output.
func renderCall(txID string, out CallOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s committed (tx %s, at %d)\n", out.Call, txID, out.At)

	value, err := json.MarshalIndent(out.Value, "", "  ")
	if err != nil {
		value = []byte(fmt.Sprint(out.Value))
	}
	b.Write(value)

	for _, ev := range out.Events {
		var payload bytes.Buffer
		if err := json.Compact(&payload, ev.Payload); err != nil {
			payload.Write(ev.Payload)
		}
		fmt.Fprintf(&b, "\nevent #%d %s %s", ev.Seq, ev.Kind, payload.String())
	}
	return b.String()
}
