package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/certledger/internal/store"
)

// EventsOptions holds flags for the events commands.
type EventsOptions struct {
	*RootOptions
	After int64
	Limit int
	Kind  string // optional - filter to one event kind
	TxID  string // optional - filter to one transaction
}

// EventsListResult holds the events list output.
type EventsListResult struct {
	Events []store.EventRecord `json:"events"`
	Stats  EventStats          `json:"stats"`
}

// EventStats holds summary statistics for listed events.
type EventStats struct {
	Total        int            `json:"total"`
	ByKind       map[string]int `json:"by_kind"`
	Transactions int            `json:"transactions"`
	LastSeq      int64          `json:"last_seq"`
}

// VerifyResult holds the events verify output.
type VerifyResult struct {
	Checked  int             `json:"checked"`
	LastSeq  int64           `json:"last_seq"`
	Problems []VerifyProblem `json:"problems"`
	Valid    bool            `json:"valid"`
}

// VerifyProblem is one event that failed verification.
type VerifyProblem struct {
	Seq     int64  `json:"seq"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// NewEventsCommand creates the events command group.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the published event log",
	}

	cmd.AddCommand(newEventsListCommand(opts))
	cmd.AddCommand(newEventsVerifyCommand(opts))

	return cmd
}

func newEventsListCommand(opts *EventsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events in seq order",
		Long: `List published events in seq order.

Examples:
  certledger events list
  certledger events list --after 40 --limit 10
  certledger events list --kind transfer_completed --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsList(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.After, "after", 0, "only events with seq greater than this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum events to read (0 = all)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one event kind")
	cmd.Flags().StringVar(&opts.TxID, "tx", "", "filter to one transaction id")

	return cmd
}

func newEventsVerifyCommand(opts *EventsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Recompute every event id and check seq order",
		Long: `Recompute the content address of every event and check that seqs
strictly increase.

Exit codes:
  0 - Every event verifies
  1 - One or more events failed verification
  2 - Command error (store unreachable, etc.)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsVerify(opts, cmd)
		},
	}
}

// readEvents opens the configured store and reads its event log.
func readEvents(ctx context.Context, opts *RootOptions, after int64, limit int) ([]store.EventRecord, error) {
	st, err := store.Open(ctx, opts.Config.StoreOptions())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	events, err := st.ReadEvents(ctx, after, limit)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read events", err)
	}
	return events, nil
}

func runEventsList(opts *EventsOptions, cmd *cobra.Command) error {
	events, err := readEvents(commandContext(cmd), opts.RootOptions, opts.After, opts.Limit)
	if err != nil {
		return err
	}

	filtered := make([]store.EventRecord, 0, len(events))
	for _, ev := range events {
		if opts.Kind != "" && ev.Kind != opts.Kind {
			continue
		}
		if opts.TxID != "" && ev.TxID != opts.TxID {
			continue
		}
		filtered = append(filtered, ev)
	}

	result := EventsListResult{Events: filtered, Stats: eventStats(filtered)}
	if opts.Format == "json" {
		return writeIndentedJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	return outputEventsText(cmd.OutOrStdout(), result, opts.Verbose)
}

func eventStats(events []store.EventRecord) EventStats {
	stats := EventStats{Total: len(events), ByKind: map[string]int{}}
	txs := map[string]struct{}{}
	for _, ev := range events {
		stats.ByKind[ev.Kind]++
		txs[ev.TxID] = struct{}{}
		stats.LastSeq = max(stats.LastSeq, ev.Seq)
	}
	stats.Transactions = len(txs)
	return stats
}

func runEventsVerify(opts *EventsOptions, cmd *cobra.Command) error {
	events, err := readEvents(commandContext(cmd), opts.RootOptions, 0, 0)
	if err != nil {
		return err
	}

	result := verifyEvents(events)

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "E_EVENT_LOG_INVALID",
				Message: fmt.Sprintf("%d event(s) failed verification", len(result.Problems)),
			}
		}
		if err := writeIndentedJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, p := range result.Problems {
			fmt.Fprintf(w, "\u2717 [%d] %s: %s\n", p.Seq, truncateID(p.ID), p.Message)
		}
		if result.Valid {
			fmt.Fprintf(w, "\u2713 %d event(s) verified, last seq %d\n", result.Checked, result.LastSeq)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d event(s) failed verification", len(result.Problems)))
	}
	return nil
}

// verifyEvents checks content ids and strict seq order.
func verifyEvents(events []store.EventRecord) VerifyResult {
	result := VerifyResult{Checked: len(events), Problems: []VerifyProblem{}}
	for i, ev := range events {
		if err := ev.Verify(); err != nil {
			result.Problems = append(result.Problems, VerifyProblem{Seq: ev.Seq, ID: ev.ID, Message: err.Error()})
		}
		if i > 0 && ev.Seq <= events[i-1].Seq {
			result.Problems = append(result.Problems, VerifyProblem{
				Seq:     ev.Seq,
				ID:      ev.ID,
				Message: fmt.Sprintf("seq %d does not follow %d", ev.Seq, events[i-1].Seq),
			})
		}
		result.LastSeq = max(result.LastSeq, ev.Seq)
	}
	result.Valid = len(result.Problems) == 0
	return result
}

// outputEventsText outputs the event list as text.
func outputEventsText(w io.Writer, result EventsListResult, verbose bool) error {
	fmt.Fprintln(w, "=== Events ===")
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Events {
		fmt.Fprintf(w, "  [%d] %s tx=%s\n", ev.Seq, ev.Kind, truncateID(ev.TxID))
		if verbose {
			fmt.Fprintf(w, "       Payload: %s\n", formatPayload(ev.Payload))
			fmt.Fprintf(w, "       ID: %s\n", truncateID(ev.ID))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.Total)
	fmt.Fprintf(w, "  Transactions: %d\n", result.Stats.Transactions)
	kinds := make([]string, 0, len(result.Stats.ByKind))
	for k := range result.Stats.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-22s %d\n", k+":", result.Stats.ByKind[k])
	}
	return nil
}

// formatPayload renders a JSON object as sorted key=value pairs.
func formatPayload(payload json.RawMessage) string {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return string(payload)
	}
	return formatValue(v)
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%s", k, formatValue(val[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

func writeIndentedJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
