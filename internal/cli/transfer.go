package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/certledger/internal/engine"
)

// NewTransferCommand creates the transfer command group.
func NewTransferCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Negotiate and inspect ownership transfers",
		Long: `Negotiate and inspect certificate ownership transfers.

A transfer moves Pending -> Accepted -> Completed, or ends early as
Rejected (by the recipient) or Cancelled (by the sender).`,
	}

	cmd.AddCommand(newTransferInitiateCommand(rootOpts))
	cmd.AddCommand(newTransferDecisionCommand(rootOpts, "accept", "Accept a pending transfer (recipient only)",
		func(id, who string) engine.Operation { return engine.AcceptTransfer{TransferID: id, Recipient: who} }))
	cmd.AddCommand(newTransferDecisionCommand(rootOpts, "reject", "Reject a pending transfer (recipient only)",
		func(id, who string) engine.Operation { return engine.RejectTransfer{TransferID: id, Recipient: who} }))
	cmd.AddCommand(newTransferDecisionCommand(rootOpts, "cancel", "Cancel a pending transfer (sender only)",
		func(id, who string) engine.Operation { return engine.CancelTransfer{TransferID: id, Sender: who} }))
	cmd.AddCommand(newTransferDecisionCommand(rootOpts, "complete", "Complete an accepted transfer",
		func(id, who string) engine.Operation { return engine.CompleteTransfer{TransferID: id, Executor: who} }))
	cmd.AddCommand(newTransferShowCommand(rootOpts))
	cmd.AddCommand(newTransferPendingCommand(rootOpts))
	cmd.AddCommand(newTransferHistoryCommand(rootOpts))
	cmd.AddCommand(newTransferCountCommand(rootOpts))

	return cmd
}

func newTransferInitiateCommand(opts *RootOptions) *cobra.Command {
	var (
		op   engine.InitiateTransfer
		memo string
	)

	cmd := &cobra.Command{
		Use:   "initiate <certificate-id>",
		Short: "Offer a certificate to another identity",
		Long: `Offer a certificate to another identity. The sender defaults to --as.
A UUIDv7 transfer id is generated when --id is omitted.

Example:
  certledger --as spiffe://example.org/alice transfer initiate c-1 \
    --to spiffe://example.org/bob --fee 10 --memo "sale"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op.CertificateID = args[0]
			if op.From == "" {
				op.From = opts.As
			}
			if op.TransferID == "" {
				op.TransferID = engine.UUIDv7Generator{}.Generate()
			}
			if cmd.Flags().Changed("memo") {
				op.Memo = &memo
			}
			return runCall(cmd, opts, op)
		},
	}

	cmd.Flags().StringVar(&op.TransferID, "id", "", "transfer id (default: new UUIDv7)")
	cmd.Flags().StringVar(&op.From, "from", "", "current owner (default --as)")
	cmd.Flags().StringVar(&op.To, "to", "", "recipient identity (required)")
	cmd.Flags().BoolVar(&op.RequireRevocation, "require-revocation", false, "revoke the certificate when the transfer completes")
	cmd.Flags().Uint64Var(&op.Fee, "fee", 0, "recorded fee")
	cmd.Flags().StringVar(&memo, "memo", "", "free-form note")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// newTransferDecisionCommand builds accept, reject, cancel and complete,
// which all act on one transfer on behalf of --as.
func newTransferDecisionCommand(opts *RootOptions, use, short string, build func(id, who string) engine.Operation) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <transfer-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, opts, build(args[0], opts.As))
		},
	}
}

func newTransferShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <transfer-id>",
		Short: "Show a transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, opts, engine.GetTransfer{TransferID: args[0]})
		},
	}
}

func newTransferPendingCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending [identity]",
		Short: "List transfers awaiting an identity's decision (default --as)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := opts.As
			if len(args) == 1 {
				identity = args[0]
			}
			return runCall(cmd, opts, engine.GetPendingTransfers{Identity: identity})
		},
	}
}

func newTransferHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <certificate-id>",
		Short: "List completed transfers of a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, opts, engine.GetTransferHistory{CertificateID: args[0]})
		},
	}
}

func newTransferCountCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show the number of transfers ever initiated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, opts, engine.GetTransferCount{})
		},
	}
}
