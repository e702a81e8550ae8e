package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/certledger/internal/engine"
)

// NewCertCommand creates the cert command group.
func NewCertCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Issue, revoke and inspect certificates",
	}

	cmd.AddCommand(newCertIssueCommand(rootOpts))
	cmd.AddCommand(newCertRevokeCommand(rootOpts))
	cmd.AddCommand(newCertShowCommand(rootOpts))
	cmd.AddCommand(newCertRevokedCommand(rootOpts))

	return cmd
}

func newCertIssueCommand(opts *RootOptions) *cobra.Command {
	var op engine.IssueCertificate

	cmd := &cobra.Command{
		Use:   "issue <certificate-id>",
		Short: "Issue a new certificate",
		Long: `Issue a new certificate. The issuer defaults to --as and must match
the caller.

Example:
  certledger --as spiffe://example.org/issuer cert issue c-1 \
    --owner spiffe://example.org/alice --metadata-uri https://example.org/c-1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op.ID = args[0]
			if op.Issuer == "" {
				op.Issuer = opts.As
			}
			return runCall(cmd, opts, op)
		},
	}

	cmd.Flags().StringVar(&op.Issuer, "issuer", "", "issuing identity (default --as)")
	cmd.Flags().StringVar(&op.Owner, "owner", "", "initial owner identity (required)")
	cmd.Flags().StringVar(&op.MetadataURI, "metadata-uri", "", "certificate metadata URI (required)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("metadata-uri")

	return cmd
}

func newCertRevokeCommand(opts *RootOptions) *cobra.Command {
	var op engine.RevokeCertificate

	cmd := &cobra.Command{
		Use:   "revoke <certificate-id>",
		Short: "Revoke a certificate (issuer only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op.ID = args[0]
			return runCall(cmd, opts, op)
		},
	}

	cmd.Flags().StringVar(&op.Reason, "reason", "", "revocation reason")

	return cmd
}

func newCertShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <certificate-id>",
		Short: "Show a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, opts, engine.GetCertificate{ID: args[0]})
		},
	}
}

func newCertRevokedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revoked <certificate-id>",
		Short: "Report whether a certificate is revoked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, opts, engine.IsRevoked{ID: args[0]})
		},
	}
}
