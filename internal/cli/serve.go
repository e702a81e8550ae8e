package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/certledger/internal/auth"
	"github.com/roach88/certledger/internal/httpapi"
	"github.com/roach88/certledger/internal/store"
	"github.com/roach88/certledger/internal/telemetry"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string

	// Listener allows serving on a pre-bound listener (for testing).
	// If nil, the server listens on the configured address.
	Listener net.Listener
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(&ServeOptions{RootOptions: rootOpts})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the registry engine and HTTP API",
		Long: `Start the certledger engine and serve its calls over HTTP.

The store named in the config is opened (a SQLite database is created if
missing), the event seq resumes from the event log, and the single-writer
loop runs until SIGINT or SIGTERM.

Callers authenticate with SPIFFE mTLS via the Workload API unless
server.insecure_identity_header is set.

Example:
  certledger serve --config ./certledger.yaml
  certledger serve --listen 127.0.0.1:8080 --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides server.listen)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg := opts.Config
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}

	// Setup signal handling for graceful shutdown.
	// Use command's context if available (for testing).
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up telemetry", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.WithoutCancel(ctx)); err != nil {
			slog.Error("error shutting down telemetry", "error", err)
		}
	}()

	slog.Info("opening store", "backend", cfg.Store.Backend)
	st, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	eng, err := newEngine(ctx, cfg, st, opts.TxIDs)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start engine", err)
	}

	resolver, tlsConfig, closeTLS, err := identitySource(ctx, cfg.Server.InsecureIdentityHeader, cfg.Server.WorkloadSocket, cfg.Server.TrustDomain)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up caller identity", err)
	}
	defer closeTLS()

	srv := httpapi.NewServer(cfg.Server.Listen, httpapi.NewRouter(eng, resolver), tlsConfig, cfg.Server.ShutdownTimeout)

	fmt.Fprintf(cmd.OutOrStdout(), "certledger serving on %s\n", cfg.Server.Listen)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := eng.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer eng.Stop()
		if opts.Listener != nil {
			return srv.Serve(gctx, opts.Listener)
		}
		return srv.ListenAndServe(gctx)
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("certledger stopped gracefully")
	return nil
}

// identitySource picks how callers are identified: the development header,
// or SPIFFE mTLS peers verified against the Workload API.
func identitySource(ctx context.Context, insecureHeader bool, socket, trustDomain string) (auth.Resolver, *tls.Config, func(), error) {
	if insecureHeader {
		slog.Warn("serving plain HTTP with header identities; do not use in production",
			"header", auth.IdentityHeader)
		return auth.HeaderResolver(), nil, func() {}, nil
	}

	src, err := auth.NewServerTLS(ctx, socket, trustDomain)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if err := src.Close(); err != nil {
			slog.Error("error closing X509 source", "error", err)
		}
	}
	return auth.PeerResolver(), src.Config, closeFn, nil
}
