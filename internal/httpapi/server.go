package httpapi

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/certledger/internal/auth"
	"github.com/roach88/certledger/internal/engine"
)

// maxBodyBytes bounds a call's request body.
const maxBodyBytes = 1 << 20

// Submitter runs one operation as a transaction. *engine.Engine implements it.
type Submitter interface {
	Submit(ctx context.Context, op engine.Operation) (engine.Result, error)
}

// NewRouter builds the HTTP handler for sub. Every request passes through
// res to attach the caller identity.
func NewRouter(sub Submitter, res auth.Resolver) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			slog.Debug("write error", "error", err)
		}
	})

	r.Route("/v1/calls", func(r chi.Router) {
		r.Use(auth.Middleware(res))
		r.Get("/", listCalls)
		r.Post("/{name}", callHandler(sub))
	})

	return r
}

func listCalls(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{Status: "ok", Data: engine.CallNames()})
}

func callHandler(sub Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, "", &engine.RequestError{Call: name, Err: err})
			return
		}

		op, err := engine.Decode(name, body)
		if err != nil {
			writeError(w, "", err)
			return
		}

		res, err := sub.Submit(r.Context(), op)
		if err != nil {
			writeError(w, res.TxID, err)
			return
		}
		writeJSON(w, http.StatusOK, Response{Status: "ok", Data: res.Value, TxID: res.TxID})
	}
}

// Server serves a handler until its context ends.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

// NewServer prepares a server on addr. A nil tlsConfig serves plain HTTP.
func NewServer(addr string, handler http.Handler, tlsConfig *tls.Config, shutdownTimeout time.Duration) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			TLSConfig:         tlsConfig,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve accepts on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.srv.TLSConfig != nil {
		ln = tls.NewListener(ln, s.srv.TLSConfig)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String(), "tls", s.srv.TLSConfig != nil)
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	slog.Info("http server shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// ListenAndServe listens on the server's address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}
