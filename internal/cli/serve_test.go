package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/certledger/internal/auth"
	"github.com/roach88/certledger/internal/config"
	"github.com/roach88/certledger/internal/engine"
	"github.com/roach88/certledger/internal/httpapi"
	"github.com/roach88/certledger/internal/store"
)

func serveConfig() config.Config {
	cfg := config.Default()
	cfg.Store.Backend = store.BackendMemory
	cfg.Server.InsecureIdentityHeader = true
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Clock.Fixed = 500
	return cfg
}

func postCall(t *testing.T, base, name, as, body string) (int, httpapi.Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, base+"/v1/calls/"+name, strings.NewReader(body))
	require.NoError(t, err)
	if as != "" {
		req.Header.Set(auth.IdentityHeader, as)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out httpapi.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestServeRoundTrip(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	opts := &ServeOptions{
		RootOptions: &RootOptions{
			Format: "text",
			Config: serveConfig(),
			TxIDs:  engine.NewFixedGenerator("tx-1", "tx-2", "tx-3"),
		},
		Listener: ln,
	}
	cmd := newServeCommand(opts)
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	status, resp := postCall(t, base, "issue_certificate", issuer,
		`{"id":"c-1","issuer":"`+issuer+`","owner":"`+alice+`","metadata_uri":"u"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "tx-1", resp.TxID)
	assert.Equal(t, alice, resp.Data.(map[string]any)["owner"])
	assert.Equal(t, float64(500), resp.Data.(map[string]any)["issued_at"])

	status, resp = postCall(t, base, "initiate_transfer", bob,
		`{"transfer_id":"t-1","certificate_id":"c-1","from":"`+bob+`","to":"`+alice+`"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "tx-2", resp.TxID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
	assert.Contains(t, stdout.String(), "certledger serving on")
}

func TestServeStoreError(t *testing.T) {
	cfg := serveConfig()
	cfg.Store.Backend = store.BackendRedis
	cfg.Store.Redis.Addr = "127.0.0.1:1"

	cmd := newServeCommand(&ServeOptions{RootOptions: &RootOptions{Config: cfg}})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open store")
}

func TestIdentitySourceHeader(t *testing.T) {
	res, tlsConfig, closeFn, err := identitySource(context.Background(), true, "", "")
	require.NoError(t, err)
	defer closeFn()
	assert.Nil(t, tlsConfig)

	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	req.Header.Set(auth.IdentityHeader, alice)
	id, err := res.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, alice, id)
}
