package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/certledger/internal/config"
	"github.com/roach88/certledger/internal/testutil"
)

const (
	issuer = "spiffe://example.org/issuer"
	alice  = "spiffe://example.org/alice"
	bob    = "spiffe://example.org/bob"
)

// cliEnv is a config file over a temporary SQLite store.
type cliEnv struct {
	t      *testing.T
	config string
	db     string
	txIDs  *testutil.SequentialIDs
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	db := filepath.Join(dir, "ledger.db")
	cfg := fmt.Sprintf(`store:
  backend: sqlite
  path: %s
server:
  insecure_identity_header: true
logging:
  level: warn
clock:
  fixed: 1000
`, db)
	path := filepath.Join(dir, "certledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	return &cliEnv{t: t, config: path, db: db, txIDs: testutil.NewSequentialIDs("tx")}
}

// run executes the root command with args and returns stdout.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	stdout := &bytes.Buffer{}
	cmd := newRootCommand(&RootOptions{TxIDs: e.txIDs})
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "output: %s", out)
	return out
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "certledger", cmd.Use)
	assert.Contains(t, cmd.Long, "certificate ownership")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"serve"},
		{"cert", "issue"},
		{"cert", "revoke"},
		{"cert", "show"},
		{"cert", "revoked"},
		{"transfer", "initiate"},
		{"transfer", "accept"},
		{"transfer", "reject"},
		{"transfer", "cancel"},
		{"transfer", "complete"},
		{"transfer", "show"},
		{"transfer", "pending"},
		{"transfer", "history"},
		{"transfer", "count"},
		{"events", "list"},
		{"events", "verify"},
		{"scenario"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(fmt.Sprint(path), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	asFlag := cmd.PersistentFlags().Lookup("as")
	require.NotNil(t, asFlag)
	assert.Equal(t, "", asFlag.DefValue)
}

func TestTransferInitiateFlags(t *testing.T) {
	cmd := NewRootCommand()
	initCmd, _, err := cmd.Find([]string{"transfer", "initiate"})
	require.NoError(t, err)

	for _, name := range []string{"id", "from", "to", "require-revocation", "fee", "memo"} {
		assert.NotNil(t, initCmd.Flags().Lookup(name), "flag %s", name)
	}
	assert.Equal(t, "0", initCmd.Flags().Lookup("fee").DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("--format", "invalid", "transfer", "count")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigErrorsAreCommandErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("store:\n  backend: floppy\n"), 0o644))

	for name, path := range map[string]string{
		"missing file":   filepath.Join(dir, "absent.yaml"),
		"schema problem": bad,
	} {
		t.Run(name, func(t *testing.T) {
			cmd := NewRootCommand()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs([]string{"--config", path, "transfer", "count"})

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to load config")
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestSetupLogging(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	buf := &bytes.Buffer{}
	require.NoError(t, setupLogging(buf, config.LoggingConfig{Level: "warn", Format: "json"}, false))
	slog.Info("hidden")
	slog.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	require.NoError(t, setupLogging(buf, config.LoggingConfig{Level: "warn", Format: "text"}, true))
	slog.Debug("debug line")
	assert.Contains(t, buf.String(), "msg=\"debug line\"")

	err := setupLogging(buf, config.LoggingConfig{Level: "loud", Format: "text"}, false)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
