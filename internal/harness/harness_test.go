package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)

			for _, ev := range result.Events {
				assert.NoError(t, ev.Verify())
			}
		})
	}
}

func TestRun_IsDeterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/happy_path.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(first)
	require.NoError(t, err)
	b, err := Snapshot(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	require.Equal(t, len(first.Events), len(second.Events))
	for i := range first.Events {
		assert.Equal(t, first.Events[i].ID, second.Events[i].ID)
	}
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong_expectation
description: "Issuing twice is expected to succeed, which it does not"
flow:
  - call: issue_certificate
    as: spiffe://example.org/issuer
    args: { id: C1, issuer: spiffe://example.org/issuer, owner: spiffe://example.org/owner, metadata_uri: x }
  - call: issue_certificate
    as: spiffe://example.org/issuer
    args: { id: C1, issuer: spiffe://example.org/issuer, owner: spiffe://example.org/owner, metadata_uri: x }
assertions:
  - type: event_count
    kind: certificate_issued
    count: 1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "flow[1] issue_certificate")
	assert.Contains(t, result.Errors[0], "ALREADY_EXISTS")
}

func TestRun_WrongCodeAndFatal(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong_code
description: "Expectation names the wrong code and fatal flag"
flow:
  - call: get_certificate
    args: { id: C404 }
    expect:
      status: error
      code: TRANSFER_NOT_FOUND
      fatal: false
assertions:
  - type: event_count
    kind: certificate_issued
    count: 0
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 2)
}

func TestRun_SetupFailureIsError(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad_setup
description: "Setup issues without a principal"
setup:
  - call: issue_certificate
    args: { id: C1, issuer: spiffe://example.org/issuer, owner: spiffe://example.org/owner, metadata_uri: x }
flow:
  - call: get_transfer_count
    args: {}
assertions:
  - type: event_count
    kind: certificate_issued
    count: 0
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNAUTHENTICATED")
}

func TestRun_BadArgsIsError(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad_args
description: "Unknown request field"
flow:
  - call: get_certificate
    args: { certificate: C1 }
assertions:
  - type: event_count
    kind: certificate_issued
    count: 0
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow.0")
}
