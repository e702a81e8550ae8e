package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/certledger/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern)
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file-or-dir>...",
		Short: "Run YAML scenarios against an in-memory registry",
		Long: `Run scenario files through a fresh in-memory registry each and check
their step expectations and assertions.

Directories contribute every .yaml and .yml file inside them.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  certledger scenario ./scenarios
  certledger scenario ./scenarios --filter "transfer-*"
  certledger scenario happy_path.yaml --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on the file name")

	return cmd
}

func runScenarios(opts *ScenarioOptions, paths []string, cmd *cobra.Command) error {
	files, err := harness.Discover(paths)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	files, err = filterScenarioFiles(files, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	suite := harness.RunFiles(files)

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: suite}
		if suite.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "E_SCENARIO_FAILED",
				Message: fmt.Sprintf("%d scenario(s) failed", suite.Failed),
			}
		}
		if err := writeIndentedJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
	} else {
		outputScenarioText(cmd, files, suite)
	}

	if suite.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", suite.Failed))
	}
	return nil
}

// filterScenarioFiles keeps files whose base name, without extension,
// matches the glob.
func filterScenarioFiles(files []string, filter string) ([]string, error) {
	if filter == "" {
		return files, nil
	}
	if _, err := filepath.Match(filter, ""); err != nil {
		return nil, fmt.Errorf("invalid filter pattern: %w", err)
	}
	var kept []string
	for _, f := range files {
		base := filepath.Base(f)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		if ok, _ := filepath.Match(filter, name); ok {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

func outputScenarioText(cmd *cobra.Command, files []string, suite *harness.SuiteResult) {
	w := cmd.OutOrStdout()

	if suite.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}

	failed := make(map[string]harness.SuiteFailure, len(suite.Failures))
	for _, f := range suite.Failures {
		failed[f.Path] = f
	}
	for _, path := range files {
		f, ok := failed[path]
		if !ok {
			fmt.Fprintf(w, "\u2713 %s\n", path)
			continue
		}
		label := path
		if f.Scenario != "" {
			label = fmt.Sprintf("%s (%s)", f.Scenario, path)
		}
		fmt.Fprintf(w, "\u2717 %s\n", label)
		for _, e := range f.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Scenario Summary: %d passed, %d failed, %d total\n", suite.Passed, suite.Failed, suite.Total)
	if suite.Failed == 0 {
		fmt.Fprintln(w, "\u2713 All scenarios passed")
	}
}
