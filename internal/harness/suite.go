package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SuiteResult aggregates scenario runs.
type SuiteResult struct {
	Total    int            `json:"total"`
	Passed   int            `json:"passed"`
	Failed   int            `json:"failed"`
	Failures []SuiteFailure `json:"failures,omitempty"`
}

// SuiteFailure is one scenario that did not pass.
type SuiteFailure struct {
	Path     string   `json:"path"`
	Scenario string   `json:"scenario,omitempty"`
	Errors   []string `json:"errors"`
}

// Discover expands paths into scenario files. Directories contribute every
// .yaml and .yml file directly inside them, sorted by name.
func Discover(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scenario path %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read scenario dir %s: %w", p, err)
		}
		var found []string
		for _, e := range entries {
			ext := filepath.Ext(e.Name())
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				found = append(found, filepath.Join(p, e.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// RunFiles loads and runs every scenario file. A file that cannot be loaded
// or executed counts as a failure.
func RunFiles(files []string) *SuiteResult {
	suite := &SuiteResult{}
	for _, path := range files {
		suite.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			suite.fail(path, "", err.Error())
			continue
		}

		result, err := Run(scenario)
		if err != nil {
			suite.fail(path, scenario.Name, err.Error())
			continue
		}
		if !result.Pass {
			suite.fail(path, scenario.Name, result.Errors...)
			continue
		}
		suite.Passed++
	}
	return suite
}

func (s *SuiteResult) fail(path, name string, errs ...string) {
	s.Failed++
	s.Failures = append(s.Failures, SuiteFailure{Path: path, Scenario: name, Errors: errs})
}
