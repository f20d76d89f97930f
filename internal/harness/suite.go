package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScenarioNotFoundError is returned when a requested scenario path doesn't exist.
type ScenarioNotFoundError struct {
	ScenarioPath string
	ResolvedPath string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf(
		"scenario path %q does not exist (resolved to: %s)",
		e.ScenarioPath,
		e.ResolvedPath,
	)
}

// FindScenarios expands paths into scenario files. Directories contribute
// every *.yaml and *.yml file directly inside them, sorted by name. Files
// are kept as given.
func FindScenarios(paths []string, baseDir string) ([]string, error) {
	var out []string
	for _, p := range paths {
		resolved := p
		if !filepath.IsAbs(resolved) && baseDir != "" {
			resolved = filepath.Join(baseDir, resolved)
		}

		info, err := os.Stat(resolved)
		if os.IsNotExist(err) {
			return nil, &ScenarioNotFoundError{ScenarioPath: p, ResolvedPath: resolved}
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", resolved, err)
		}

		if !info.IsDir() {
			out = append(out, resolved)
			continue
		}

		entries, err := os.ReadDir(resolved)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", resolved, err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if ext := strings.ToLower(filepath.Ext(e.Name())); ext == ".yaml" || ext == ".yml" {
				found = append(found, filepath.Join(resolved, e.Name()))
			}
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

// SuiteResult summarizes a batch of scenario runs.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a scenario that failed to load, run or pass.
type ScenarioFailure struct {
	Scenario     string `json:"scenario,omitempty"`
	ScenarioPath string `json:"scenario_path"`
	Error        string `json:"error"`
}

// RunSuite loads and runs every scenario file in paths.
//
// For each file:
// 1. Load the scenario
// 2. Run it via harness.Run
// 3. Collect and report results
//
// A scenario that fails never stops the suite.
func RunSuite(paths []string, opts ...Option) *SuiteResult {
	result := &SuiteResult{}

	for _, scenarioPath := range paths {
		result.TotalScenarios++

		scenario, err := LoadScenario(scenarioPath)
		if err != nil {
			result.fail("", scenarioPath, fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		runResult, err := Run(scenario, opts...)
		if err != nil {
			result.fail(scenario.Name, scenarioPath, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}

		if !runResult.Pass {
			result.fail(scenario.Name, scenarioPath,
				fmt.Sprintf("scenario assertions failed: %s", strings.Join(runResult.Errors, "; ")))
			continue
		}

		result.Passed++
	}

	return result
}

func (r *SuiteResult) fail(name, path, msg string) {
	r.Failed++
	r.Failures = append(r.Failures, ScenarioFailure{
		Scenario:     name,
		ScenarioPath: path,
		Error:        msg,
	})
}
