package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/timeax/servicegraph/internal/model"
)

// TraceSnapshot captures the observable outcome of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	History      []string     `json:"history"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any, dropping
// empty event fields so golden files only show what happened.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"seq":  event.Seq,
		}
		if event.Command != "" {
			eventMap["command"] = event.Command
		}
		if event.Reason != "" {
			eventMap["reason"] = event.Reason
		}
		if event.Code != "" {
			eventMap["code"] = event.Code
		}
		if event.Node != "" {
			eventMap["node"] = event.Node
		}
		traceList[i] = eventMap
	}

	history := make([]any, len(s.History))
	for i, label := range s.History {
		history[i] = label
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"history":       history,
	}
}

// Canonical renders the snapshot as canonical JSON.
func (s *TraceSnapshot) Canonical() ([]byte, error) {
	return model.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		History:      result.History,
	}
	data, err := snapshot.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
