package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// First run with -update to create golden files:
//
//	go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden_AddTagUndo(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/add_tag_undo.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestAssertGolden_FromResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/add_tag_undo.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	require.NoError(t, AssertGolden(t, "add_tag_undo", result))
}

func TestTraceSnapshot_Canonical(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "snap",
		Trace: []TraceEvent{
			{Seq: 1, Type: "editor:command", Command: "setService"},
			{Seq: 2, Type: "editor:error", Command: "setService", Code: "service_on_utility", Node: "f:qty::o:2"},
		},
		History: []string{"setService"},
	}

	data, err := snapshot.Canonical()
	require.NoError(t, err)

	want := `{"history":["setService"],"scenario_name":"snap","trace":[` +
		`{"command":"setService","seq":1,"type":"editor:command"},` +
		`{"code":"service_on_utility","command":"setService","node":"f:qty::o:2","seq":2,"type":"editor:error"}]}`
	assert.Equal(t, want, string(data))
}

func TestTraceSnapshot_EmptyHistory(t *testing.T) {
	snapshot := TraceSnapshot{ScenarioName: "empty"}

	data, err := snapshot.Canonical()
	require.NoError(t, err)
	assert.Equal(t, `{"history":[],"scenario_name":"empty","trace":[]}`, string(data))
}

func TestCanonicalJSONDeterminism(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/service_guard.yaml")
	require.NoError(t, err)

	var outputs []string
	for i := 0; i < 3; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)

		snapshot := TraceSnapshot{ScenarioName: scenario.Name, Trace: result.Trace, History: result.History}
		data, err := snapshot.Canonical()
		require.NoError(t, err)
		outputs = append(outputs, string(data))
	}

	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
}
