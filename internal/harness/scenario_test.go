package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// ============================================================================
// Loading
// ============================================================================

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "test.yaml", `
name: test_scenario
description: "Test scenario for validation"
history_limit: 5
steps:
  - op: addTag
    args:
      id: "t:new"
      label: New
assertions:
  - type: trace_contains
    command: addTag
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, 5, scenario.HistoryLimit)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, OpAddTag, scenario.Steps[0].Op)
	assert.Equal(t, "t:new", scenario.Steps[0].Args["id"])
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_ResolvesFixturePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.json"), []byte(`{"tags":[],"fields":[]}`), 0644))
	path := writeScenario(t, dir, "s.yaml", `
name: fixtures
description: "relative fixture paths"
document: doc.json
steps:
  - op: validate
assertions:
  - type: valid
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "doc.json"), scenario.Document)
	assert.Empty(t, scenario.Capabilities)
}

func TestLoadScenario_MissingFixture(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "s.yaml", `
name: fixtures
description: "missing document"
document: missing.json
steps:
  - op: validate
assertions:
  - type: valid
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

// ============================================================================
// Validation
// ============================================================================

func TestParseScenario_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nsteps: [{op: undo}]\nassertions: [{type: valid}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nsteps: [{op: undo}]\nassertions: [{type: valid}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing steps",
			content: "name: n\ndescription: d\nassertions: [{type: valid}]\n",
			wantErr: "steps list is required",
		},
		{
			name:    "missing assertions",
			content: "name: n\ndescription: d\nsteps: [{op: undo}]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "negative limit",
			content: "name: n\ndescription: d\nhistory_limit: -1\nsteps: [{op: undo}]\nassertions: [{type: valid}]\n",
			wantErr: "history_limit must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_StepValidation(t *testing.T) {
	tests := []struct {
		name    string
		steps   string
		wantErr string
	}{
		{"missing op", "[{node: x}]", "steps[0]: op is required"},
		{"unknown op", "[{op: explode}]", `unknown op "explode"`},
		{"node required", "[{op: remove}]", "node is required for remove"},
		{"connect args", "[{op: connect}]", "args is required for connect"},
		{"transact label", "[{op: transact, steps: [{op: undo}]}]", "label is required for transact"},
		{"nested invalid", "[{op: transact, label: x, steps: [{op: remove}]}]", "steps[0].steps[0]: node is required"},
		{"fail outside transact", "[{op: addTag, fail: true}]", "only valid for transact"},
		{"moved outside undo", "[{op: addTag, moved: true}]", "moved is only valid"},
		{"undo with node", "[{op: undo, node: x}]", "undo takes no node or args"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "name: n\ndescription: d\nsteps: " + tt.steps + "\nassertions: [{type: valid}]\n"
			_, err := ParseScenario([]byte(content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_AssertionValidation(t *testing.T) {
	tests := []struct {
		name      string
		assertion string
		wantErr   string
	}{
		{"missing type", "{command: x}", "type is required"},
		{"unknown type", "{type: bogus}", `unknown assertion type "bogus"`},
		{"contains filter", "{type: trace_contains}", "one of event, command or code is required for trace_contains"},
		{"order commands", "{type: trace_order}", "commands list is required"},
		{"count filter", "{type: trace_count, count: 1}", "required for trace_count"},
		{"count negative", "{type: trace_count, command: x, count: -1}", "count must be non-negative"},
		{"final node", "{type: final_state, expect: {label: x}}", "node is required for final_state"},
		{"final expect", "{type: final_state, node: x}", "expect is required for final_state"},
		{"absent node", "{type: node_absent}", "node is required for node_absent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "name: n\ndescription: d\nsteps: [{op: undo}]\nassertions: [" + tt.assertion + "]\n"
			_, err := ParseScenario([]byte(content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_TraceCountZeroAllowed(t *testing.T) {
	content := `
name: n
description: d
steps: [{op: undo}]
assertions:
  - type: trace_count
    event: editor:error
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.NoError(t, err)
}

func TestParseScenario_UnknownFieldsRejected(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"top level typo", "name: n\ndescription: d\nstep: []\nsteps: [{op: undo}]\nassertions: [{type: valid}]\n"},
		{"step typo", "name: n\ndescription: d\nsteps: [{op: undo, mvoed: true}]\nassertions: [{type: valid}]\n"},
		{"assertion typo", "name: n\ndescription: d\nsteps: [{op: undo}]\nassertions: [{type: valid, lables: []}]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to parse YAML")
		})
	}
}

func TestParseScenario_MalformedYAML(t *testing.T) {
	_, err := ParseScenario([]byte("name: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_NestedTransaction(t *testing.T) {
	content := `
name: nested
description: d
steps:
  - op: transact
    label: outer
    fail: true
    expect_error: ABORTED
    steps:
      - op: addTag
        args: {label: A}
      - op: transact
        label: inner
        steps:
          - op: addTag
            args: {label: B}
assertions:
  - type: history
`
	scenario, err := ParseScenario([]byte(content))
	require.NoError(t, err)

	outer := scenario.Steps[0]
	assert.True(t, outer.Fail)
	assert.Equal(t, CodeAborted, outer.ExpectError)
	require.Len(t, outer.Steps, 2)
	assert.Equal(t, "inner", outer.Steps[1].Label)
	assert.Len(t, outer.Steps[1].Steps, 1)
}

func TestAssertionConstants(t *testing.T) {
	assert.Equal(t, "trace_contains", AssertTraceContains)
	assert.Equal(t, "trace_order", AssertTraceOrder)
	assert.Equal(t, "trace_count", AssertTraceCount)
	assert.Equal(t, "final_state", AssertFinalState)
	assert.Equal(t, "node_absent", AssertNodeAbsent)
	assert.Equal(t, "history", AssertHistory)
	assert.Equal(t, "valid", AssertValid)
}

func TestLoadExampleScenarios(t *testing.T) {
	paths, err := FindScenarios([]string{"testdata/scenarios"}, "")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			require.NoError(t, err)
		})
	}
}
