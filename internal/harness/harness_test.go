package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeax/servicegraph/internal/testutil"
)

func boolPtr(b bool) *bool { return &b }

// ============================================================================
// Run
// ============================================================================

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Steps: []Step{
			{Op: OpAddTag, Args: map[string]interface{}{"id": "t:new", "label": "New"}},
		},
		Assertions: []Assertion{
			{Type: AssertTraceContains, Command: "addTag"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Errors)

	// command + change
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "editor:command", result.Trace[0].Type)
	assert.Equal(t, "editor:change", result.Trace[1].Type)
	assert.Equal(t, "mutation", result.Trace[1].Reason)
	assert.Equal(t, []string{"addTag"}, result.History)
	assert.NotNil(t, result.Document.Tag("t:new"))
}

func TestRun_JournalsHistory(t *testing.T) {
	scenario := &Scenario{
		Name:        "journal",
		Description: "Committed entries reach the store journal",
		Steps: []Step{
			{Op: OpAddTag, Args: map[string]interface{}{"label": "A"}},
			{Op: OpAddTag, Args: map[string]interface{}{"label": "B"}},
			{Op: OpUndo},
		},
		Assertions: []Assertion{{Type: AssertHistory, Labels: []string{"addTag", "addTag"}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	require.Len(t, result.Journal, 2)
	assert.Equal(t, "h-1", result.Journal[0].ID)
	assert.Equal(t, "h-2", result.Journal[1].ID)
	assert.Equal(t, int64(1), result.Journal[0].Seq)
	assert.Equal(t, int64(2), result.Journal[1].Seq)
}

func TestRun_StartsFromSampleDocument(t *testing.T) {
	scenario := &Scenario{
		Name:        "sample",
		Description: "Default fixtures",
		Steps:       []Step{{Op: OpValidate}},
		Assertions:  []Assertion{{Type: AssertValid}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	sample := testutil.SampleDocument()
	assert.Equal(t, len(sample.Tags), len(result.Document.Tags))
	assert.Equal(t, len(sample.Fields), len(result.Document.Fields))
	assert.Empty(t, result.History)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/transaction_rollback.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.History, second.History)
	assert.Equal(t, first.Journal, second.Journal)
}

func TestRun_FreshStorePerRun(t *testing.T) {
	scenario := &Scenario{
		Name:        "fresh",
		Description: "Each run starts over",
		Steps: []Step{
			{Op: OpAddTag, Args: map[string]interface{}{"id": "t:once", "label": "Once"}},
		},
		Assertions: []Assertion{{Type: AssertHistory, Labels: []string{"addTag"}}},
	}

	for i := 0; i < 2; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, "run %d: %v", i, result.Errors)
	}
}

// ============================================================================
// Step expectations
// ============================================================================

func TestRun_UnexpectedFailureRecorded(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected",
		Description: "A failing step without expect_error fails the run",
		Steps: []Step{
			{Op: OpAddTag, Args: map[string]interface{}{"id": "t:root", "label": "Dup"}},
		},
		Assertions: []Assertion{{Type: AssertHistory}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[0] addTag")
}

func TestRun_ExpectedErrorCode(t *testing.T) {
	scenario := &Scenario{
		Name:        "expected",
		Description: "expect_error matches the operation code",
		Steps: []Step{
			{
				Op:          OpAddTag,
				Args:        map[string]interface{}{"id": "t:root", "label": "Dup"},
				ExpectError: "DUPLICATE_ID",
			},
		},
		Assertions: []Assertion{{Type: AssertHistory}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_WrongErrorCode(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong",
		Description: "A different code is a failure",
		Steps: []Step{
			{
				Op:          OpAddTag,
				Args:        map[string]interface{}{"id": "t:root", "label": "Dup"},
				ExpectError: "NOT_FOUND",
			},
		},
		Assertions: []Assertion{{Type: AssertHistory}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "failed with DUPLICATE_ID, expected NOT_FOUND")
}

func TestRun_ExpectedErrorButSucceeded(t *testing.T) {
	scenario := &Scenario{
		Name:        "succeeded",
		Description: "expect_error on a passing step fails",
		Steps: []Step{
			{Op: OpAddTag, Args: map[string]interface{}{"label": "Fine"}, ExpectError: AnyError},
		},
		Assertions: []Assertion{{Type: AssertValid}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "succeeded, expected error any")
}

func TestRun_MovedMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "moved",
		Description: "Undo on empty history does not move",
		Steps:       []Step{{Op: OpUndo, Moved: boolPtr(true)}},
		Assertions:  []Assertion{{Type: AssertHistory}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "moved=false, expected true")
}

func TestRun_BadArgs(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_args",
		Description: "Unknown arg keys are rejected",
		Steps: []Step{
			{Op: OpAddTag, Args: map[string]interface{}{"lable": "typo"}, ExpectError: CodeBadArgs},
		},
		Assertions: []Assertion{{Type: AssertTraceCount, Event: "editor:command", Count: 0}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

// ============================================================================
// Operations
// ============================================================================

func TestRun_Operations(t *testing.T) {
	scenario := &Scenario{
		Name:        "operations",
		Description: "Every op reaches the editor",
		Steps: []Step{
			{Op: OpAddField, Args: map[string]interface{}{
				"id": "f:extra", "label": "Extra", "type": "select", "bind": []interface{}{"t:social"},
				"options": []interface{}{map[string]interface{}{"id": "o:x", "label": "X"}},
			}},
			{Op: OpUpdateField, Node: "f:extra", Args: map[string]interface{}{"label": "More"}},
			{Op: OpAddOption, Node: "f:extra", Args: map[string]interface{}{"id": "o:y", "label": "Y"}},
			{Op: OpUpdateOption, Node: "f:extra::o:y", Args: map[string]interface{}{"label": "Why"}},
			{Op: OpPlace, Node: "f:extra::o:y", Args: map[string]interface{}{"index": 0}},
			{Op: OpPlace, Node: "f:extra", Args: map[string]interface{}{"tag": "t:social", "before": "f:qty"}},
			{Op: OpDuplicate, Node: "f:boost"},
			{Op: OpConnect, Args: map[string]interface{}{"kind": "include", "from": "t:root", "to": "f:extra"}},
			{Op: OpDisconnect, Args: map[string]interface{}{"kind": "include", "from": "t:root", "to": "f:extra"}},
			{Op: OpSetService, Node: "f:extra::o:x", Args: map[string]interface{}{"service": "svc-cheap"}},
			{Op: OpRemove, Node: "f:extra::o:y"},
		},
		Assertions: []Assertion{
			{Type: AssertFinalState, Node: "f:extra", Expect: map[string]interface{}{"label": "More"}},
			{Type: AssertFinalState, Node: "f:extra::o:x", Expect: map[string]interface{}{"service_id": "svc-cheap"}},
			{Type: AssertNodeAbsent, Node: "f:extra::o:y"},
			{Type: AssertFinalState, Node: "f:boost_copy", Expect: map[string]interface{}{"type": "button"}},
			{Type: AssertValid},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	assert.Equal(t, []string{
		"addField", "updateField", "addOption", "updateOption", "placeOption", "placeNode",
		"duplicate", "connect:include", "disconnect:include", "setService", "removeOption",
	}, result.History)
	assert.Equal(t, []string{"f:extra", "f:qty", "f:boost", "f:boost_copy"}, result.Document.OrderForTags["t:social"])
}

// ============================================================================
// Scenario files
// ============================================================================

func TestRun_ScenarioFiles(t *testing.T) {
	paths, err := FindScenarios([]string{"testdata/scenarios"}, "")
	require.NoError(t, err)

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

// ============================================================================
// Result
// ============================================================================

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
