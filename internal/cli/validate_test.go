package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeax/servicegraph/internal/compiler"
	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/testutil"
)

func TestValidateValidDocument(t *testing.T) {
	docPath, _ := sampleFiles(t, t.TempDir())

	out, err := execute(t, "validate", docPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Document is valid")

	sample := testutil.SampleDocument()
	assert.Contains(t, out, model.MustFingerprint(&sample))
}

func TestValidateValidDocumentJSON(t *testing.T) {
	docPath, _ := sampleFiles(t, t.TempDir())

	out, err := execute(t, "--format", "json", "validate", docPath)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateInvalidDocument(t *testing.T) {
	doc := testutil.SampleDocument()
	doc.Tags[1].ParentID = "t:ghost"
	doc.Fields[2].Bind = model.TagBinding{"t:nowhere"}
	path := writeJSON(t, t.TempDir(), "doc.json", doc)

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 error(s)")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrDanglingParent)
	assert.Contains(t, out, compiler.ErrDanglingBinding)
}

func TestValidateCycleJSON(t *testing.T) {
	doc := model.Document{
		Tags: []model.Tag{
			{ID: "t:a", Label: "A", ParentID: "t:b"},
			{ID: "t:b", Label: "B", ParentID: "t:a"},
		},
	}
	path := writeJSON(t, t.TempDir(), "cycle.json", doc)

	out, err := execute(t, "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)
	require.Len(t, result.Cycles, 1)
	assert.Contains(t, result.Cycles[0].Path, "t:a")
	assert.Contains(t, result.Cycles[0].Path, "t:b")

	var codes []string
	for _, e := range result.Errors {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, compiler.ErrTagCycle)
}

func TestValidateNonExistentFile(t *testing.T) {
	out, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNotFound+"]")
}

func TestValidateUnknownFieldJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "doc.json", `{"tags": [], "feilds": []}`)

	out, err := execute(t, "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParse, resp.Error.Code)
}

func TestValidateMissingArg(t *testing.T) {
	_, err := execute(t, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
