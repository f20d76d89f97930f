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

// ============================================================================
// Documents
// ============================================================================

func TestLoadDocument_JSON(t *testing.T) {
	docPath, _ := sampleFiles(t, t.TempDir())

	doc, err := LoadDocument(docPath)
	require.NoError(t, err)

	sample := testutil.SampleDocument()
	assert.Equal(t, model.MustFingerprint(&sample), model.MustFingerprint(&doc))
}

func TestLoadDocument_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "doc.yaml", `
tags:
  - id: "t:root"
    label: Root
  - id: "t:child"
    label: Child
    parent_id: "t:root"
fields:
  - id: "f:qty"
    label: Quantity
    type: text
    bind_id: "t:child"
`)

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	require.Len(t, doc.Tags, 2)
	assert.Equal(t, "t:root", doc.Tags[1].ParentID)
	require.NotNil(t, doc.Field("f:qty"))
	assert.Equal(t, model.TagBinding{"t:child"}, doc.Field("f:qty").Bind)
}

func TestLoadDocument_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		path     string
		wantCode string
	}{
		{"missing", filepath.Join(dir, "nope.json"), ErrCodeNotFound},
		{"unknown key", writeFile(t, dir, "typo.json", `{"tagz": []}`), ErrCodeParse},
		{"malformed json", writeFile(t, dir, "bad.json", `{"tags": [`), ErrCodeParse},
		{"malformed yaml", writeFile(t, dir, "bad.yaml", "tags: [unclosed"), ErrCodeParse},
		{"unsupported", writeFile(t, dir, "doc.txt", "{}"), ErrCodeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDocument(tt.path)
			require.Error(t, err)

			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tt.wantCode, loadErr.Code)
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

// ============================================================================
// Capabilities / policies
// ============================================================================

func TestLoadCapabilities_FillsIDFromKey(t *testing.T) {
	path := writeFile(t, t.TempDir(), "caps.yaml", `
svc-a:
  rate: 2
  refill: true
svc-b:
  id: svc-b
  rate: 3
`)

	caps, err := LoadCapabilities(path)
	require.NoError(t, err)
	require.Len(t, caps, 2)
	assert.Equal(t, "svc-a", caps["svc-a"].ID)
	assert.True(t, caps["svc-a"].Refill)
	assert.Equal(t, float64(3), caps["svc-b"].Rate)
}

func TestLoadPolicies_CompilerByExtension(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		wantYAML bool
	}{
		{"cue", "rules.cue", false},
		{"json", "rules.json", false},
		{"yaml", "rules.yaml", true},
		{"yml", "rules.yml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, "[]")
			raw, c, err := LoadPolicies(path)
			require.NoError(t, err)
			assert.Equal(t, "[]", string(raw))

			pc, ok := c.(compiler.PolicyCompiler)
			require.True(t, ok)
			assert.Equal(t, tt.wantYAML, pc.YAML)
		})
	}

	_, _, err := LoadPolicies(writeFile(t, dir, "rules.toml", ""))
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeUnsupported, loadErr.Code)
}

// ============================================================================
// Helpers
// ============================================================================

func TestWriteDocument_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	sample := testutil.SampleDocument()

	require.NoError(t, WriteDocument(path, sample))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, model.MustFingerprint(&sample), model.MustFingerprint(&doc))
}

func TestWriteDocument_BadPath(t *testing.T) {
	err := WriteDocument(filepath.Join(t.TempDir(), "missing", "out.json"), model.Document{})
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeWriteFailed, loadErr.Code)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList("a, b,,"))
	assert.Equal(t, []string{"svc-1"}, splitList(" svc-1 "))
}
