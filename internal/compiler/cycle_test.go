package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeax/servicegraph/internal/model"
)

func TestAnalyzeTagCycles_Empty(t *testing.T) {
	warnings := AnalyzeTagCycles(&model.Document{})
	assert.Empty(t, warnings)
	assert.NotNil(t, warnings)
}

func TestAnalyzeTagCycles_Forest(t *testing.T) {
	doc := model.Document{Tags: []model.Tag{
		{ID: "a"}, {ID: "b", ParentID: "a"}, {ID: "c", ParentID: "b"}, {ID: "d", ParentID: "missing"},
	}}
	assert.Empty(t, AnalyzeTagCycles(&doc))
}

func TestAnalyzeTagCycles_SelfParent(t *testing.T) {
	doc := model.Document{Tags: []model.Tag{{ID: "a", ParentID: "a"}}}

	warnings := AnalyzeTagCycles(&doc)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"a", "a"}, warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "its own parent")
}

func TestAnalyzeTagCycles_ThreeNodeCycle(t *testing.T) {
	doc := model.Document{Tags: []model.Tag{
		{ID: "a", ParentID: "c"}, {ID: "b", ParentID: "a"}, {ID: "c", ParentID: "b"}, {ID: "x"},
	}}

	warnings := AnalyzeTagCycles(&doc)
	require.Len(t, warnings, 1)
	path := warnings[0].Path
	require.Len(t, path, 4)
	assert.Equal(t, path[0], path[3])
	assert.ElementsMatch(t, []string{"a", "b", "c"}, path[:3])
	assert.Contains(t, warnings[0].Message, " → ")
}

func TestAnalyzeTagCycles_Independent(t *testing.T) {
	doc := model.Document{Tags: []model.Tag{
		{ID: "a", ParentID: "b"}, {ID: "b", ParentID: "a"},
		{ID: "c", ParentID: "d"}, {ID: "d", ParentID: "c"},
	}}
	assert.Len(t, AnalyzeTagCycles(&doc), 2)
}
