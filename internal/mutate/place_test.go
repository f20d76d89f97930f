package mutate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeax/servicegraph/internal/model"
)

func tagIDs(d *model.Document) []string {
	ids := make([]string, len(d.Tags))
	for i, t := range d.Tags {
		ids[i] = t.ID
	}
	return ids
}

func TestPlaceTag_OnlySiblingSlotsMove(t *testing.T) {
	doc := model.Document{Tags: []model.Tag{
		{ID: "a"}, {ID: "x", ParentID: "a"}, {ID: "b"}, {ID: "c"},
	}}

	res, err := PlaceTag(&doc, "c", AtIndex(0))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "x", "a", "b"}, tagIDs(&res.Document))

	res, err = PlaceTag(&doc, "a", Placement{AfterID: "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "x", "a", "c"}, tagIDs(&res.Document))
}

func TestPlacement_Precedence(t *testing.T) {
	list := []string{"a", "b", "c", "d"}
	idx := 1

	tests := []struct {
		name string
		p    Placement
		want []string
	}{
		{"index wins", Placement{Index: &idx, BeforeID: "a", AfterID: "c"}, []string{"a", "d", "b", "c"}},
		{"before over after", Placement{BeforeID: "b", AfterID: "c"}, []string{"a", "d", "b", "c"}},
		{"after", Placement{AfterID: "a"}, []string{"a", "d", "b", "c"}},
		{"append", Placement{}, []string{"a", "b", "c", "d"}},
		{"index clamped", AtIndex(99), []string{"a", "b", "c", "d"}},
		{"anchor is self", Placement{BeforeID: "d"}, []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reorder("test", append([]string(nil), list...), "d", tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := reorder("test", list, "d", Placement{BeforeID: "zz"})
	assert.True(t, IsNotFound(err))
}

func TestPlaceField(t *testing.T) {
	doc := fixture()

	res, err := PlaceField(&doc, "t:root", "f:qty", AtIndex(0))
	require.NoError(t, err)
	assert.Equal(t, []string{"f:qty", "f:go"}, res.Document.OrderForTags["t:root"])
	assert.Equal(t, []string{"f:go", "f:qty"}, doc.OrderForTags["t:root"], "source untouched")

	_, err = PlaceField(&doc, "", "f:qty", AtIndex(0))
	assert.Equal(t, ErrCodeInvalidArgument, CodeOf(err))

	_, err = PlaceField(&doc, "t:other", "f:qty", AtIndex(0))
	assert.Equal(t, ErrCodeInvalidArgument, CodeOf(err))
}

func TestPlaceField_SeedsOrderFromBindings(t *testing.T) {
	doc := model.Document{
		Tags: []model.Tag{{ID: "t:1"}},
		Fields: []model.Field{
			{ID: "f:a", Bind: model.TagBinding{"t:1"}},
			{ID: "f:b", Bind: model.TagBinding{"t:1"}},
		},
	}

	res, err := PlaceField(&doc, "t:1", "f:b", Placement{BeforeID: "f:a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"f:b", "f:a"}, res.Document.OrderForTags["t:1"])
}

func TestPlaceOption(t *testing.T) {
	doc := fixture()

	res, err := PlaceOption(&doc, "f:qty", "o:2", Placement{BeforeID: "o:1"})
	require.NoError(t, err)
	opts := res.Document.Field("f:qty").Options
	assert.Equal(t, "o:2", opts[0].ID)
	assert.Equal(t, "Two", opts[0].Label)
	assert.Equal(t, "o:1", opts[1].ID)

	_, err = PlaceOption(&doc, "f:qty", "o:9", Placement{})
	assert.True(t, IsNotFound(err))
}
