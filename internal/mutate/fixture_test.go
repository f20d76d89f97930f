package mutate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timeax/servicegraph/internal/model"
)

// fixture is a small document touching every map.
//
//	t:root
//	└── t:mid
//	    └── t:leaf
//	t:other
func fixture() model.Document {
	return model.Document{
		Tags: []model.Tag{
			{ID: "t:root", Label: "Root", Constraints: &model.Constraints{Refill: model.Bool(true)}},
			{ID: "t:mid", Label: "Mid", ParentID: "t:root", Includes: []string{"f:extra"}},
			{ID: "t:leaf", Label: "Leaf", ParentID: "t:mid", Excludes: []string{"f:extra"}},
			{ID: "t:other", Label: "Other"},
		},
		Fields: []model.Field{
			{
				ID: "f:qty", Label: "Quantity", Type: "select", Name: "qty", Bind: model.TagBinding{"t:root"},
				Options: []model.Option{
					{ID: "o:1", Label: "One", ServiceID: "svc-1"},
					{ID: "o:2", Label: "Two", PricingRole: model.RoleUtility},
				},
			},
			{ID: "f:go", Label: "Go", Type: model.FieldTypeButton, Bind: model.TagBinding{"t:root", "t:mid"}, ServiceID: "svc-2"},
			{ID: "f:extra", Label: "Extra", Type: "text", Name: "extra", Bind: model.TagBinding{"t:mid"}},
		},
		OrderForTags: map[string][]string{
			"t:root": {"f:go", "f:qty"},
			"t:mid":  {"f:extra", "f:go"},
		},
		IncludesForButtons: map[string][]string{"f:go": {"f:extra"}},
		IncludesForOptions: map[string][]string{
			model.OptionKey("f:qty", "o:1"): {"f:extra"},
			"o:2":                           {"f:extra", "f:go"},
		},
		ExcludesForOptions: map[string][]string{model.OptionKey("f:qty", "o:2"): {"f:go"}},
	}
}

// danglingRefs lists every reference in d that does not resolve, and every
// emptied map key left behind.
func danglingRefs(d *model.Document) []string {
	var bad []string
	tag := func(where, id string) {
		if d.Tag(id) == nil {
			bad = append(bad, where+" → tag "+id)
		}
	}
	field := func(where, id string) {
		if d.Field(id) == nil {
			bad = append(bad, where+" → field "+id)
		}
	}
	for _, t := range d.Tags {
		if t.ParentID != "" {
			tag("parent of "+t.ID, t.ParentID)
		}
		for _, id := range t.Includes {
			field("includes of "+t.ID, id)
		}
		for _, id := range t.Excludes {
			field("excludes of "+t.ID, id)
		}
	}
	for _, f := range d.Fields {
		for _, id := range f.Bind {
			tag("bind of "+f.ID, id)
		}
	}
	for key, ids := range d.OrderForTags {
		tag("order key", key)
		for _, id := range ids {
			field("order of "+key, id)
		}
	}
	for _, m := range []map[string][]string{d.IncludesForButtons, d.ExcludesForButtons} {
		for key, ids := range m {
			field("button key", key)
			if len(ids) == 0 {
				bad = append(bad, "empty button key "+key)
			}
			for _, id := range ids {
				field("button "+key, id)
			}
		}
	}
	for _, m := range []map[string][]string{d.IncludesForOptions, d.ExcludesForOptions} {
		for key, ids := range m {
			if _, err := model.ResolveRef(d, key); err != nil {
				bad = append(bad, "option key "+key)
			}
			if len(ids) == 0 {
				bad = append(bad, "empty option key "+key)
			}
			for _, id := range ids {
				field("option "+key, id)
			}
		}
	}
	return bad
}

func requireClean(t *testing.T, d *model.Document) {
	t.Helper()
	require.Empty(t, danglingRefs(d))
}

func ptr[T any](v T) *T { return &v }
