package testutil

import (
	"github.com/timeax/servicegraph/internal/model"
)

// SampleDocument returns a small document exercising every relation:
//
//	t:root (refill) ─ t:social ─ t:fast
//	f:qty   select on t:social, options o:1 (svc-likes), o:2 (utility)
//	f:boost button on t:social, svc-boost
//	f:note  text on t:fast
func SampleDocument() model.Document {
	return model.Document{
		Tags: []model.Tag{
			{ID: "t:root", Label: "Root", Constraints: &model.Constraints{Refill: model.Bool(true)}},
			{ID: "t:social", Label: "Social", ParentID: "t:root", ServiceID: "svc-likes"},
			{ID: "t:fast", Label: "Fast", ParentID: "t:social", Includes: []string{"f:note"}},
		},
		Fields: []model.Field{
			{
				ID: "f:qty", Label: "Quantity", Type: "select", Name: "qty",
				Bind: model.TagBinding{"t:social"},
				Options: []model.Option{
					{ID: "o:1", Label: "Likes", ServiceID: "svc-likes"},
					{ID: "o:2", Label: "Gift wrap", PricingRole: model.RoleUtility},
				},
			},
			{
				ID: "f:boost", Label: "Boost", Type: "button",
				Bind: model.TagBinding{"t:social"}, ServiceID: "svc-boost",
			},
			{ID: "f:note", Label: "Note", Type: "text", Bind: model.TagBinding{"t:fast"}},
		},
		OrderForTags:       map[string][]string{"t:social": {"f:qty", "f:boost"}},
		IncludesForButtons: map[string][]string{"f:boost": {"f:note"}},
		IncludesForOptions: map[string][]string{model.OptionKey("f:qty", "o:1"): {"f:note"}},
	}
}

// SampleCapabilities returns capability records for the services in
// SampleDocument plus two unmapped candidates.
func SampleCapabilities() model.CapabilityMap {
	return model.CapabilityMap{
		"svc-likes":    {ID: "svc-likes", Name: "Likes", Rate: 2, Refill: true, HandlerID: "h-1", PlatformID: "ig"},
		"svc-boost":    {ID: "svc-boost", Name: "Boost", Rate: 5, Refill: true, HandlerID: "h-1", PlatformID: "ig"},
		"svc-cheap":    {ID: "svc-cheap", Name: "Cheap", Rate: 1, Refill: true, HandlerID: "h-2", PlatformID: "ig"},
		"svc-norefill": {ID: "svc-norefill", Name: "No refill", Rate: 1, HandlerID: "h-1", PlatformID: "ig"},
	}
}
