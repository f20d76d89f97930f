package mutate

import "github.com/timeax/servicegraph/internal/model"

// Placement is a reorder destination. Precedence: Index, then BeforeID,
// then AfterID; an empty placement moves the node to the end.
type Placement struct {
	Index    *int
	BeforeID string
	AfterID  string
}

// AtIndex returns a placement at a fixed position.
func AtIndex(i int) Placement { return Placement{Index: &i} }

// PlaceTag moves a tag among its siblings. Tags under other parents keep
// their slots in the tag list.
func PlaceTag(src *model.Document, id string, p Placement) (Result, error) {
	const op = "placeTag"
	doc := src.Clone()
	res := Result{}

	t := doc.Tag(id)
	if t == nil {
		return res, notFound(op, "tag", id)
	}
	parent := t.ParentID

	var slots []int
	var order []string
	for i := range doc.Tags {
		if doc.Tags[i].ParentID == parent {
			slots = append(slots, i)
			order = append(order, doc.Tags[i].ID)
		}
	}
	order, err := reorder(op, order, id, p)
	if err != nil {
		return res, err
	}

	byID := make(map[string]model.Tag, len(slots))
	for _, i := range slots {
		byID[doc.Tags[i].ID] = doc.Tags[i]
	}
	for n, i := range slots {
		doc.Tags[i] = byID[order[n]]
	}

	res.Document = doc
	return res, nil
}

// PlaceField moves a field within the display order of one of its tags.
// The order list is seeded from the tag's bound fields when absent.
func PlaceField(src *model.Document, tagID, fieldID string, p Placement) (Result, error) {
	const op = "placeField"
	doc := src.Clone()
	res := Result{}

	if tagID == "" {
		return res, invalid(op, fieldID, "placing a field requires a tag")
	}
	if doc.Tag(tagID) == nil {
		return res, notFound(op, "tag", tagID)
	}
	f := doc.Field(fieldID)
	if f == nil {
		return res, notFound(op, "field", fieldID)
	}

	order, ok := doc.OrderForTags[tagID]
	if !ok {
		for i := range doc.Fields {
			if doc.Fields[i].Bind.Contains(tagID) {
				order = append(order, doc.Fields[i].ID)
			}
		}
	}
	if !contains(order, fieldID) {
		if !f.Bind.Contains(tagID) {
			return res, invalid(op, fieldID, "field is not bound to tag %s", tagID)
		}
		order = append(order, fieldID)
	}
	order, err := reorder(op, append([]string(nil), order...), fieldID, p)
	if err != nil {
		return res, err
	}
	if doc.OrderForTags == nil {
		doc.OrderForTags = make(map[string][]string)
	}
	doc.OrderForTags[tagID] = order

	res.Document = doc
	return res, nil
}

// PlaceOption moves an option within its field.
func PlaceOption(src *model.Document, fieldID, optionID string, p Placement) (Result, error) {
	const op = "placeOption"
	doc := src.Clone()
	res := Result{}

	f := doc.Field(fieldID)
	if f == nil {
		return res, notFound(op, "field", fieldID)
	}
	if f.OptionIndex(optionID) < 0 {
		return res, notFound(op, "option", model.OptionKey(fieldID, optionID))
	}

	order := make([]string, len(f.Options))
	byID := make(map[string]model.Option, len(f.Options))
	for i, o := range f.Options {
		order[i] = o.ID
		byID[o.ID] = o
	}
	order, err := reorder(op, order, optionID, p)
	if err != nil {
		return res, err
	}
	for i, id := range order {
		f.Options[i] = byID[id]
	}

	res.Document = doc
	return res, nil
}

// reorder moves id within list to the placement. Index is clamped to the
// list bounds; an unknown anchor is an error.
func reorder(op string, list []string, id string, p Placement) ([]string, error) {
	if p.Index == nil && (p.BeforeID == id || (p.BeforeID == "" && p.AfterID == id)) {
		return list, nil
	}
	rest := without(list, id)
	pos := len(rest)
	switch {
	case p.Index != nil:
		pos = *p.Index
		if pos < 0 {
			pos = 0
		}
		if pos > len(rest) {
			pos = len(rest)
		}
	case p.BeforeID != "":
		pos = indexOf(rest, p.BeforeID)
		if pos < 0 {
			return nil, notFound(op, "anchor", p.BeforeID)
		}
	case p.AfterID != "":
		pos = indexOf(rest, p.AfterID)
		if pos < 0 {
			return nil, notFound(op, "anchor", p.AfterID)
		}
		pos++
	}
	out := make([]string, 0, len(rest)+1)
	out = append(out, rest[:pos]...)
	out = append(out, id)
	return append(out, rest[pos:]...), nil
}

func indexOf(list []string, id string) int {
	for i, v := range list {
		if v == id {
			return i
		}
	}
	return -1
}
