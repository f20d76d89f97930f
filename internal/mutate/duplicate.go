package mutate

import (
	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/naming"
)

// DuplicateOptions controls what a duplicate carries over.
type DuplicateOptions struct {
	// ID overrides the generated id of the copy. It must be unused.
	ID string

	// Label overrides the generated copy label.
	Label string

	// Name overrides the generated copy name of a field.
	Name string

	// WithChildren copies a tag's whole subtree.
	WithChildren bool

	// CopyBindings keeps a field's parent tags. Nil means true.
	CopyBindings *bool

	// CopyIncludesExcludes adds a copied field to every tag and button
	// include/exclude list that references the original. A copied button
	// also gets its own include/exclude lists cloned from the original.
	CopyIncludesExcludes bool

	// CopyOptionMaps copies option-keyed include/exclude entries onto the
	// copied options.
	CopyOptionMaps bool
}

func (o DuplicateOptions) copyBindings() bool {
	return o.CopyBindings == nil || *o.CopyBindings
}

// Duplicate copies the referenced entity and inserts the copy right after
// the original. Result.Created points at the copy (the root for a subtree).
func Duplicate(src *model.Document, ref model.NodeRef, opts DuplicateOptions) (Result, error) {
	switch ref.Kind {
	case model.KindTag:
		return DuplicateTag(src, ref.ID, opts)
	case model.KindField:
		return DuplicateField(src, ref.ID, opts)
	case model.KindOption:
		return DuplicateOption(src, ref.FieldID, ref.ID, opts)
	}
	return Result{}, invalid("duplicate", ref.String(), "unsupported node kind %q", ref.Kind)
}

// DuplicateTag copies a tag with the same parent. With WithChildren the
// subtree is copied too: every node gets a fresh id, internal parent links
// are rewired, and nodes are appended parent before child.
func DuplicateTag(src *model.Document, id string, opts DuplicateOptions) (Result, error) {
	const op = "duplicateTag"
	doc := src.Clone()
	res := Result{}

	at := doc.TagIndex(id)
	if at < 0 {
		return res, notFound(op, "tag", id)
	}

	taken := naming.TakenIDs(&doc)
	rootID := opts.ID
	if rootID == "" {
		var err error
		if rootID, err = naming.Probe(id, taken); err != nil {
			return res, idError(op, err)
		}
	} else if taken[rootID] {
		return res, duplicateID(op, "tag", rootID)
	}
	taken[rootID] = true

	root := doc.Tags[at].Clone()
	root.ID = rootID
	root.Label = opts.Label
	if root.Label == "" {
		root.Label = naming.CopyLabel(doc.Tags[at].Label, naming.TakenTagLabels(&doc))
	}

	var rest []model.Tag
	if opts.WithChildren {
		remap := map[string]string{id: rootID}
		queue := []string{id}
		for len(queue) > 0 {
			parent := queue[0]
			queue = queue[1:]
			for _, childID := range doc.Children(parent) {
				if _, seen := remap[childID]; seen {
					continue
				}
				newID, err := naming.Probe(childID, taken)
				if err != nil {
					return res, idError(op, err)
				}
				taken[newID] = true
				remap[childID] = newID

				child := doc.Tag(childID).Clone()
				child.ID = newID
				child.ParentID = remap[parent]
				rest = append(rest, child)
				queue = append(queue, childID)
			}
		}
	}

	tags := make([]model.Tag, 0, len(doc.Tags)+1+len(rest))
	tags = append(tags, doc.Tags[:at+1]...)
	tags = append(tags, root)
	tags = append(tags, doc.Tags[at+1:]...)
	doc.Tags = append(tags, rest...)

	res.Document = doc
	res.created(model.TagRef(rootID))
	return res, nil
}

// DuplicateField copies a field and its options under fresh ids.
func DuplicateField(src *model.Document, id string, opts DuplicateOptions) (Result, error) {
	const op = "duplicateField"
	doc := src.Clone()
	res := Result{}

	at := doc.FieldIndex(id)
	if at < 0 {
		return res, notFound(op, "field", id)
	}
	orig := &doc.Fields[at]

	taken := naming.TakenIDs(&doc)
	newID := opts.ID
	if newID == "" {
		var err error
		if newID, err = naming.Probe(id, taken); err != nil {
			return res, idError(op, err)
		}
	} else if taken[newID] {
		return res, duplicateID(op, "field", newID)
	}
	taken[newID] = true

	cp := orig.Clone()
	cp.ID = newID
	cp.Label = opts.Label
	if cp.Label == "" {
		cp.Label = naming.CopyLabel(orig.Label, naming.TakenFieldLabels(&doc))
	}
	cp.Name = opts.Name
	if cp.Name == "" {
		name, err := naming.CopyName(orig.Name, naming.TakenFieldNames(&doc))
		if err != nil {
			return res, idError(op, err)
		}
		cp.Name = name
	} else if err := checkName(op, &doc, &cp, cp.Name); err != nil {
		return res, err
	}

	optionMap := make(map[string]string, len(cp.Options))
	for i := range cp.Options {
		oid, err := naming.Probe(cp.Options[i].ID, taken)
		if err != nil {
			return res, idError(op, err)
		}
		taken[oid] = true
		optionMap[cp.Options[i].ID] = oid
		cp.Options[i].ID = oid
	}
	if !opts.copyBindings() {
		cp.Bind = nil
	}

	if opts.copyBindings() {
		for tagID, order := range doc.OrderForTags {
			if cp.Bind.Contains(tagID) {
				doc.OrderForTags[tagID] = insertAfter(order, id, newID)
			}
		}
	}
	if opts.CopyIncludesExcludes {
		for i := range doc.Tags {
			t := &doc.Tags[i]
			if contains(t.Includes, id) {
				t.Includes = append(t.Includes, newID)
			}
			if contains(t.Excludes, id) {
				t.Excludes = append(t.Excludes, newID)
			}
		}
		for _, m := range []map[string][]string{doc.IncludesForButtons, doc.ExcludesForButtons} {
			for key, targets := range m {
				if contains(targets, id) {
					m[key] = append(targets, newID)
				}
			}
			if rest := without(m[id], newID); len(rest) > 0 {
				m[newID] = rest
			}
		}
	}
	if opts.CopyOptionMaps {
		for oldOpt, newOpt := range optionMap {
			copyOptionEntries(&doc, id, oldOpt, newID, newOpt)
		}
	}

	fields := make([]model.Field, 0, len(doc.Fields)+1)
	fields = append(fields, doc.Fields[:at+1]...)
	fields = append(fields, cp)
	doc.Fields = append(fields, doc.Fields[at+1:]...)

	res.Document = doc
	res.created(model.FieldRef(newID))
	return res, nil
}

// DuplicateOption copies an option within its field.
func DuplicateOption(src *model.Document, fieldID, optionID string, opts DuplicateOptions) (Result, error) {
	const op = "duplicateOption"
	doc := src.Clone()
	res := Result{}

	f := doc.Field(fieldID)
	if f == nil {
		return res, notFound(op, "field", fieldID)
	}
	at := f.OptionIndex(optionID)
	if at < 0 {
		return res, notFound(op, "option", model.OptionKey(fieldID, optionID))
	}

	newID := opts.ID
	if newID == "" {
		var err error
		if newID, err = naming.UniqueOptionID(&doc, f, optionID); err != nil {
			return res, idError(op, err)
		}
	} else if f.OptionIndex(newID) >= 0 {
		return res, duplicateID(op, "option", model.OptionKey(fieldID, newID))
	}

	cp := f.Options[at]
	cp.ID = newID
	cp.Label = opts.Label
	if cp.Label == "" {
		cp.Label = naming.CopyLabel(f.Options[at].Label, naming.TakenOptionLabels(f))
	}
	if opts.CopyOptionMaps {
		copyOptionEntries(&doc, fieldID, optionID, fieldID, newID)
	}

	options := make([]model.Option, 0, len(f.Options)+1)
	options = append(options, f.Options[:at+1]...)
	options = append(options, cp)
	f.Options = append(options, f.Options[at+1:]...)

	res.Document = doc
	res.created(model.OptionRef(fieldID, newID))
	return res, nil
}

// copyOptionEntries copies the option-keyed entries of one option onto
// another under the composite key. Call it before the copy is inserted.
func copyOptionEntries(d *model.Document, fromField, fromOpt, toField, toOpt string) {
	to := model.OptionKey(toField, toOpt)
	for _, key := range optionKeys(d, fromField, fromOpt) {
		if v, ok := d.IncludesForOptions[key]; ok {
			for _, fid := range v {
				d.IncludesForOptions = addToMap(d.IncludesForOptions, to, fid)
			}
		}
		if v, ok := d.ExcludesForOptions[key]; ok {
			for _, fid := range v {
				d.ExcludesForOptions = addToMap(d.ExcludesForOptions, to, fid)
			}
		}
	}
}

// insertAfter places id right after anchor, or at the end when anchor is absent.
func insertAfter(list []string, anchor, id string) []string {
	out := make([]string, 0, len(list)+1)
	placed := false
	for _, v := range list {
		out = append(out, v)
		if v == anchor && !placed {
			out = append(out, id)
			placed = true
		}
	}
	if !placed {
		out = append(out, id)
	}
	return out
}
