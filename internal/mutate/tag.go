package mutate

import (
	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/naming"
)

// TagPrefix is the id prefix for generated tag ids.
const TagPrefix = "t"

// TagPatch describes an update to a tag. Nil fields are left unchanged.
type TagPatch struct {
	Label       *string
	ParentID    *string
	ServiceID   *string
	Constraints *model.Constraints
	Includes    *[]string
	Excludes    *[]string
}

// AddTag appends a tag. An empty id is generated as "t:N".
func AddTag(src *model.Document, t model.Tag) (Result, error) {
	const op = "addTag"
	doc := src.Clone()
	res := Result{}

	if t.ID == "" {
		id, err := naming.GenID(&doc, TagPrefix)
		if err != nil {
			return res, idError(op, err)
		}
		t.ID = id
	} else if doc.Tag(t.ID) != nil {
		return res, duplicateID(op, "tag", t.ID)
	}
	if t.ParentID != "" {
		if t.ParentID == t.ID {
			return res, cycleError(op, t.ID, t.ParentID)
		}
		if doc.Tag(t.ParentID) == nil {
			return res, notFound(op, "parent tag", t.ParentID)
		}
	}
	if err := checkFieldRefs(op, &doc, t.ID, t.Includes, t.Excludes); err != nil {
		return res, err
	}

	t = t.Clone()
	t.Includes = dedupe(t.Includes)
	t.Excludes = dedupe(t.Excludes)
	doc.Tags = append(doc.Tags, t)
	res.Document = doc
	res.created(model.TagRef(t.ID))
	return res, nil
}

// UpdateTag applies a patch to a tag. Re-parenting is cycle-checked.
func UpdateTag(src *model.Document, id string, patch TagPatch) (Result, error) {
	const op = "updateTag"
	doc := src.Clone()
	res := Result{}

	t := doc.Tag(id)
	if t == nil {
		return res, notFound(op, "tag", id)
	}
	if patch.ParentID != nil && *patch.ParentID != t.ParentID {
		if err := checkParent(op, &doc, id, *patch.ParentID); err != nil {
			return res, err
		}
		t.ParentID = *patch.ParentID
	}
	if patch.Label != nil {
		t.Label = *patch.Label
	}
	if patch.ServiceID != nil {
		t.ServiceID = *patch.ServiceID
	}
	if patch.Constraints != nil {
		if patch.Constraints.IsEmpty() {
			t.Constraints = nil
		} else {
			c := patch.Constraints.Clone()
			t.Constraints = &c
		}
	}
	var inc, exc []string
	if patch.Includes != nil {
		inc = *patch.Includes
	}
	if patch.Excludes != nil {
		exc = *patch.Excludes
	}
	if err := checkFieldRefs(op, &doc, id, inc, exc); err != nil {
		return res, err
	}
	if patch.Includes != nil {
		t.Includes = dedupe(*patch.Includes)
	}
	if patch.Excludes != nil {
		t.Excludes = dedupe(*patch.Excludes)
	}

	res.Document = doc
	return res, nil
}

// RemoveTag deletes a tag. Its children become roots, fields drop the
// binding, and its field ordering is discarded.
func RemoveTag(src *model.Document, id string) (Result, error) {
	const op = "removeTag"
	doc := src.Clone()
	res := Result{}

	i := doc.TagIndex(id)
	if i < 0 {
		return res, notFound(op, "tag", id)
	}
	doc.Tags = append(doc.Tags[:i], doc.Tags[i+1:]...)
	purgeTag(&doc, id)

	res.Document = doc
	return res, nil
}

// checkParent verifies that parentID may become the parent of tagID: it must
// exist and tagID must not be parentID or one of its ancestors.
func checkParent(op string, d *model.Document, tagID, parentID string) error {
	if parentID == "" {
		return nil
	}
	if d.Tag(parentID) == nil {
		return notFound(op, "parent tag", parentID)
	}
	if parentID == tagID || contains(d.Ancestors(parentID), tagID) {
		return cycleError(op, tagID, parentID)
	}
	return nil
}

func cycleError(op, tagID, parentID string) *OpError {
	return &OpError{
		Code:    ErrCodeCycleDetected,
		Op:      op,
		Message: "tag would become its own ancestor",
		Node:    tagID,
		Details: map[string]string{"parent": parentID},
	}
}

func checkFieldRefs(op string, d *model.Document, owner string, lists ...[]string) error {
	for _, list := range lists {
		for _, fid := range list {
			if d.Field(fid) == nil {
				return &OpError{Code: ErrCodeNotFound, Op: op, Message: "referenced field not found: " + fid, Node: owner}
			}
		}
	}
	return nil
}

func dedupe(list []string) []string {
	var out []string
	for _, v := range list {
		out = appendUnique(out, v)
	}
	return out
}
