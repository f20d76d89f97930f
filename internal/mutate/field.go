package mutate

import (
	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/naming"
)

// Id prefixes for generated field and option ids.
const (
	FieldPrefix  = "f"
	OptionPrefix = "o"
)

// FieldPatch describes an update to a field. Nil fields are left unchanged.
// Bindings, options and services have their own operations.
type FieldPatch struct {
	Label       *string
	Type        *string
	Name        *string
	PricingRole *model.PricingRole
}

// AddField appends a field with its options. Empty field or option ids are
// generated; service ids the field may not carry are stripped.
func AddField(src *model.Document, f model.Field) (Result, error) {
	const op = "addField"
	doc := src.Clone()
	res := Result{}
	f = f.Clone()

	if f.ID == "" {
		id, err := naming.GenID(&doc, FieldPrefix)
		if err != nil {
			return res, idError(op, err)
		}
		f.ID = id
	} else if doc.Field(f.ID) != nil {
		return res, duplicateID(op, "field", f.ID)
	}
	if !validRole(f.PricingRole) {
		return res, invalid(op, f.ID, "unknown pricing role %q", f.PricingRole)
	}
	for _, tagID := range f.Bind {
		if doc.Tag(tagID) == nil {
			return res, notFound(op, "bound tag", tagID)
		}
	}
	f.Bind = model.TagBinding(dedupe(f.Bind))

	seen := make(map[string]bool, len(f.Options))
	for _, o := range f.Options {
		if o.ID == "" {
			continue
		}
		if seen[o.ID] {
			return res, duplicateID(op, "option", model.OptionKey(f.ID, o.ID))
		}
		if !validRole(o.PricingRole) {
			return res, invalid(op, model.OptionKey(f.ID, o.ID), "unknown pricing role %q", o.PricingRole)
		}
		seen[o.ID] = true
	}

	doc.Fields = append(doc.Fields, f)
	added := &doc.Fields[len(doc.Fields)-1]
	for i := range added.Options {
		if added.Options[i].ID != "" {
			continue
		}
		id, err := naming.GenID(&doc, OptionPrefix)
		if err != nil {
			return res, idError(op, err)
		}
		added.Options[i].ID = id
	}

	res.Diagnostics = normalizeField(added)
	if err := checkName(op, &doc, added, added.Name); err != nil {
		return res, err
	}

	res.Document = doc
	res.created(model.FieldRef(f.ID))
	return res, nil
}

// UpdateField applies a patch to a field and re-normalizes its services.
func UpdateField(src *model.Document, id string, patch FieldPatch) (Result, error) {
	const op = "updateField"
	doc := src.Clone()
	res := Result{}

	f := doc.Field(id)
	if f == nil {
		return res, notFound(op, "field", id)
	}
	if patch.PricingRole != nil && !validRole(*patch.PricingRole) {
		return res, invalid(op, id, "unknown pricing role %q", *patch.PricingRole)
	}
	if patch.Label != nil {
		f.Label = *patch.Label
	}
	if patch.Type != nil {
		f.Type = *patch.Type
	}
	if patch.PricingRole != nil {
		f.PricingRole = *patch.PricingRole
	}
	res.Diagnostics = normalizeField(f)

	if patch.Name != nil && *patch.Name != f.Name {
		if err := checkName(op, &doc, f, *patch.Name); err != nil {
			return res, err
		}
		f.Name = *patch.Name
	}

	res.Document = doc
	return res, nil
}

// RemoveField deletes a field and every reference to it or its options.
func RemoveField(src *model.Document, id string) (Result, error) {
	const op = "removeField"
	doc := src.Clone()
	res := Result{}

	i := doc.FieldIndex(id)
	if i < 0 {
		return res, notFound(op, "field", id)
	}
	for _, o := range doc.Fields[i].Options {
		purgeOptionKeys(&doc, id, o.ID)
	}
	doc.Fields = append(doc.Fields[:i], doc.Fields[i+1:]...)
	purgeField(&doc, id)

	res.Document = doc
	return res, nil
}

// checkName enforces field name rules: unique across fields, and only
// assignable to fields whose options and self carry no service mapping.
func checkName(op string, d *model.Document, f *model.Field, name string) error {
	if name == "" {
		return nil
	}
	for i := range d.Fields {
		if d.Fields[i].ID != f.ID && d.Fields[i].Name == name {
			return &OpError{Code: ErrCodeDuplicateName, Op: op, Message: "field name already in use: " + name, Node: f.ID}
		}
	}
	if f.HasServiceMapping() {
		return invalid(op, f.ID, "name cannot be assigned to a field with a service mapping")
	}
	return nil
}
