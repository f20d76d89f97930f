package mutate

import (
	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/naming"
)

// OptionPatch describes an update to an option. Nil fields are left unchanged.
type OptionPatch struct {
	Label       *string
	PricingRole *model.PricingRole
}

// AddOption appends an option to a field. An empty id is generated as "o:N".
// A field-level service id is stripped, since the field now carries options.
func AddOption(src *model.Document, fieldID string, o model.Option) (Result, error) {
	const op = "addOption"
	doc := src.Clone()
	res := Result{}

	f := doc.Field(fieldID)
	if f == nil {
		return res, notFound(op, "field", fieldID)
	}
	if !validRole(o.PricingRole) {
		return res, invalid(op, fieldID, "unknown pricing role %q", o.PricingRole)
	}
	if o.ID == "" {
		id, err := naming.GenID(&doc, OptionPrefix)
		if err != nil {
			return res, idError(op, err)
		}
		o.ID = id
	} else if f.OptionIndex(o.ID) >= 0 {
		return res, duplicateID(op, "option", model.OptionKey(fieldID, o.ID))
	}

	f.Options = append(f.Options, o)
	res.Diagnostics = normalizeField(f)

	res.Document = doc
	res.created(model.OptionRef(fieldID, o.ID))
	return res, nil
}

// UpdateOption applies a patch to an option and re-normalizes its service.
func UpdateOption(src *model.Document, fieldID, optionID string, patch OptionPatch) (Result, error) {
	const op = "updateOption"
	doc := src.Clone()
	res := Result{}

	o := doc.Option(fieldID, optionID)
	if o == nil {
		return res, notFound(op, "option", model.OptionKey(fieldID, optionID))
	}
	if patch.PricingRole != nil {
		if !validRole(*patch.PricingRole) {
			return res, invalid(op, model.OptionKey(fieldID, optionID), "unknown pricing role %q", *patch.PricingRole)
		}
		o.PricingRole = *patch.PricingRole
	}
	if patch.Label != nil {
		o.Label = *patch.Label
	}
	res.Diagnostics = normalizeOption(fieldID, o)

	res.Document = doc
	return res, nil
}

// RemoveOption deletes an option and the option-map entries keyed by it.
func RemoveOption(src *model.Document, fieldID, optionID string) (Result, error) {
	const op = "removeOption"
	doc := src.Clone()
	res := Result{}

	f := doc.Field(fieldID)
	if f == nil {
		return res, notFound(op, "field", fieldID)
	}
	i := f.OptionIndex(optionID)
	if i < 0 {
		return res, notFound(op, "option", model.OptionKey(fieldID, optionID))
	}
	purgeOptionKeys(&doc, fieldID, optionID)
	f.Options = append(f.Options[:i], f.Options[i+1:]...)
	if len(f.Options) == 0 {
		f.Options = nil
	}

	res.Document = doc
	return res, nil
}
