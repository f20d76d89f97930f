package mutate

import (
	"github.com/timeax/servicegraph/internal/model"
)

// ServicePatch describes a service assignment. A nil pointer leaves the
// current value; an empty ServiceID clears the mapping.
type ServicePatch struct {
	ServiceID   *string
	PricingRole *model.PricingRole
}

// SetService assigns a service and/or pricing role to a tag, field or option.
//
// Rules per endpoint:
//   - tag: unrestricted, pricing role ignored
//   - option: utility options never keep a service id
//   - field: only option-less button fields with base role keep a service id
//
// Violations are stripped and reported as diagnostics; they never fail the call.
func SetService(src *model.Document, ref model.NodeRef, patch ServicePatch) (Result, error) {
	const op = "setService"
	doc := src.Clone()
	res := Result{}

	if patch.PricingRole != nil && !validRole(*patch.PricingRole) {
		return res, invalid(op, ref.String(), "unknown pricing role %q", *patch.PricingRole)
	}

	switch ref.Kind {
	case model.KindTag:
		t := doc.Tag(ref.ID)
		if t == nil {
			return res, notFound(op, "tag", ref.ID)
		}
		if patch.ServiceID != nil {
			t.ServiceID = *patch.ServiceID
		}

	case model.KindOption:
		f := doc.Field(ref.FieldID)
		if f == nil {
			return res, notFound(op, "field", ref.FieldID)
		}
		i := f.OptionIndex(ref.ID)
		if i < 0 {
			return res, notFound(op, "option", ref.String())
		}
		o := &f.Options[i]
		if patch.PricingRole != nil {
			o.PricingRole = *patch.PricingRole
		}
		if patch.ServiceID != nil {
			o.ServiceID = *patch.ServiceID
		}
		res.Diagnostics = append(res.Diagnostics, normalizeOption(f.ID, o)...)

	case model.KindField:
		f := doc.Field(ref.ID)
		if f == nil {
			return res, notFound(op, "field", ref.ID)
		}
		if patch.PricingRole != nil {
			f.PricingRole = *patch.PricingRole
		}
		if patch.ServiceID != nil {
			f.ServiceID = *patch.ServiceID
		}
		res.Diagnostics = append(res.Diagnostics, normalizeField(f)...)

	default:
		return res, invalid(op, ref.String(), "unsupported node kind %q", ref.Kind)
	}

	res.Document = doc
	return res, nil
}

func validRole(r model.PricingRole) bool {
	return r == "" || r == model.RoleBase || r == model.RoleUtility
}

// normalizeOption strips a service id from a utility option.
func normalizeOption(fieldID string, o *model.Option) []Diagnostic {
	if o.ServiceID == "" || o.Role() != model.RoleUtility {
		return nil
	}
	o.ServiceID = ""
	return []Diagnostic{{
		Code:    DiagServiceOnUtility,
		Message: "utility options cannot map to a service",
		Node:    model.OptionRef(fieldID, o.ID),
	}}
}

// normalizeField strips every service id the field or its options may not carry.
func normalizeField(f *model.Field) []Diagnostic {
	var diags []Diagnostic
	if f.ServiceID != "" {
		var d *Diagnostic
		switch {
		case f.HasOptions():
			d = &Diagnostic{Code: DiagServiceOnOptionField, Message: "fields with options map services on their options, not on the field"}
		case !f.IsButton():
			d = &Diagnostic{Code: DiagServiceOnNonButton, Message: "only button fields can map to a service"}
		case f.Role() == model.RoleUtility:
			d = &Diagnostic{Code: DiagServiceOnUtility, Message: "utility fields cannot map to a service"}
		}
		if d != nil {
			f.ServiceID = ""
			d.Node = model.FieldRef(f.ID)
			diags = append(diags, *d)
		}
	}
	for i := range f.Options {
		diags = append(diags, normalizeOption(f.ID, &f.Options[i])...)
	}
	return diags
}
