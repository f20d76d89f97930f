package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/timeax/servicegraph/internal/model"
)

// Validation error codes (E200-E299)
const (
	// Identity errors (E200-E204)
	ErrEmptyID           = "E200" // tag, field or option id is empty
	ErrDuplicateTagID    = "E201" // two tags share an id
	ErrDuplicateFieldID  = "E202" // two fields share an id
	ErrDuplicateOptionID = "E203" // two options of one field share an id
	ErrDuplicateName     = "E204" // two fields share a name

	// Structure errors (E210-E214)
	ErrTagCycle         = "E210" // tag parent graph has a cycle
	ErrDanglingParent   = "E211" // parent_id names no tag
	ErrDanglingBinding  = "E212" // bind_id names no tag
	ErrDanglingRef      = "E213" // include/exclude/order/option map names no entity
	ErrEmptyListEntry   = "E214" // map key with an empty list

	// Service role errors (E220-E224)
	ErrServiceOnUtility     = "E220" // utility option or field carries a service
	ErrServiceOnOptionField = "E221" // option-bearing field carries a field-level service
	ErrServiceOnNonButton   = "E222" // non-button field carries a service
	ErrInvalidPricingRole   = "E223" // pricing role is neither base nor utility
)

// ValidationError represents a document validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Node    string `json:"node,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("[%s] %s (%s): %s", e.Code, e.Field, e.Node, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a document against the structural invariants.
// Returns all errors found (does not fail-fast), in a stable order.
func Validate(d *model.Document) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateTags(d)...)
	errs = append(errs, validateFields(d)...)
	errs = append(errs, validateMaps(d)...)
	return errs
}

func validateTags(d *model.Document) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(d.Tags))
	for i, t := range d.Tags {
		path := fmt.Sprintf("tags[%d]", i)
		if strings.TrimSpace(t.ID) == "" {
			errs = append(errs, ValidationError{Field: path + ".id", Message: "tag id is required", Code: ErrEmptyID})
		} else if seen[t.ID] {
			errs = append(errs, ValidationError{Field: path + ".id", Message: "duplicate tag id", Code: ErrDuplicateTagID, Node: t.ID})
		}
		seen[t.ID] = true

		if t.ParentID != "" && d.Tag(t.ParentID) == nil {
			errs = append(errs, ValidationError{
				Field: path + ".parent_id", Message: fmt.Sprintf("parent %q not found", t.ParentID),
				Code: ErrDanglingParent, Node: t.ID,
			})
		}
		for j, fid := range t.Includes {
			if d.Field(fid) == nil {
				errs = append(errs, danglingField(fmt.Sprintf("%s.includes[%d]", path, j), t.ID, fid))
			}
		}
		for j, fid := range t.Excludes {
			if d.Field(fid) == nil {
				errs = append(errs, danglingField(fmt.Sprintf("%s.excludes[%d]", path, j), t.ID, fid))
			}
		}
	}

	for _, w := range AnalyzeTagCycles(d) {
		errs = append(errs, ValidationError{Field: "tags", Message: w.Message, Code: ErrTagCycle, Node: w.Path[0]})
	}
	return errs
}

func validateFields(d *model.Document) []ValidationError {
	var errs []ValidationError
	ids := make(map[string]bool, len(d.Fields))
	names := make(map[string]bool, len(d.Fields))
	for i := range d.Fields {
		f := &d.Fields[i]
		path := fmt.Sprintf("fields[%d]", i)

		if strings.TrimSpace(f.ID) == "" {
			errs = append(errs, ValidationError{Field: path + ".id", Message: "field id is required", Code: ErrEmptyID})
		} else if ids[f.ID] {
			errs = append(errs, ValidationError{Field: path + ".id", Message: "duplicate field id", Code: ErrDuplicateFieldID, Node: f.ID})
		}
		ids[f.ID] = true

		if f.Name != "" {
			if names[f.Name] {
				errs = append(errs, ValidationError{Field: path + ".name", Message: fmt.Sprintf("duplicate field name %q", f.Name), Code: ErrDuplicateName, Node: f.ID})
			}
			names[f.Name] = true
		}

		for j, tagID := range f.Bind {
			if d.Tag(tagID) == nil {
				errs = append(errs, ValidationError{
					Field: fmt.Sprintf("%s.bind_id[%d]", path, j), Message: fmt.Sprintf("tag %q not found", tagID),
					Code: ErrDanglingBinding, Node: f.ID,
				})
			}
		}

		errs = append(errs, validateFieldService(path, f)...)

		optIDs := make(map[string]bool, len(f.Options))
		for j, o := range f.Options {
			opath := fmt.Sprintf("%s.options[%d]", path, j)
			node := model.OptionKey(f.ID, o.ID)
			if strings.TrimSpace(o.ID) == "" {
				errs = append(errs, ValidationError{Field: opath + ".id", Message: "option id is required", Code: ErrEmptyID, Node: f.ID})
			} else if optIDs[o.ID] {
				errs = append(errs, ValidationError{Field: opath + ".id", Message: "duplicate option id", Code: ErrDuplicateOptionID, Node: node})
			}
			optIDs[o.ID] = true

			if !validRole(o.PricingRole) {
				errs = append(errs, invalidRole(opath, node, o.PricingRole))
			} else if o.ServiceID != "" && o.Role() == model.RoleUtility {
				errs = append(errs, ValidationError{Field: opath + ".service_id", Message: "utility option maps to a service", Code: ErrServiceOnUtility, Node: node})
			}
		}
	}
	return errs
}

func validateFieldService(path string, f *model.Field) []ValidationError {
	var errs []ValidationError
	if !validRole(f.PricingRole) {
		errs = append(errs, invalidRole(path, f.ID, f.PricingRole))
	}
	if f.ServiceID != "" {
		field := path + ".service_id"
		switch {
		case f.HasOptions():
			errs = append(errs, ValidationError{Field: field, Message: "field with options carries a field-level service", Code: ErrServiceOnOptionField, Node: f.ID})
		case !f.IsButton():
			errs = append(errs, ValidationError{Field: field, Message: "non-button field maps to a service", Code: ErrServiceOnNonButton, Node: f.ID})
		case f.Role() == model.RoleUtility:
			errs = append(errs, ValidationError{Field: field, Message: "utility field maps to a service", Code: ErrServiceOnUtility, Node: f.ID})
		}
	}
	return errs
}

func validateMaps(d *model.Document) []ValidationError {
	var errs []ValidationError

	for _, tagID := range sortedKeys(d.OrderForTags) {
		path := "order_for_tags." + tagID
		if d.Tag(tagID) == nil {
			errs = append(errs, ValidationError{Field: path, Message: fmt.Sprintf("tag %q not found", tagID), Code: ErrDanglingRef})
		}
		errs = append(errs, checkTargets(d, path, tagID, d.OrderForTags[tagID])...)
	}

	buttons := []struct {
		name string
		m    map[string][]string
	}{
		{"includes_for_buttons", d.IncludesForButtons},
		{"excludes_for_buttons", d.ExcludesForButtons},
	}
	for _, b := range buttons {
		for _, key := range sortedKeys(b.m) {
			path := b.name + "." + key
			if d.Field(key) == nil {
				errs = append(errs, danglingField(path, "", key))
			}
			errs = append(errs, checkTargets(d, path, key, b.m[key])...)
		}
	}

	options := []struct {
		name string
		m    map[string][]string
	}{
		{"includes_for_options", d.IncludesForOptions},
		{"excludes_for_options", d.ExcludesForOptions},
	}
	for _, o := range options {
		for _, key := range sortedKeys(o.m) {
			path := o.name + "." + key
			if ref, err := model.ResolveRef(d, key); err != nil || ref.Kind != model.KindOption {
				errs = append(errs, ValidationError{Field: path, Message: fmt.Sprintf("option key %q does not resolve to one option", key), Code: ErrDanglingRef})
			}
			errs = append(errs, checkTargets(d, path, key, o.m[key])...)
		}
	}
	return errs
}

func checkTargets(d *model.Document, path, key string, ids []string) []ValidationError {
	if len(ids) == 0 {
		return []ValidationError{{Field: path, Message: "empty list left under key", Code: ErrEmptyListEntry, Node: key}}
	}
	var errs []ValidationError
	for j, fid := range ids {
		if d.Field(fid) == nil {
			errs = append(errs, danglingField(fmt.Sprintf("%s[%d]", path, j), key, fid))
		}
	}
	return errs
}

func danglingField(path, node, fieldID string) ValidationError {
	return ValidationError{Field: path, Message: fmt.Sprintf("field %q not found", fieldID), Code: ErrDanglingRef, Node: node}
}

func invalidRole(path, node string, r model.PricingRole) ValidationError {
	return ValidationError{Field: path + ".pricing_role", Message: fmt.Sprintf("unknown pricing role %q", r), Code: ErrInvalidPricingRole, Node: node}
}

func validRole(r model.PricingRole) bool {
	return r == "" || r == model.RoleBase || r == model.RoleUtility
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
