package model

import (
	"encoding/json"
	"fmt"
)

// PricingRole distinguishes base entities (which may map to a service)
// from utility entities (which never do).
type PricingRole string

const (
	RoleBase    PricingRole = "base"
	RoleUtility PricingRole = "utility"
)

// FieldTypeButton is the only field type that may carry a field-level service.
const FieldTypeButton = "button"

// OptionKeySeparator joins a field id and an option id in option-keyed maps.
const OptionKeySeparator = "::"

// Document is the service graph: a forest of tags, the fields bound to them,
// and the cross maps that reference both.
type Document struct {
	Tags   []Tag   `json:"tags"`
	Fields []Field `json:"fields"`

	// OrderForTags maps a tag id to the display order of its field ids.
	OrderForTags map[string][]string `json:"order_for_tags,omitempty"`

	// IncludesForButtons/ExcludesForButtons map a button field id to the
	// field ids it reveals or hides.
	IncludesForButtons map[string][]string `json:"includes_for_buttons,omitempty"`
	ExcludesForButtons map[string][]string `json:"excludes_for_buttons,omitempty"`

	// IncludesForOptions/ExcludesForOptions are keyed by option id or by
	// OptionKey(fieldID, optionID).
	IncludesForOptions map[string][]string `json:"includes_for_options,omitempty"`
	ExcludesForOptions map[string][]string `json:"excludes_for_options,omitempty"`
}

// Tag is a hierarchical scope node.
type Tag struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	ParentID    string       `json:"parent_id,omitempty"`
	ServiceID   string       `json:"service_id,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
	Includes    []string     `json:"includes,omitempty"` // field ids
	Excludes    []string     `json:"excludes,omitempty"` // field ids
}

// Field is a node bound to one or more tags.
type Field struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	Type        string      `json:"type"`
	Name        string      `json:"name,omitempty"`
	Bind        TagBinding  `json:"bind_id,omitempty"`
	PricingRole PricingRole `json:"pricing_role,omitempty"`
	ServiceID   string      `json:"service_id,omitempty"`
	Options     []Option    `json:"options,omitempty"`
}

// Option is a selectable value owned by exactly one field.
type Option struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	ServiceID   string      `json:"service_id,omitempty"`
	PricingRole PricingRole `json:"pricing_role,omitempty"`
}

// IsButton reports whether the field is a button field.
func (f *Field) IsButton() bool {
	return f.Type == FieldTypeButton
}

// HasOptions reports whether the field carries options.
func (f *Field) HasOptions() bool {
	return len(f.Options) > 0
}

// Role returns the field's pricing role, defaulting to base.
func (f *Field) Role() PricingRole {
	if f.PricingRole == "" {
		return RoleBase
	}
	return f.PricingRole
}

// Role returns the option's pricing role, defaulting to base.
func (o *Option) Role() PricingRole {
	if o.PricingRole == "" {
		return RoleBase
	}
	return o.PricingRole
}

// OptionIndex returns the index of the option with the given id, or -1.
func (f *Field) OptionIndex(optionID string) int {
	for i := range f.Options {
		if f.Options[i].ID == optionID {
			return i
		}
	}
	return -1
}

// HasServiceMapping reports whether the field or any of its options maps to a service.
func (f *Field) HasServiceMapping() bool {
	if f.ServiceID != "" {
		return true
	}
	for _, o := range f.Options {
		if o.ServiceID != "" {
			return true
		}
	}
	return false
}

// TagBinding is the set of tags a field is bound to.
//
// It serializes as a bare string when it holds a single tag and as a list
// otherwise, so a field bound once stays in its compact form until a second
// parent is added.
type TagBinding []string

// MarshalJSON implements json.Marshaler.
func (b TagBinding) MarshalJSON() ([]byte, error) {
	if len(b) == 1 {
		return json.Marshal(b[0])
	}
	return json.Marshal([]string(b))
}

// UnmarshalJSON accepts either a string or a list of strings.
func (b *TagBinding) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*b = nil
		} else {
			*b = TagBinding{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("bind_id must be a string or list of strings: %w", err)
	}
	*b = TagBinding(many)
	return nil
}

// Contains reports whether the binding includes the tag.
func (b TagBinding) Contains(tagID string) bool {
	for _, id := range b {
		if id == tagID {
			return true
		}
	}
	return false
}

// OptionKey builds the composite option-map key for an option of a field.
func OptionKey(fieldID, optionID string) string {
	return fieldID + OptionKeySeparator + optionID
}

// TagIndex returns the index of the tag with the given id, or -1.
func (d *Document) TagIndex(id string) int {
	for i := range d.Tags {
		if d.Tags[i].ID == id {
			return i
		}
	}
	return -1
}

// FieldIndex returns the index of the field with the given id, or -1.
func (d *Document) FieldIndex(id string) int {
	for i := range d.Fields {
		if d.Fields[i].ID == id {
			return i
		}
	}
	return -1
}

// Tag returns a pointer into the document's tag slice, or nil.
func (d *Document) Tag(id string) *Tag {
	if i := d.TagIndex(id); i >= 0 {
		return &d.Tags[i]
	}
	return nil
}

// Field returns a pointer into the document's field slice, or nil.
func (d *Document) Field(id string) *Field {
	if i := d.FieldIndex(id); i >= 0 {
		return &d.Fields[i]
	}
	return nil
}

// Option returns a pointer to the option of the given field, or nil.
func (d *Document) Option(fieldID, optionID string) *Option {
	f := d.Field(fieldID)
	if f == nil {
		return nil
	}
	if i := f.OptionIndex(optionID); i >= 0 {
		return &f.Options[i]
	}
	return nil
}

// FieldsWithOption returns the ids of every field owning an option with the given id.
func (d *Document) FieldsWithOption(optionID string) []string {
	var owners []string
	for i := range d.Fields {
		if d.Fields[i].OptionIndex(optionID) >= 0 {
			owners = append(owners, d.Fields[i].ID)
		}
	}
	return owners
}

// Children returns the ids of the direct children of a tag, in document order.
// An empty parentID lists root tags.
func (d *Document) Children(parentID string) []string {
	var ids []string
	for _, t := range d.Tags {
		if t.ParentID == parentID {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// Ancestors returns the parent chain of a tag, nearest first. The walk stops
// at a missing parent or on revisiting a tag, so a corrupt document cannot
// loop forever.
func (d *Document) Ancestors(tagID string) []string {
	var chain []string
	seen := map[string]bool{tagID: true}
	t := d.Tag(tagID)
	for t != nil && t.ParentID != "" {
		if seen[t.ParentID] {
			break
		}
		seen[t.ParentID] = true
		chain = append(chain, t.ParentID)
		t = d.Tag(t.ParentID)
	}
	return chain
}
