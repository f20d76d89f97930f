package harness

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/mutate"
)

type optionArgs struct {
	ID          string `yaml:"id"`
	Label       string `yaml:"label"`
	Service     string `yaml:"service"`
	PricingRole string `yaml:"pricing_role"`
}

func (a optionArgs) option() model.Option {
	return model.Option{
		ID:          a.ID,
		Label:       a.Label,
		ServiceID:   a.Service,
		PricingRole: model.PricingRole(a.PricingRole),
	}
}

type constraintArgs struct {
	Refill   *bool `yaml:"refill"`
	Cancel   *bool `yaml:"cancel"`
	Dripfeed *bool `yaml:"dripfeed"`
}

func (a *constraintArgs) constraints() *model.Constraints {
	if a == nil {
		return nil
	}
	return &model.Constraints{Refill: a.Refill, Cancel: a.Cancel, Dripfeed: a.Dripfeed}
}

type tagArgs struct {
	ID          string          `yaml:"id"`
	Label       string          `yaml:"label"`
	Parent      string          `yaml:"parent"`
	Service     string          `yaml:"service"`
	Constraints *constraintArgs `yaml:"constraints"`
	Includes    []string        `yaml:"includes"`
	Excludes    []string        `yaml:"excludes"`
}

func (a tagArgs) tag() model.Tag {
	return model.Tag{
		ID:          a.ID,
		Label:       a.Label,
		ParentID:    a.Parent,
		ServiceID:   a.Service,
		Constraints: a.Constraints.constraints(),
		Includes:    a.Includes,
		Excludes:    a.Excludes,
	}
}

type tagPatchArgs struct {
	Label       *string         `yaml:"label"`
	Parent      *string         `yaml:"parent"`
	Service     *string         `yaml:"service"`
	Constraints *constraintArgs `yaml:"constraints"`
	Includes    *[]string       `yaml:"includes"`
	Excludes    *[]string       `yaml:"excludes"`
}

func (a tagPatchArgs) patch() mutate.TagPatch {
	return mutate.TagPatch{
		Label:       a.Label,
		ParentID:    a.Parent,
		ServiceID:   a.Service,
		Constraints: a.Constraints.constraints(),
		Includes:    a.Includes,
		Excludes:    a.Excludes,
	}
}

type fieldArgs struct {
	ID          string       `yaml:"id"`
	Label       string       `yaml:"label"`
	Type        string       `yaml:"type"`
	Name        string       `yaml:"name"`
	Bind        []string     `yaml:"bind"`
	PricingRole string       `yaml:"pricing_role"`
	Service     string       `yaml:"service"`
	Options     []optionArgs `yaml:"options"`
}

func (a fieldArgs) field() model.Field {
	f := model.Field{
		ID:          a.ID,
		Label:       a.Label,
		Type:        a.Type,
		Name:        a.Name,
		Bind:        model.TagBinding(a.Bind),
		PricingRole: model.PricingRole(a.PricingRole),
		ServiceID:   a.Service,
	}
	for _, o := range a.Options {
		f.Options = append(f.Options, o.option())
	}
	return f
}

type fieldPatchArgs struct {
	Label       *string `yaml:"label"`
	Type        *string `yaml:"type"`
	Name        *string `yaml:"name"`
	PricingRole *string `yaml:"pricing_role"`
}

func (a fieldPatchArgs) patch() mutate.FieldPatch {
	return mutate.FieldPatch{
		Label:       a.Label,
		Type:        a.Type,
		Name:        a.Name,
		PricingRole: rolePtr(a.PricingRole),
	}
}

type optionPatchArgs struct {
	Label       *string `yaml:"label"`
	PricingRole *string `yaml:"pricing_role"`
}

func (a optionPatchArgs) patch() mutate.OptionPatch {
	return mutate.OptionPatch{Label: a.Label, PricingRole: rolePtr(a.PricingRole)}
}

type duplicateArgs struct {
	ID                   string `yaml:"id"`
	Label                string `yaml:"label"`
	Name                 string `yaml:"name"`
	WithChildren         bool   `yaml:"with_children"`
	CopyBindings         *bool  `yaml:"copy_bindings"`
	CopyIncludesExcludes bool   `yaml:"copy_includes_excludes"`
	CopyOptionMaps       bool   `yaml:"copy_option_maps"`
}

func (a duplicateArgs) options() mutate.DuplicateOptions {
	return mutate.DuplicateOptions{
		ID:                   a.ID,
		Label:                a.Label,
		Name:                 a.Name,
		WithChildren:         a.WithChildren,
		CopyBindings:         a.CopyBindings,
		CopyIncludesExcludes: a.CopyIncludesExcludes,
		CopyOptionMaps:       a.CopyOptionMaps,
	}
}

// placeArgs places a tag among siblings, a field within Tag's order, or an
// option within its field.
type placeArgs struct {
	Tag    string `yaml:"tag"`
	Index  *int   `yaml:"index"`
	Before string `yaml:"before"`
	After  string `yaml:"after"`
}

func (a placeArgs) placement() mutate.Placement {
	return mutate.Placement{Index: a.Index, BeforeID: a.Before, AfterID: a.After}
}

// edgeArgs names both endpoints by raw id. For service edges To is a
// service id rather than a node.
type edgeArgs struct {
	Kind string `yaml:"kind"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type serviceArgs struct {
	Service     *string `yaml:"service"`
	PricingRole *string `yaml:"pricing_role"`
}

func (a serviceArgs) patch() mutate.ServicePatch {
	return mutate.ServicePatch{ServiceID: a.Service, PricingRole: rolePtr(a.PricingRole)}
}

func rolePtr(s *string) *model.PricingRole {
	if s == nil {
		return nil
	}
	r := model.PricingRole(*s)
	return &r
}

// decodeArgs re-decodes a step's loose args map into a typed struct,
// rejecting unknown keys.
func decodeArgs(args map[string]interface{}, out interface{}) error {
	if len(args) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}
