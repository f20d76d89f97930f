package compiler

import (
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/timeax/servicegraph/internal/policy"
)

// Diagnostic severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// CompileError is a source-level failure that stops compilation.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

// PolicyCompiler implements policy.Compiler over CUE or YAML source.
type PolicyCompiler struct {
	// YAML selects YAML input; otherwise the source is CUE (JSON is valid CUE).
	YAML bool

	// Filename is used in positions. Default: "policies.cue".
	Filename string
}

// Compile implements policy.Compiler.
func (c PolicyCompiler) Compile(raw []byte) (policy.Compiled, error) {
	if c.YAML {
		return CompileYAML(raw)
	}
	name := c.Filename
	if name == "" {
		name = "policies.cue"
	}
	return compileCUE(raw, name)
}

// Compile compiles CUE or JSON policy source.
//
// Accepted shapes, at the top level or under a "policies" key:
//
//	[{id: "one", op: "max_count", count: 1}]
//	{one: {op: "max_count", count: 1}}
//
// In the struct form the label is the default rule id. Invalid rules are
// dropped and reported as diagnostics; only unreadable source is an error.
func Compile(raw []byte) (policy.Compiled, error) {
	return compileCUE(raw, "policies.cue")
}

// CompileYAML compiles YAML policy source with the same shapes as Compile.
func CompileYAML(raw []byte) (policy.Compiled, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return policy.Compiled{}, fmt.Errorf("parse policy yaml: %w", err)
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return policy.Compiled{}, fmt.Errorf("convert policy yaml: %w", err)
	}
	return compileCUE(js, "policies.yaml")
}

func compileCUE(raw []byte, filename string) (policy.Compiled, error) {
	var out policy.Compiled
	if strings.TrimSpace(string(raw)) == "" {
		return out, nil
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(raw, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return out, formatCUEError(err)
	}

	if p := v.LookupPath(cue.ParsePath("policies")); p.Exists() {
		v = p
	}

	seen := make(map[string]bool)
	add := func(r policy.Rule, diag *policy.Diagnostic) {
		if diag != nil {
			out.Diagnostics = append(out.Diagnostics, *diag)
			if diag.Severity == SeverityError {
				return
			}
		}
		if seen[r.ID] {
			out.Diagnostics = append(out.Diagnostics, policy.Diagnostic{
				RuleID: r.ID, Message: "duplicate rule id, later rule dropped", Severity: SeverityError,
			})
			return
		}
		seen[r.ID] = true
		out.Rules = append(out.Rules, r)
	}

	switch v.IncompleteKind() {
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return out, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			add(compileRule(iter.Value(), fmt.Sprintf("policies[%d]", i), ""))
		}
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return out, formatCUEError(err)
		}
		for iter.Next() {
			label := iter.Label()
			add(compileRule(iter.Value(), "policies."+label, label))
		}
	default:
		return out, &CompileError{Field: "policies", Message: "must be a list or a struct of rules", Pos: v.Pos()}
	}
	return out, nil
}

// ruleSource is the authored form of a rule. Filter lists accept a single
// string too.
type ruleSource struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Subject    string     `json:"subject"`
	Scope      string     `json:"scope"`
	Filter     *filterSrc `json:"filter"`
	Projection string     `json:"projection"`
	Op         string     `json:"op"`
	Count      *int       `json:"count"`
	Value      *int       `json:"value"`
	Values     stringList `json:"values"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
}

type filterSrc struct {
	TagID      stringList `json:"tag_id"`
	HandlerID  stringList `json:"handler_id"`
	PlatformID stringList `json:"platform_id"`
}

type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = stringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected a string or list of strings")
	}
	*s = many
	return nil
}

func compileRule(v cue.Value, path, defaultID string) (policy.Rule, *policy.Diagnostic) {
	fail := func(id, msg string, sev string) (policy.Rule, *policy.Diagnostic) {
		return policy.Rule{}, &policy.Diagnostic{RuleID: id, Path: positioned(path, v.Pos()), Message: msg, Severity: sev}
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fail(defaultID, formatCUEError(err).Error(), SeverityError)
	}
	js, err := v.MarshalJSON()
	if err != nil {
		return fail(defaultID, formatCUEError(err).Error(), SeverityError)
	}
	var src ruleSource
	if err := json.Unmarshal(js, &src); err != nil {
		return fail(defaultID, err.Error(), SeverityError)
	}

	r := policy.Rule{
		ID:         src.ID,
		Label:      src.Label,
		Subject:    src.Subject,
		Scope:      policy.Scope(src.Scope),
		Projection: src.Projection,
		Op:         policy.Op(src.Op),
		Values:     src.Values,
		Severity:   policy.Severity(src.Severity),
		Message:    src.Message,
	}
	if r.ID == "" {
		r.ID = defaultID
	}
	switch {
	case src.Count != nil:
		r.Count = *src.Count
	case src.Value != nil:
		r.Count = *src.Value
	case r.Op == policy.OpMaxCount || r.Op == policy.OpMinCount:
		return fail(r.ID, fmt.Sprintf("%s needs a count", r.Op), SeverityError)
	}
	if src.Filter != nil {
		r.Filter = &policy.Filter{
			TagIDs:      src.Filter.TagID,
			HandlerIDs:  src.Filter.HandlerID,
			PlatformIDs: src.Filter.PlatformID,
		}
	}
	r.Normalize()
	if err := r.Check(); err != nil {
		return fail(r.ID, err.Error(), SeverityError)
	}
	if r.Subject != policy.SubjectServices {
		return r, &policy.Diagnostic{
			RuleID: r.ID, Path: positioned(path, v.Pos()),
			Message: fmt.Sprintf("subject %q is never evaluated", r.Subject), Severity: SeverityWarning,
		}
	}
	return r, nil
}

func positioned(path string, pos token.Pos) string {
	if pos.IsValid() {
		return fmt.Sprintf("%s (%s:%d:%d)", path, pos.Filename(), pos.Line(), pos.Column())
	}
	return path
}
