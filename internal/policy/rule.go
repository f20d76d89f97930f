package policy

import (
	"fmt"
	"strings"
)

// Op is a rule operator over the projected values of the matched services.
type Op string

const (
	OpAllEqual Op = "all_equal"
	OpUnique   Op = "unique"
	OpNoMix    Op = "no_mix"
	OpAllTrue  Op = "all_true"
	OpAnyTrue  Op = "any_true"
	OpMaxCount Op = "max_count"
	OpMinCount Op = "min_count"
)

// Ops lists every operator in documentation order.
var Ops = []Op{OpAllEqual, OpUnique, OpNoMix, OpAllTrue, OpAnyTrue, OpMaxCount, OpMinCount}

// Scope selects the service set a rule sees.
type Scope string

const (
	// ScopeVisibleGroup evaluates over the group's used services plus the candidate.
	ScopeVisibleGroup Scope = "visible_group"

	// ScopeGlobal additionally includes every service mapped anywhere in the document.
	ScopeGlobal Scope = "global"
)

// Severity decides whether a failing rule fails the candidate.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// SubjectServices is the only subject rules are evaluated against.
const SubjectServices = "services"

// DefaultProjection projects each service to its id.
const DefaultProjection = "service.id"

// Filter narrows the services a rule applies to. Empty lists match anything.
type Filter struct {
	// TagIDs restricts the rule to groups rooted at one of these tags.
	TagIDs []string `json:"tag_id,omitempty" yaml:"tag_id,omitempty"`

	// HandlerIDs keeps only services run by one of these handlers.
	HandlerIDs []string `json:"handler_id,omitempty" yaml:"handler_id,omitempty"`

	// PlatformIDs keeps only services on one of these platforms.
	PlatformIDs []string `json:"platform_id,omitempty" yaml:"platform_id,omitempty"`
}

// Rule is a compiled dynamic policy.
type Rule struct {
	ID         string   `json:"id" yaml:"id"`
	Label      string   `json:"label,omitempty" yaml:"label,omitempty"`
	Subject    string   `json:"subject" yaml:"subject"`
	Scope      Scope    `json:"scope" yaml:"scope"`
	Filter     *Filter  `json:"filter,omitempty" yaml:"filter,omitempty"`
	Projection string   `json:"projection" yaml:"projection"`
	Op         Op       `json:"op" yaml:"op"`
	Count      int      `json:"count,omitempty" yaml:"count,omitempty"`
	Values     []string `json:"values,omitempty" yaml:"values,omitempty"`
	Severity   Severity `json:"severity" yaml:"severity"`
	Message    string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// Normalize fills defaults: subject services, scope visible_group,
// projection service.id, severity error.
func (r *Rule) Normalize() {
	if r.Subject == "" {
		r.Subject = SubjectServices
	}
	if r.Scope == "" {
		r.Scope = ScopeVisibleGroup
	}
	if r.Projection == "" {
		r.Projection = DefaultProjection
	}
	if r.Severity == "" {
		r.Severity = SeverityError
	}
}

// Check reports the first structural problem with a normalized rule.
func (r *Rule) Check() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("rule id is required")
	}
	switch r.Scope {
	case ScopeVisibleGroup, ScopeGlobal:
	default:
		return fmt.Errorf("unknown scope %q", r.Scope)
	}
	switch r.Severity {
	case SeverityError, SeverityWarning:
	default:
		return fmt.Errorf("unknown severity %q", r.Severity)
	}
	if !ValidOp(r.Op) {
		return fmt.Errorf("unknown op %q", r.Op)
	}
	if (r.Op == OpMaxCount || r.Op == OpMinCount) && r.Count < 0 {
		return fmt.Errorf("%s needs a non-negative count", r.Op)
	}
	if _, err := parseProjection(r.Projection); err != nil {
		return err
	}
	return nil
}

// ValidOp reports whether op is a known operator.
func ValidOp(op Op) bool {
	for _, o := range Ops {
		if o == op {
			return true
		}
	}
	return false
}

// describe is the message reported when the rule fails.
func (r *Rule) describe() string {
	if r.Message != "" {
		return r.Message
	}
	name := r.ID
	if r.Label != "" {
		name = r.Label
	}
	switch r.Op {
	case OpMaxCount:
		return fmt.Sprintf("%s: at most %d services allowed", name, r.Count)
	case OpMinCount:
		return fmt.Sprintf("%s: at least %d services required", name, r.Count)
	}
	return fmt.Sprintf("%s: %s on %s failed", name, r.Op, r.Projection)
}
