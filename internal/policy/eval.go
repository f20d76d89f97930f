package policy

import (
	"github.com/timeax/servicegraph/internal/model"
)

// RuleResult is the outcome of one rule for one candidate.
type RuleResult struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// applies reports whether a rule is relevant to the group at tagID.
func (r *Rule) applies(tagID string) bool {
	if r.Subject != SubjectServices {
		return false
	}
	if r.Filter == nil || len(r.Filter.TagIDs) == 0 {
		return true
	}
	return contains(r.Filter.TagIDs, tagID)
}

// matches reports whether a service passes the rule's handler and platform filters.
func (r *Rule) matches(c model.ServiceCapability) bool {
	if r.Filter == nil {
		return true
	}
	if len(r.Filter.HandlerIDs) > 0 && !contains(r.Filter.HandlerIDs, c.HandlerID) {
		return false
	}
	if len(r.Filter.PlatformIDs) > 0 && !contains(r.Filter.PlatformIDs, c.PlatformID) {
		return false
	}
	return true
}

// Evaluate runs the operator over the projected values of services.
// Services missing from caps are skipped.
func (r *Rule) Evaluate(services []string, caps model.CapabilityMap) bool {
	proj, err := parseProjection(r.Projection)
	if err != nil {
		return false
	}
	var values []any
	for _, id := range services {
		c, ok := caps[id]
		if !ok || !r.matches(c) {
			continue
		}
		values = append(values, proj.value(c))
	}
	return r.holds(values)
}

func (r *Rule) holds(values []any) bool {
	switch r.Op {
	case OpAllEqual:
		for _, v := range values[min(1, len(values)):] {
			if key(v) != key(values[0]) {
				return false
			}
		}
		return true

	case OpUnique:
		seen := make(map[string]bool, len(values))
		for _, v := range values {
			if seen[key(v)] {
				return false
			}
			seen[key(v)] = true
		}
		return true

	case OpNoMix:
		if len(r.Values) == 0 {
			r2 := *r
			r2.Op = OpAllEqual
			return r2.holds(values)
		}
		in, out := 0, 0
		for _, v := range values {
			if contains(r.Values, display(v)) {
				in++
			} else {
				out++
			}
		}
		return in == 0 || out == 0

	case OpAllTrue:
		for _, v := range values {
			if !truthy(v) {
				return false
			}
		}
		return true

	case OpAnyTrue:
		for _, v := range values {
			if truthy(v) {
				return true
			}
		}
		return false

	case OpMaxCount:
		return len(values) <= r.Count

	case OpMinCount:
		return len(values) >= r.Count
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
