package policy

import (
	"fmt"
	"log/slog"

	"github.com/timeax/servicegraph/internal/model"
)

// Verdict reasons.
const (
	ReasonMissingCapability = "missing_capability"
	ReasonConstraintPrefix  = "unsupported_constraint:"
	ReasonRateExceeded      = "rate_exceeds_primary"
	ReasonPolicyPrefix      = "policy:"
)

// RateRelation compares a candidate's rate to the primary service's rate.
type RateRelation string

const (
	RateLTE RateRelation = "lte"
	RateLT  RateRelation = "lt"
	RateEQ  RateRelation = "eq"
	RateAny RateRelation = "any"
)

// Fallback carries the rate policy of a group.
type Fallback struct {
	// Relation defaults to RateLTE.
	Relation RateRelation `json:"relation,omitempty" yaml:"relation,omitempty"`

	// SlackPercent loosens lte/lt/eq by a percentage of the primary rate.
	SlackPercent float64 `json:"slack_percent,omitempty" yaml:"slack_percent,omitempty"`
}

// Context describes the visible group candidates are evaluated against.
type Context struct {
	// TagID is the tag the group is rooted at.
	TagID string

	// UsedServiceIDs are the services already in the group. The first one
	// is the primary service.
	UsedServiceIDs []string

	// GlobalServiceIDs are the services mapped anywhere in the document,
	// seen by global-scope rules.
	GlobalServiceIDs []string

	// EffectiveConstraints are the group's propagated constraint flags.
	EffectiveConstraints *model.Constraints

	// Rules are compiled dynamic policies.
	Rules []Rule

	// Fallback holds the rate policy. Nil means candidates must not exceed the primary rate.
	Fallback *Fallback
}

// Verdict is the decision for one candidate.
type Verdict struct {
	ID              string                   `json:"id"`
	OK              bool                     `json:"ok"`
	FitsConstraints bool                     `json:"fits_constraints"`
	PassesRate      bool                     `json:"passes_rate"`
	PassesPolicies  bool                     `json:"passes_policies"`
	Reasons         []string                 `json:"reasons,omitempty"`
	PolicyErrors    []RuleResult             `json:"policy_errors,omitempty"`
	PolicyWarnings  []RuleResult             `json:"policy_warnings,omitempty"`
	Cap             *model.ServiceCapability `json:"cap,omitempty"`
	Rate            *float64                 `json:"rate,omitempty"`
}

// FilterServicesForVisibleGroup evaluates every candidate not already used
// by the group. Candidates are returned in input order; duplicates are
// evaluated once.
func FilterServicesForVisibleGroup(candidates []string, ctx Context, caps model.CapabilityMap) []Verdict {
	used := make(map[string]bool, len(ctx.UsedServiceIDs))
	for _, id := range ctx.UsedServiceIDs {
		used[id] = true
	}

	rules := make([]Rule, 0, len(ctx.Rules))
	for _, r := range ctx.Rules {
		r.Normalize()
		if r.applies(ctx.TagID) {
			rules = append(rules, r)
		}
	}

	var verdicts []Verdict
	for _, id := range candidates {
		if used[id] {
			continue
		}
		used[id] = true
		verdicts = append(verdicts, evaluate(id, ctx, caps, rules))
	}
	return verdicts
}

func evaluate(id string, ctx Context, caps model.CapabilityMap, rules []Rule) Verdict {
	v := Verdict{ID: id}
	c, ok := caps[id]
	if !ok {
		v.Reasons = []string{ReasonMissingCapability}
		return v
	}
	v.Cap = &c
	rate := c.Rate
	v.Rate = &rate

	v.FitsConstraints = true
	for _, k := range ctx.EffectiveConstraints.Required() {
		if !c.Supports(k) {
			v.FitsConstraints = false
			v.Reasons = append(v.Reasons, ReasonConstraintPrefix+k)
		}
	}

	v.PassesRate = passesRate(c, ctx, caps)
	if !v.PassesRate {
		v.Reasons = append(v.Reasons, ReasonRateExceeded)
	}

	v.PassesPolicies = true
	for i := range rules {
		r := &rules[i]
		set := append(append([]string(nil), ctx.UsedServiceIDs...), id)
		if r.Scope == ScopeGlobal {
			set = append(set, ctx.GlobalServiceIDs...)
			set = dedupe(set)
		}
		if r.Evaluate(set, caps) {
			continue
		}
		res := RuleResult{RuleID: r.ID, Severity: r.Severity, Message: r.describe()}
		if r.Severity == SeverityWarning {
			v.PolicyWarnings = append(v.PolicyWarnings, res)
			continue
		}
		v.PassesPolicies = false
		v.PolicyErrors = append(v.PolicyErrors, res)
		v.Reasons = append(v.Reasons, ReasonPolicyPrefix+r.ID)
	}

	v.OK = v.FitsConstraints && v.PassesRate && v.PassesPolicies
	return v
}

// passesRate compares against the primary service. A missing primary or a
// primary without a capability record passes.
func passesRate(c model.ServiceCapability, ctx Context, caps model.CapabilityMap) bool {
	if len(ctx.UsedServiceIDs) == 0 {
		return true
	}
	primary, ok := caps[ctx.UsedServiceIDs[0]]
	if !ok {
		return true
	}
	fb := Fallback{Relation: RateLTE}
	if ctx.Fallback != nil {
		fb = *ctx.Fallback
	}
	limit := primary.Rate * (1 + fb.SlackPercent/100)
	switch fb.Relation {
	case RateAny:
		return true
	case RateLT:
		return c.Rate < limit
	case RateEQ:
		return c.Rate >= primary.Rate-(limit-primary.Rate) && c.Rate <= limit
	default:
		return c.Rate <= limit
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Diagnostic is a compile-time problem with one raw policy.
type Diagnostic struct {
	RuleID   string `json:"rule_id,omitempty"`
	Path     string `json:"path,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

func (d Diagnostic) String() string {
	if d.Path != "" {
		return fmt.Sprintf("%s: %s: %s", d.Severity, d.Path, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// Compiled is the output of a policy compiler.
type Compiled struct {
	Rules       []Rule       `json:"policies"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Compiler turns raw policy source into rules. An error means the source
// could not be read at all; per-rule problems are diagnostics.
type Compiler interface {
	Compile(raw []byte) (Compiled, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(raw []byte) (Compiled, error)

// Compile implements Compiler.
func (f CompilerFunc) Compile(raw []byte) (Compiled, error) { return f(raw) }

// Evaluator pairs a capability map with a compiler for raw policies.
type Evaluator struct {
	caps     model.CapabilityMap
	compiler Compiler
	logger   *slog.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithCompiler sets the compiler used for raw policies.
func WithCompiler(c Compiler) EvaluatorOption {
	return func(e *Evaluator) { e.compiler = c }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) { e.logger = l }
}

// NewEvaluator creates an Evaluator over a capability map.
func NewEvaluator(caps model.CapabilityMap, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{caps: caps, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report is the result of Evaluator.Filter.
type Report struct {
	Verdicts    []Verdict    `json:"verdicts"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Filter compiles raw (when non-empty), appends the rules to ctx.Rules and
// evaluates the candidates.
func (e *Evaluator) Filter(candidates []string, ctx Context, raw []byte) (Report, error) {
	var rep Report
	if len(raw) > 0 {
		if e.compiler == nil {
			return rep, fmt.Errorf("raw policies given but no policy compiler configured")
		}
		compiled, err := e.compiler.Compile(raw)
		if err != nil {
			return rep, fmt.Errorf("compile policies: %w", err)
		}
		for _, d := range compiled.Diagnostics {
			e.logger.Warn("policy diagnostic",
				"rule_id", d.RuleID,
				"path", d.Path,
				"message", d.Message,
			)
		}
		rep.Diagnostics = compiled.Diagnostics
		ctx.Rules = append(append([]Rule(nil), ctx.Rules...), compiled.Rules...)
	}

	rep.Verdicts = FilterServicesForVisibleGroup(candidates, ctx, e.caps)
	e.logger.Debug("services filtered",
		"tag_id", ctx.TagID,
		"candidates", len(candidates),
		"verdicts", len(rep.Verdicts),
		"rules", len(ctx.Rules),
	)
	return rep, nil
}
