package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timeax/servicegraph/internal/editor"
	"github.com/timeax/servicegraph/internal/policy"
	"github.com/timeax/servicegraph/internal/store"
)

// FilterOptions holds flags for the filter command.
type FilterOptions struct {
	*RootOptions
	Capabilities string
	TagID        string
	Used         string
	Candidates   string
	Policies     string
	Relation     string
	Slack        float64
}

// NewFilterCommand creates the filter command.
func NewFilterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FilterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "filter <document>",
		Short: "Evaluate candidate services for a visible group",
		Long: `Evaluate candidate services for the group rooted at a tag.

Each candidate is checked against the tag's effective constraints, the
rate of the group's primary service (the first --used id) and any
dynamic policies. Without --used the tag's own service is the primary.
Without --candidates every service in the capability map is evaluated.

Policies may be CUE, JSON or YAML:

  policies: {
    one_handler: {op: "all_equal", projection: "service.handler_id"}
  }

Examples:
  svcgraph filter doc.json --caps caps.json --tag t:social
  svcgraph filter doc.json --caps caps.json --tag t:social --used svc-a --candidates svc-b,svc-c
  svcgraph filter doc.json --caps caps.json --tag t:social --policies rules.cue --relation lt --slack 10`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Capabilities, "caps", "", "capability map (JSON or YAML, required)")
	_ = cmd.MarkFlagRequired("caps")
	cmd.Flags().StringVar(&opts.TagID, "tag", "", "tag the visible group is rooted at")
	cmd.Flags().StringVar(&opts.Used, "used", "", "comma separated service ids already in the group")
	cmd.Flags().StringVar(&opts.Candidates, "candidates", "", "comma separated candidate service ids")
	cmd.Flags().StringVar(&opts.Policies, "policies", "", "policy file (.cue, .json, .yaml)")
	cmd.Flags().StringVar(&opts.Relation, "relation", string(policy.RateLTE), "rate relation to the primary (lte|lt|eq|any)")
	cmd.Flags().Float64Var(&opts.Slack, "slack", 0, "rate slack in percent of the primary rate")

	return cmd
}

func runFilter(opts *FilterOptions, docPath string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	relation := policy.RateRelation(opts.Relation)
	switch relation {
	case policy.RateLTE, policy.RateLT, policy.RateEQ, policy.RateAny:
	default:
		return formatter.Fail(ExitCommandError, fmt.Sprintf("invalid relation %q", opts.Relation), nil)
	}

	doc, err := LoadDocument(docPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load document", err)
	}
	caps, err := LoadCapabilities(opts.Capabilities)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load capabilities", err)
	}

	pctx := policy.Context{
		TagID:          opts.TagID,
		UsedServiceIDs: splitList(opts.Used),
		Fallback:       &policy.Fallback{Relation: relation, SlackPercent: opts.Slack},
	}
	if opts.TagID != "" {
		tag := doc.Tag(opts.TagID)
		if tag == nil {
			return formatter.Fail(ExitCommandError, fmt.Sprintf("tag %s not found", opts.TagID), nil)
		}
		if len(pctx.UsedServiceIDs) == 0 && tag.ServiceID != "" {
			pctx.UsedServiceIDs = []string{tag.ServiceID}
		}
	}

	candidates := splitList(opts.Candidates)
	if len(candidates) == 0 {
		for id := range caps {
			candidates = append(candidates, id)
		}
		sort.Strings(candidates)
	}

	edOpts := []editor.EditorOption{editor.WithLogger(newLogger(opts.RootOptions, formatter.GetErrWriter()))}
	var raw []byte
	if opts.Policies != "" {
		var c policy.Compiler
		if raw, c, err = LoadPolicies(opts.Policies); err != nil {
			return formatter.Fail(ExitCommandError, "failed to load policies", err)
		}
		edOpts = append(edOpts, editor.WithPolicyCompiler(c))
	}

	ed := editor.New(store.NewMemory(doc, caps), edOpts...)
	report, err := ed.FilterServices(ctx, candidates, pctx, raw)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to evaluate services", err)
	}
	formatter.VerboseLog("Evaluated %d candidate(s) against %d used service(s)", len(candidates), len(pctx.UsedServiceIDs))

	return formatter.Result(true, report, func(w io.Writer) {
		writeFilterText(w, report)
	})
}

func writeFilterText(w io.Writer, report policy.Report) {
	if len(report.Verdicts) == 0 {
		fmt.Fprintln(w, "No candidates to evaluate.")
	}
	for _, v := range report.Verdicts {
		if v.OK {
			fmt.Fprintf(w, "✓ %s\n", v.ID)
		} else {
			fmt.Fprintf(w, "✗ %s: %s\n", v.ID, strings.Join(v.Reasons, ", "))
		}
		for _, r := range v.PolicyWarnings {
			fmt.Fprintf(w, "  warning: %s: %s\n", r.RuleID, r.Message)
		}
	}
	for _, d := range report.Diagnostics {
		fmt.Fprintf(w, "! %s\n", d.String())
	}
}
