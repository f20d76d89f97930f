package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/timeax/servicegraph/internal/compiler"
	"github.com/timeax/servicegraph/internal/policy"
)

// NewPolicyCommand creates the policy command group.
func NewPolicyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Work with dynamic service policies",
	}
	cmd.AddCommand(newPolicyCompileCommand(rootOpts))
	return cmd
}

func newPolicyCompileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a policy file and report diagnostics",
		Long: `Compile a CUE, JSON or YAML policy file into normalized rules.

Invalid rules are dropped and reported as diagnostics. Unreadable source
is a command error.

Exit codes:
  0 - Every rule compiled
  1 - One or more rules were rejected
  2 - Command error (file not found, syntax error)

Examples:
  svcgraph policy compile rules.cue
  svcgraph policy compile rules.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPolicyCompile(rootOpts, args[0], cmd)
		},
	}
}

func runPolicyCompile(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	raw, c, err := LoadPolicies(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load policies", err)
	}
	compiled, err := c.Compile(raw)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to compile policies", err)
	}
	formatter.VerboseLog("Compiled %d rule(s) from %s", len(compiled.Rules), path)

	rejected := 0
	for _, d := range compiled.Diagnostics {
		if d.Severity == compiler.SeverityError {
			rejected++
		}
	}

	if err := formatter.Result(rejected == 0, compiled, func(w io.Writer) {
		writePolicyText(w, compiled)
	}); err != nil {
		return err
	}
	if rejected > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d rule(s) rejected", rejected))
	}
	return nil
}

func writePolicyText(w io.Writer, compiled policy.Compiled) {
	fmt.Fprintf(w, "Compiled %d rule(s)\n", len(compiled.Rules))
	for _, r := range compiled.Rules {
		fmt.Fprintf(w, "  %s: %s %s (%s, %s)\n", r.ID, r.Op, r.Projection, r.Scope, r.Severity)
	}
	for _, d := range compiled.Diagnostics {
		fmt.Fprintf(w, "! %s\n", d.String())
	}
}
