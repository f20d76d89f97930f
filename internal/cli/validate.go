package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timeax/servicegraph/internal/compiler"
	"github.com/timeax/servicegraph/internal/model"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                       `json:"valid"`
	Fingerprint string                     `json:"fingerprint,omitempty"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
	Cycles      []compiler.CycleWarning    `json:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document>",
		Short: "Check a document against the structural invariants",
		Long: `Check a JSON or YAML document against the structural invariants.

Reports every violation (unknown parents, dangling bindings and includes,
duplicate ids, services on non-button fields, invalid pricing roles) and
every cycle in the tag parent graph.

Exit codes:
  0 - Document is valid
  1 - Violations found
  2 - Command error (file not found, unreadable document)

Examples:
  svcgraph validate ./doc.json
  svcgraph validate ./doc.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	doc, err := LoadDocument(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load document", err)
	}
	formatter.VerboseLog("Loaded %d tag(s) and %d field(s) from %s", len(doc.Tags), len(doc.Fields), path)

	result := validateDocument(&doc)
	if err := formatter.Result(result.Valid, result, func(w io.Writer) {
		writeValidationText(w, result)
	}); err != nil {
		return err
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}

// validateDocument runs the invariant checks. Cycles are already reported
// as E210 errors; the analysis adds the full path of each.
func validateDocument(doc *model.Document) ValidationResult {
	result := ValidationResult{
		Errors: compiler.Validate(doc),
		Cycles: compiler.AnalyzeTagCycles(doc),
	}
	result.Valid = len(result.Errors) == 0
	if fp, err := model.Fingerprint(doc); err == nil {
		result.Fingerprint = fp
	}
	return result
}

func writeValidationText(w io.Writer, result ValidationResult) {
	if result.Valid {
		fmt.Fprintln(w, "✓ Document is valid")
		if result.Fingerprint != "" {
			fmt.Fprintf(w, "  fingerprint: %s\n", result.Fingerprint)
		}
		return
	}

	fmt.Fprintf(w, "✗ Validation failed with %d error(s):\n", len(result.Errors))
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e.Error())
	}
	for _, c := range result.Cycles {
		fmt.Fprintf(w, "  cycle: %s\n", strings.Join(c.Path, " -> "))
	}
}
