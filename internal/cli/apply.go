package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/timeax/servicegraph/internal/editor"
	"github.com/timeax/servicegraph/internal/harness"
	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Database          string
	Name              string
	Capabilities      string
	Output            string
	InPlace           bool
	HistoryLimit      int
	ValidateAfterEach bool
}

// ApplyResult summarizes an applied edit script.
type ApplyResult struct {
	Steps       int                   `json:"steps"`
	Failed      int                   `json:"failed"`
	Failures    []string              `json:"failures,omitempty"`
	Diagnostics []editor.ErrorInfo    `json:"diagnostics,omitempty"`
	History     []string              `json:"history"`
	Journal     []model.HistoryRecord `json:"journal,omitempty"`
	Fingerprint string                `json:"fingerprint"`
	Output      string                `json:"output,omitempty"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <document> <script>",
		Short: "Apply an edit script to a document",
		Long: `Apply a YAML edit script to a document through the editor.

The script is a list of steps in the scenario step format:

  steps:
    - op: addTag
      args: {id: "t:new", label: New, parent: "t:root"}
    - op: transact
      label: cleanup
      steps:
        - op: remove
          node: "f:old"

Failing steps are reported and skipped; later steps still run. With --db
the document is stored in a SQLite database and every committed history
entry is journaled there.

Exit codes:
  0 - All steps succeeded
  1 - One or more steps failed
  2 - Command error (unreadable input, database error)

Examples:
  svcgraph apply doc.json edits.yaml --out result.json
  svcgraph apply doc.json edits.yaml --in-place --caps caps.json
  svcgraph apply doc.json edits.yaml --db ./graph.db --validate`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: in-memory)")
	cmd.Flags().StringVar(&opts.Name, "name", store.DefaultDocumentName, "document name within the database")
	cmd.Flags().StringVar(&opts.Capabilities, "caps", "", "capability map (JSON or YAML)")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "write the resulting document to this path")
	cmd.Flags().BoolVar(&opts.InPlace, "in-place", false, "overwrite the input document")
	cmd.Flags().IntVar(&opts.HistoryLimit, "history-limit", 0, "undo history limit (default 100)")
	cmd.Flags().BoolVar(&opts.ValidateAfterEach, "validate", false, "validate after every committed entry")

	return cmd
}

func runApply(opts *ApplyOptions, docPath, scriptPath string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.InPlace && opts.Output != "" {
		return formatter.Fail(ExitCommandError, "--out and --in-place are mutually exclusive", nil)
	}

	doc, err := LoadDocument(docPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load document", err)
	}
	script, err := harness.LoadScript(scriptPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load script", err)
	}
	var caps model.CapabilityMap
	if opts.Capabilities != "" {
		if caps, err = LoadCapabilities(opts.Capabilities); err != nil {
			return formatter.Fail(ExitCommandError, "failed to load capabilities", err)
		}
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = ":memory:"
	}
	st, err := store.Open(dbPath, store.WithDocumentName(opts.Name))
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.ReplaceDocument(ctx, doc); err != nil {
		return formatter.Fail(ExitCommandError, "failed to store document", err)
	}
	if caps != nil {
		if err := st.PutCapabilities(ctx, caps); err != nil {
			return formatter.Fail(ExitCommandError, "failed to store capabilities", err)
		}
	}
	lastSeq, err := st.LastHistorySeq(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to read history journal", err)
	}

	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())
	result := ApplyResult{Steps: len(script.Steps)}
	ed := editor.New(st,
		editor.WithHistoryLimit(opts.HistoryLimit),
		editor.WithValidateAfterEach(opts.ValidateAfterEach),
		editor.WithLogger(logger),
		editor.WithClock(editor.NewClockAt(lastSeq)),
		editor.WithNotifier(editor.NotifierFunc(func(e editor.Event) {
			if e.Type == editor.EventError && e.Error != nil {
				result.Diagnostics = append(result.Diagnostics, *e.Error)
			}
		})),
	)
	runner := harness.NewRunner(ed, logger)

	for i, step := range script.Steps {
		formatter.VerboseLog("steps[%d] %s %s", i, step.Op, step.Node)
		if err := runner.Step(ctx, step); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, fmt.Sprintf("steps[%d] %s: [%s] %v", i, step.Op, harness.ErrorCode(err), err))
		}
	}

	final, err := ed.Document(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to read final document", err)
	}
	if result.Fingerprint, err = model.Fingerprint(&final); err != nil {
		return formatter.Fail(ExitCommandError, "failed to fingerprint document", err)
	}
	result.History = append([]string{}, ed.HistoryLabels()...)
	if result.Journal, err = st.ListHistory(ctx); err != nil {
		return formatter.Fail(ExitCommandError, "failed to read history journal", err)
	}

	switch {
	case opts.InPlace:
		result.Output = docPath
	case opts.Output != "":
		result.Output = opts.Output
	}
	if result.Output != "" {
		if err := WriteDocument(result.Output, final); err != nil {
			return formatter.Fail(ExitCommandError, "failed to write document", err)
		}
	}

	ok := result.Failed == 0
	if err := formatter.Result(ok, result, func(w io.Writer) {
		writeApplyText(w, result)
	}); err != nil {
		return err
	}
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d step(s) failed", result.Failed, result.Steps))
	}
	return nil
}

func writeApplyText(w io.Writer, result ApplyResult) {
	if result.Failed == 0 {
		fmt.Fprintf(w, "✓ Applied %d step(s)\n", result.Steps)
	} else {
		fmt.Fprintf(w, "✗ %d of %d step(s) failed:\n", result.Failed, result.Steps)
		for _, f := range result.Failures {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	for _, d := range result.Diagnostics {
		if d.Node != "" {
			fmt.Fprintf(w, "  ! %s %s: %s\n", d.Code, d.Node, d.Message)
		} else {
			fmt.Fprintf(w, "  ! %s: %s\n", d.Code, d.Message)
		}
	}
	fmt.Fprintf(w, "  history: %d entr(ies), journal: %d record(s)\n", len(result.History), len(result.Journal))
	fmt.Fprintf(w, "  fingerprint: %s\n", result.Fingerprint)
	if result.Output != "" {
		fmt.Fprintf(w, "  written to %s\n", result.Output)
	}
}
