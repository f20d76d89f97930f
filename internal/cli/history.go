package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database  string
	Name      string
	Revisions bool
	Export    string // revision id to export
	Output    string
}

// HistoryResult holds the stored journal and revision log.
type HistoryResult struct {
	Document  string                `json:"document"`
	Head      *store.Revision       `json:"head,omitempty"`
	Entries   []model.HistoryRecord `json:"entries"`
	Revisions []store.Revision      `json:"revisions,omitempty"`
	Exported  string                `json:"exported,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the journal of a document database",
		Long: `Show the committed history entries stored in a SQLite database.

Every entry committed by "svcgraph apply --db" is journaled with its
label, reason and the fingerprint of the document after it. With
--revisions the stored document revisions are listed as well, and
--export writes one revision out as JSON.

Examples:
  svcgraph history --db ./graph.db
  svcgraph history --db ./graph.db --revisions --format json
  svcgraph history --db ./graph.db --export <revision-id> --out old.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Name, "name", store.DefaultDocumentName, "document name within the database")
	cmd.Flags().BoolVar(&opts.Revisions, "revisions", false, "list stored document revisions")
	cmd.Flags().StringVar(&opts.Export, "export", "", "revision id to export")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "export destination (required with --export)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Export != "" && opts.Output == "" {
		return formatter.Fail(ExitCommandError, "--export requires --out", nil)
	}

	// Opening would create an empty database.
	if _, err := os.Stat(opts.Database); errors.Is(err, fs.ErrNotExist) {
		return formatter.Fail(ExitCommandError, "database not found",
			&LoadError{Code: ErrCodeNotFound, Path: opts.Database, Message: "file not found"})
	}

	st, err := store.Open(opts.Database, store.WithDocumentName(opts.Name))
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result := HistoryResult{Document: st.Name()}
	if head, ok, err := st.Head(ctx); err != nil {
		return formatter.Fail(ExitCommandError, "failed to read head revision", err)
	} else if ok {
		result.Head = &head
	}
	if result.Entries, err = st.ListHistory(ctx); err != nil {
		return formatter.Fail(ExitCommandError, "failed to read history journal", err)
	}
	if opts.Revisions {
		if result.Revisions, err = st.Revisions(ctx); err != nil {
			return formatter.Fail(ExitCommandError, "failed to list revisions", err)
		}
	}

	if opts.Export != "" {
		doc, err := st.ReadRevision(ctx, opts.Export)
		if errors.Is(err, store.ErrRevisionNotFound) {
			return formatter.Fail(ExitFailure, fmt.Sprintf("revision %s not found", opts.Export), nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, "failed to read revision", err)
		}
		if err := WriteDocument(opts.Output, doc); err != nil {
			return formatter.Fail(ExitCommandError, "failed to export revision", err)
		}
		result.Exported = opts.Output
	}

	return formatter.Result(true, result, func(w io.Writer) {
		writeHistoryText(w, result)
	})
}

func writeHistoryText(w io.Writer, result HistoryResult) {
	fmt.Fprintf(w, "Document: %s\n", result.Document)
	if result.Head != nil {
		fmt.Fprintf(w, "Head: %s (seq %d, %s)\n", result.Head.ID, result.Head.Seq, truncateID(result.Head.Fingerprint))
	}

	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "No history entries.")
	} else {
		fmt.Fprintf(w, "\nHistory (%d entries):\n", len(result.Entries))
		for _, e := range result.Entries {
			fmt.Fprintf(w, "  [%d] %-24s %-12s %s\n", e.Seq, e.Label, e.Reason, truncateID(e.Fingerprint))
		}
	}

	if len(result.Revisions) > 0 {
		fmt.Fprintf(w, "\nRevisions (%d):\n", len(result.Revisions))
		for _, r := range result.Revisions {
			fmt.Fprintf(w, "  [%d] %s %s\n", r.Seq, r.ID, truncateID(r.Fingerprint))
		}
	}
	if result.Exported != "" {
		fmt.Fprintf(w, "\nExported to %s\n", result.Exported)
	}
}

// truncateID shortens long ids and hashes for display.
func truncateID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}
