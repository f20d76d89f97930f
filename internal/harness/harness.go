package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/timeax/servicegraph/internal/editor"
	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/store"
	"github.com/timeax/servicegraph/internal/testutil"
)

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes editor and harness logs to l.
//
// Default: logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory SQLite store for isolation, so
// every commit also exercises revision storage and the history journal.
// Entry ids, revision ids and the editor clock are deterministic.
//
// Execution flow:
// 1. Create fresh in-memory store seeded with the document and capabilities
// 2. Build an editor with a recorder, a view and sequential ids
// 3. Run steps, checking expect_error and moved
// 4. Snapshot trace, history, journal and final document
// 5. Evaluate assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx := context.Background()

	doc, caps, err := loadFixtures(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:",
		store.WithDocumentName(scenario.Name),
		store.WithRevisionIDs(testutil.NewSequentialIDs("rev").Func()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.ReplaceDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to seed document: %w", err)
	}
	if err := st.PutCapabilities(ctx, caps); err != nil {
		return nil, fmt.Errorf("failed to seed capabilities: %w", err)
	}

	rec := testutil.NewRecorder()
	ed := editor.New(st,
		editor.WithHistoryLimit(scenario.HistoryLimit),
		editor.WithValidateAfterEach(scenario.ValidateAfterEach),
		editor.WithLogger(cfg.logger),
		editor.WithView(testutil.NewView()),
		editor.WithNotifier(rec),
		editor.WithEntryIDs(testutil.NewSequentialIDs("h")),
	)
	runner := NewRunner(ed, cfg.logger)

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := runner.Step(ctx, step); err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, err))
		}
	}

	result.Trace = toTrace(rec.Events())
	result.History = append(result.History, ed.HistoryLabels()...)
	if result.Journal, err = st.ListHistory(ctx); err != nil {
		return nil, fmt.Errorf("failed to read history journal: %w", err)
	}
	if result.Document, err = ed.Document(ctx); err != nil {
		return nil, fmt.Errorf("failed to read final document: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	cfg.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"events", len(result.Trace),
		"entries", len(result.History),
	)
	return result, nil
}

func toTrace(events []editor.Event) []TraceEvent {
	trace := make([]TraceEvent, 0, len(events))
	for i, e := range events {
		te := TraceEvent{
			Seq:     int64(i + 1),
			Type:    string(e.Type),
			Command: e.Command,
			Reason:  string(e.Reason),
		}
		if e.Error != nil {
			te.Code = e.Error.Code
			te.Node = e.Error.Node
		}
		trace = append(trace, te)
	}
	return trace
}

func loadFixtures(s *Scenario) (model.Document, model.CapabilityMap, error) {
	doc := testutil.SampleDocument()
	caps := testutil.SampleCapabilities()

	if s.Document != "" {
		doc = model.Document{}
		if err := readJSON(s.Document, &doc); err != nil {
			return doc, nil, fmt.Errorf("failed to load document: %w", err)
		}
	}
	if s.Capabilities != "" {
		caps = model.CapabilityMap{}
		if err := readJSON(s.Capabilities, &caps); err != nil {
			return doc, nil, fmt.Errorf("failed to load capabilities: %w", err)
		}
	}
	return doc, caps, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
