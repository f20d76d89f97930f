package editor_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeax/servicegraph/internal/editor"
	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/mutate"
	"github.com/timeax/servicegraph/internal/store"
	"github.com/timeax/servicegraph/internal/testutil"
)

type fixture struct {
	ed    *editor.Editor
	store *store.Memory
	rec   *testutil.Recorder
}

func newFixture(t *testing.T, opts ...editor.EditorOption) fixture {
	t.Helper()
	rec := testutil.NewRecorder()
	st := store.NewMemory(testutil.SampleDocument(), testutil.SampleCapabilities())
	base := []editor.EditorOption{
		editor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		editor.WithNotifier(rec),
		editor.WithEntryIDs(testutil.NewSequentialIDs("h")),
	}
	return fixture{ed: editor.New(st, append(base, opts...)...), store: st, rec: rec}
}

func (f fixture) fingerprint(t *testing.T) string {
	t.Helper()
	doc, err := f.ed.Document(context.Background())
	require.NoError(t, err)
	return model.MustFingerprint(&doc)
}

// addTag is a one-line edit used to build up history.
func (f fixture) addTag(t *testing.T, label string) model.NodeRef {
	t.Helper()
	ref, err := f.ed.AddTag(context.Background(), model.Tag{Label: label})
	require.NoError(t, err)
	return ref
}

// breakWith replaces the document directly, bypassing mutate.
func breakWith(st *store.Memory, edit func(d *model.Document)) editor.Command {
	return editor.Command{
		Name: "raw",
		Do: func(ctx context.Context) error {
			doc, err := st.GetDocument(ctx)
			if err != nil {
				return err
			}
			edit(&doc)
			return st.ReplaceDocument(ctx, doc)
		},
	}
}

// ============================================================================
// Exec
// ============================================================================

func TestExec_CommitsAndNotifies(t *testing.T) {
	f := newFixture(t)

	ref := f.addTag(t, "Extra")
	assert.Equal(t, model.TagRef("t:1"), ref)

	assert.Equal(t, []editor.EventType{editor.EventCommand, editor.EventChange}, f.rec.Types())
	change := f.rec.OfType(editor.EventChange)[0]
	assert.Equal(t, editor.ReasonMutation, change.Reason)
	assert.Equal(t, "addTag", change.Command)
	require.NotNil(t, change.Document)
	assert.NotNil(t, change.Document.Tag("t:1"))

	assert.Equal(t, 1, f.ed.HistoryLen())
	assert.True(t, f.ed.CanUndo())
	assert.False(t, f.ed.CanRedo())
}

func TestExec_FailureRestoresAndReports(t *testing.T) {
	f := newFixture(t)
	before := f.fingerprint(t)

	err := f.ed.RemoveTag(context.Background(), "t:missing")
	require.Error(t, err)
	assert.True(t, editor.IsCommandError(err))
	assert.ErrorIs(t, err, mutate.ErrNotFound)

	assert.Equal(t, []editor.EventType{editor.EventCommand, editor.EventError}, f.rec.Types())
	assert.Equal(t, []string{editor.CodeCommand}, f.rec.ErrorCodes())
	assert.Equal(t, before, f.fingerprint(t))
	assert.Zero(t, f.ed.HistoryLen())
}

func TestExec_PartialDoIsRolledBack(t *testing.T) {
	f := newFixture(t)
	before := f.fingerprint(t)
	boom := errors.New("boom")

	err := f.ed.Exec(context.Background(), editor.Command{
		Name: "half",
		Do: func(ctx context.Context) error {
			doc, _ := f.store.GetDocument(ctx)
			doc.Tags = nil
			require.NoError(t, f.store.ReplaceDocument(ctx, doc))
			return boom
		},
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, f.fingerprint(t))
}

func TestExec_FailureWithoutWriteKeepsRevisions(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.ReplaceDocument(ctx, testutil.SampleDocument()))
	ed := editor.New(st, editor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	revisions := func() int {
		revs, err := st.Revisions(ctx)
		require.NoError(t, err)
		return len(revs)
	}
	require.Equal(t, 1, revisions())

	assert.Error(t, ed.RemoveTag(ctx, "t:missing"))
	err = ed.Connect(ctx, mutate.Edge{Kind: mutate.EdgeBind, From: model.TagRef("t:fast"), To: model.TagRef("t:root")})
	assert.True(t, mutate.IsCycleError(err))
	assert.Equal(t, 1, revisions())

	// a partial write is still rolled back: one revision for it, one for the restore
	err = ed.Exec(ctx, editor.Command{
		Name: "half",
		Do: func(ctx context.Context) error {
			doc, _ := st.GetDocument(ctx)
			doc.Tags = nil
			require.NoError(t, st.ReplaceDocument(ctx, doc))
			return errors.New("boom")
		},
	})
	require.Error(t, err)
	assert.Equal(t, 3, revisions())
	doc, err := st.GetDocument(ctx)
	require.NoError(t, err)
	assert.NotNil(t, doc.Tag("t:root"))
}

func TestExec_PanicRestoresAndRepanics(t *testing.T) {
	f := newFixture(t)
	before := f.fingerprint(t)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = f.ed.Exec(context.Background(), editor.Command{
			Name: "panics",
			Do: func(ctx context.Context) error {
				doc, _ := f.store.GetDocument(ctx)
				doc.Fields = nil
				_ = f.store.ReplaceDocument(ctx, doc)
				panic("kaboom")
			},
		})
	})
	assert.Equal(t, before, f.fingerprint(t))
	assert.Zero(t, f.ed.HistoryLen())
}

func TestExec_NoDo(t *testing.T) {
	f := newFixture(t)

	err := f.ed.Exec(context.Background(), editor.Command{Name: "empty"})
	assert.ErrorIs(t, err, editor.ErrNoDo)
	assert.Empty(t, f.rec.Events())
}

func TestExec_JournalsHistory(t *testing.T) {
	f := newFixture(t, editor.WithClock(editor.NewClockAt(41)))
	f.addTag(t, "Extra")

	recs, err := f.store.ListHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "h-1", recs[0].ID)
	assert.Equal(t, int64(42), recs[0].Seq)
	assert.Equal(t, "addTag", recs[0].Label)
	assert.Equal(t, "mutation", recs[0].Reason)
	assert.Equal(t, f.fingerprint(t), recs[0].Fingerprint)
}

// ============================================================================
// Transact
// ============================================================================

func TestTransact_OneEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.fingerprint(t)

	err := f.ed.Transact(ctx, "bulk", func(ctx context.Context) error {
		if _, err := f.ed.AddTag(ctx, model.Tag{Label: "A"}); err != nil {
			return err
		}
		return f.ed.RemoveField(ctx, "f:note")
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bulk"}, f.ed.HistoryLabels())

	changes := f.rec.OfType(editor.EventChange)
	require.Len(t, changes, 1)
	assert.Equal(t, editor.ReasonTransaction, changes[0].Reason)

	moved, err := f.ed.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, before, f.fingerprint(t))
}

func TestTransact_AtomicOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.fingerprint(t)
	boom := errors.New("boom")

	err := f.ed.Transact(ctx, "bulk", func(ctx context.Context) error {
		f.addTag(t, "A")
		f.addTag(t, "B")
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, f.fingerprint(t))
	assert.Zero(t, f.ed.HistoryLen())
	assert.Equal(t, []string{editor.CodeTransaction}, f.rec.ErrorCodes())
}

func TestTransact_AtomicOnPanic(t *testing.T) {
	f := newFixture(t)
	before := f.fingerprint(t)

	assert.Panics(t, func() {
		_ = f.ed.Transact(context.Background(), "bulk", func(ctx context.Context) error {
			f.addTag(t, "A")
			panic("kaboom")
		})
	})
	assert.Equal(t, before, f.fingerprint(t))
	assert.Zero(t, f.ed.HistoryLen())

	// The editor is usable after the panic
	f.addTag(t, "B")
	assert.Equal(t, []string{"addTag"}, f.ed.HistoryLabels())
}

func TestTransact_FailingCommandReportedOnce(t *testing.T) {
	f := newFixture(t)

	err := f.ed.Transact(context.Background(), "bulk", func(ctx context.Context) error {
		f.addTag(t, "A")
		return f.ed.RemoveTag(ctx, "t:missing")
	})
	assert.True(t, editor.IsCommandError(err))
	assert.Equal(t, []string{editor.CodeCommand}, f.rec.ErrorCodes())
	assert.Zero(t, f.ed.HistoryLen())
}

func TestTransact_NestedJoinsOuter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.ed.Transact(ctx, "outer", func(ctx context.Context) error {
		f.addTag(t, "A")
		return f.ed.Transact(ctx, "inner", func(ctx context.Context) error {
			f.addTag(t, "B")
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer"}, f.ed.HistoryLabels())
}

func TestTransact_NestedFailureRestoresInnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.ed.Transact(ctx, "outer", func(ctx context.Context) error {
		f.addTag(t, "Kept")
		inner := f.ed.Transact(ctx, "inner", func(ctx context.Context) error {
			f.addTag(t, "Dropped")
			return errors.New("inner failed")
		})
		assert.Error(t, inner)
		return nil
	})
	require.NoError(t, err)

	doc, err := f.ed.Document(ctx)
	require.NoError(t, err)
	assert.NotNil(t, doc.Tag("t:1"))
	assert.Nil(t, doc.Tag("t:2"))
	assert.Equal(t, 1, f.ed.HistoryLen())
}

func TestTransact_NestedFailureDropsHooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var calls []string

	hooked := func(name, label string) editor.Command {
		cmd := breakWith(f.store, func(d *model.Document) { d.Tags[0].Label = label })
		cmd.Name = name
		cmd.Undo = func(context.Context) error { calls = append(calls, "undo "+name); return nil }
		cmd.Redo = func(context.Context) error { calls = append(calls, "redo "+name); return nil }
		return cmd
	}

	err := f.ed.Transact(ctx, "outer", func(ctx context.Context) error {
		require.NoError(t, f.ed.Exec(ctx, hooked("kept", "Kept")))
		inner := f.ed.Transact(ctx, "inner", func(ctx context.Context) error {
			require.NoError(t, f.ed.Exec(ctx, hooked("dropped", "Dropped")))
			return errors.New("inner failed")
		})
		assert.Error(t, inner)
		return nil
	})
	require.NoError(t, err)

	_, err = f.ed.Undo(ctx)
	require.NoError(t, err)
	_, err = f.ed.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"undo kept", "redo kept"}, calls)

	doc, err := f.ed.Document(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Kept", doc.Tags[0].Label)
}

func TestTransact_EmptyRecordsNothing(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.ed.Transact(context.Background(), "noop", func(context.Context) error { return nil }))
	assert.Zero(t, f.ed.HistoryLen())
	assert.Empty(t, f.rec.Events())
}

// ============================================================================
// Undo / Redo
// ============================================================================

func TestUndoRedo_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fps := []string{f.fingerprint(t)}
	edits := []func() error{
		func() error { _, err := f.ed.AddTag(ctx, model.Tag{Label: "A", ParentID: "t:root"}); return err },
		func() error { return f.ed.RemoveField(ctx, "f:note") },
		func() error {
			_, err := f.ed.Duplicate(ctx, model.TagRef("t:social"), mutate.DuplicateOptions{WithChildren: true})
			return err
		},
		func() error { return f.ed.PlaceTag(ctx, "t:1", mutate.AtIndex(0)) },
	}
	for _, edit := range edits {
		require.NoError(t, edit())
		fps = append(fps, f.fingerprint(t))
	}

	for i := len(edits) - 1; i >= 0; i-- {
		moved, err := f.ed.Undo(ctx)
		require.NoError(t, err)
		require.True(t, moved)
		assert.Equal(t, fps[i], f.fingerprint(t), "after undo to %d", i)
	}
	moved, err := f.ed.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, moved)

	for i := 1; i <= len(edits); i++ {
		moved, err := f.ed.Redo(ctx)
		require.NoError(t, err)
		require.True(t, moved)
		assert.Equal(t, fps[i], f.fingerprint(t), "after redo to %d", i)
	}
	moved, err = f.ed.Redo(ctx)
	require.NoError(t, err)
	assert.False(t, moved)

	assert.Len(t, f.rec.OfType(editor.EventUndo), len(edits))
	assert.Len(t, f.rec.OfType(editor.EventRedo), len(edits))
}

func TestHistory_TrimmedToLimit(t *testing.T) {
	f := newFixture(t, editor.WithHistoryLimit(3))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.addTag(t, "T")
	}

	undos := 0
	for {
		moved, err := f.ed.Undo(ctx)
		require.NoError(t, err)
		if !moved {
			break
		}
		undos++
	}
	assert.Equal(t, 2, undos)
}

func TestHistory_CommitDiscardsRedoTail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addTag(t, "A")
	f.addTag(t, "B")
	_, err := f.ed.Undo(ctx)
	require.NoError(t, err)
	require.True(t, f.ed.CanRedo())

	require.NoError(t, f.ed.RemoveTag(ctx, "t:fast"))
	assert.False(t, f.ed.CanRedo())
	assert.Equal(t, []string{"addTag", "removeTag"}, f.ed.HistoryLabels())
}

func TestHistory_LimitClamped(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, editor.DefaultHistoryLimit},
		{-4, 1},
		{5000, editor.MaxHistoryLimit},
		{7, 7},
	}
	for _, tt := range tests {
		f := newFixture(t, editor.WithHistoryLimit(tt.in))
		assert.Equal(t, tt.want, f.ed.Config().HistoryLimit, "limit %d", tt.in)
	}
}

func TestUndo_ReinstallsLayout(t *testing.T) {
	view := testutil.NewViewWithLayout(editor.Layout{
		Positions: map[string]editor.Point{"t:root": {X: 10, Y: 10}},
		Viewport:  editor.Viewport{Zoom: 1},
	})
	f := newFixture(t, editor.WithView(view))
	ctx := context.Background()

	f.addTag(t, "A")
	view.Move("t:root", editor.Point{X: 99, Y: 99})
	f.addTag(t, "B")

	_, err := f.ed.Undo(ctx)
	require.NoError(t, err)
	l, _ := view.Layout()
	assert.Equal(t, editor.Point{X: 10, Y: 10}, l.Positions["t:root"])
	assert.Equal(t, 1, view.Installed)

	_, err = f.ed.Redo(ctx)
	require.NoError(t, err)
	l, _ = view.Layout()
	assert.Equal(t, editor.Point{X: 99, Y: 99}, l.Positions["t:root"])
}

func TestUndo_RefreshesWithoutLayout(t *testing.T) {
	view := testutil.NewView()
	f := newFixture(t, editor.WithView(view))

	f.addTag(t, "A")
	refreshes := view.Refreshes

	_, err := f.ed.Undo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, refreshes+1, view.Refreshes)
	assert.Zero(t, view.Installed)
}

func TestUndoRedo_RunHooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var calls []string

	cmd := breakWith(f.store, func(d *model.Document) { d.Tags[0].Label = "Hooked" })
	cmd.Undo = func(context.Context) error { calls = append(calls, "undo"); return nil }
	cmd.Redo = func(context.Context) error { calls = append(calls, "redo"); return errors.New("redo hook") }
	require.NoError(t, f.ed.Exec(ctx, cmd))

	_, err := f.ed.Undo(ctx)
	require.NoError(t, err)
	moved, err := f.ed.Redo(ctx)
	assert.True(t, moved)
	assert.Error(t, err)

	assert.Equal(t, []string{"undo", "redo"}, calls)
	assert.Equal(t, []string{editor.CodeHook}, f.rec.ErrorCodes())
}

func TestUndo_RejectedInsideTransaction(t *testing.T) {
	f := newFixture(t)
	f.addTag(t, "A")

	err := f.ed.Transact(context.Background(), "bulk", func(ctx context.Context) error {
		_, err := f.ed.Undo(ctx)
		return err
	})
	assert.Error(t, err)
	assert.Equal(t, 1, f.ed.HistoryLen())
}

// ============================================================================
// Diagnostics and validation
// ============================================================================

func TestSetService_SoftViolationEmitted(t *testing.T) {
	f := newFixture(t)
	svc := "svc-likes"

	diags, err := f.ed.SetService(context.Background(), model.OptionRef("f:qty", "o:2"), mutate.ServicePatch{ServiceID: &svc})
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, mutate.DiagServiceOnUtility, diags[0].Code)

	assert.Equal(t, []string{mutate.DiagServiceOnUtility}, f.rec.ErrorCodes())
	assert.Equal(t, 1, f.ed.HistoryLen())

	doc, _ := f.ed.Document(context.Background())
	assert.Empty(t, doc.Option("f:qty", "o:2").ServiceID)
}

func TestValidateAfterEach(t *testing.T) {
	f := newFixture(t, editor.WithValidateAfterEach(true))

	require.NoError(t, f.ed.Exec(context.Background(), breakWith(f.store, func(d *model.Document) {
		d.Tags[0].ParentID = "t:ghost"
	})))
	assert.Equal(t, []string{editor.CodeValidate}, f.rec.ErrorCodes())

	errs := f.rec.OfType(editor.EventError)
	assert.Equal(t, "t:root", errs[0].Error.Node)
}

func TestValidate_EmitsChange(t *testing.T) {
	f := newFixture(t)

	errs, err := f.ed.Validate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, errs)

	changes := f.rec.OfType(editor.EventChange)
	require.Len(t, changes, 1)
	assert.Equal(t, editor.ReasonValidate, changes[0].Reason)
	assert.Zero(t, f.ed.HistoryLen())
}
