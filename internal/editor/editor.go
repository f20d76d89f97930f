package editor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/timeax/servicegraph/internal/compiler"
	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/mutate"
	"github.com/timeax/servicegraph/internal/policy"
)

// Store holds the live document. GetDocument must return a copy the caller
// may modify; ReplaceDocument takes ownership of its argument.
type Store interface {
	GetDocument(ctx context.Context) (model.Document, error)
	ReplaceDocument(ctx context.Context, doc model.Document) error
	ServiceCapabilities(ctx context.Context) (model.CapabilityMap, error)
}

// HistoryJournal is implemented by stores that persist committed history
// entries.
type HistoryJournal interface {
	AppendHistory(ctx context.Context, rec model.HistoryRecord) error
}

// Command is one logical mutation.
//
// Do applies the mutation through the store. Undo and Redo are optional
// hooks run after the editor has reinstalled the matching snapshot; they
// are for side effects outside the document.
type Command struct {
	Name string
	Do   func(ctx context.Context) error
	Undo func(ctx context.Context) error
	Redo func(ctx context.Context) error
}

// transaction tracks the outermost Transact call.
type transaction struct {
	label string
	depth int
	cmds  []Command
}

// Editor runs commands against a Store and records undo/redo history.
type Editor struct {
	store    Store
	cfg      Config
	logger   *slog.Logger
	view     View
	notifier Notifier
	checker  mutate.ServiceChecker
	compiler policy.Compiler
	ids      EntryIDGenerator
	clock    *Clock

	hist *history
	txn  *transaction
}

// New creates an Editor over store.
//
// Options can be passed to configure the editor (e.g., WithHistoryLimit).
func New(store Store, opts ...EditorOption) *Editor {
	e := &Editor{
		store:    store,
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
		compiler: compiler.PolicyCompiler{},
		ids:      UUIDv7Generator{},
		clock:    NewClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg.HistoryLimit = clampLimit(e.cfg.HistoryLimit)
	e.hist = newHistory(e.cfg.HistoryLimit)
	return e
}

// Config returns the effective configuration.
func (e *Editor) Config() Config {
	return e.cfg
}

// Exec runs cmd.
//
// On success the after-snapshot is committed as one history entry (or
// joined to the enclosing transaction) and editor:change is emitted. On
// failure the before-snapshot is restored, editor:error with code "command"
// is emitted and a *CommandError is returned. A panic in Do restores the
// before-snapshot and is re-raised.
func (e *Editor) Exec(ctx context.Context, cmd Command) error {
	if cmd.Do == nil {
		return &CommandError{Command: cmd.Name, Err: ErrNoDo}
	}

	before, err := e.capture(ctx)
	if err != nil {
		return fmt.Errorf("exec %s: %w", cmd.Name, err)
	}

	e.logger.Debug("exec", "command", cmd.Name, "in_transaction", e.txn != nil)
	e.notify(Event{Type: EventCommand, Command: cmd.Name})

	if err := e.guarded(ctx, before, cmd.Do); err != nil {
		cerr := &CommandError{Command: cmd.Name, Err: err}
		e.logger.Error("command failed", "command", cmd.Name, "error", err)
		e.notifyError(ErrorInfo{Code: CodeCommand, Message: cerr.Error(), Err: err}, cmd.Name)
		return cerr
	}

	if e.txn != nil {
		e.txn.cmds = append(e.txn.cmds, cmd)
		return nil
	}
	return e.commit(ctx, before, cmd.Name, ReasonMutation, []Command{cmd})
}

// Transact runs fn as one atomic history entry.
//
// Nested calls join the outermost transaction; a failing nested call
// restores the document to its own start before returning the error. If
// the outermost fn returns an error or panics, the document is restored to
// the pre-transaction snapshot and nothing is recorded. A transaction that
// ran no commands records nothing.
func (e *Editor) Transact(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	start, err := e.capture(ctx)
	if err != nil {
		return fmt.Errorf("transact %s: %w", label, err)
	}

	if e.txn != nil {
		txn := e.txn
		txn.depth++
		defer func() { txn.depth-- }()
		e.logger.Debug("transact joined", "label", label, "outer", txn.label, "depth", txn.depth)
		mark := len(txn.cmds)
		if err := e.guarded(ctx, start, fn); err != nil {
			// Hooks of rolled-back commands must not run on undo/redo.
			txn.cmds = txn.cmds[:mark]
			return err
		}
		return nil
	}

	e.txn = &transaction{label: label}
	defer func() { e.txn = nil }()
	e.logger.Debug("transact", "label", label)

	if err := e.guarded(ctx, start, fn); err != nil {
		if !IsCommandError(err) {
			e.notifyError(ErrorInfo{Code: CodeTransaction, Message: err.Error(), Err: err}, label)
		}
		e.logger.Debug("transaction rolled back", "label", label, "error", err)
		return err
	}

	cmds := e.txn.cmds
	if len(cmds) == 0 {
		return nil
	}
	return e.commit(ctx, start, label, ReasonTransaction, cmds)
}

// Undo reinstalls the previous snapshot. It returns false when there is
// nothing to undo. Undo hooks of the undone entry run in reverse order; a
// failing hook is reported as editor:error with code "hook" and returned.
func (e *Editor) Undo(ctx context.Context) (bool, error) {
	if e.txn != nil {
		return false, fmt.Errorf("undo inside transaction %q", e.txn.label)
	}
	undone, target, ok := e.hist.undo()
	if !ok {
		return false, nil
	}
	if err := e.install(ctx, target.snap); err != nil {
		return true, fmt.Errorf("undo %s: %w", undone.entry.Label, err)
	}
	e.logger.Debug("undo", "label", undone.entry.Label, "seq", undone.entry.Seq)

	var hookErr error
	for i := len(undone.cmds) - 1; i >= 0; i-- {
		if err := e.runHook(ctx, undone.cmds[i].Name, undone.cmds[i].Undo); err != nil && hookErr == nil {
			hookErr = err
		}
	}

	e.notify(Event{Type: EventUndo, Command: undone.entry.Label, Document: docPtr(target.snap.doc)})
	return true, hookErr
}

// Redo reinstalls the next snapshot. It returns false when there is nothing
// to redo. Redo hooks run in issue order.
func (e *Editor) Redo(ctx context.Context) (bool, error) {
	if e.txn != nil {
		return false, fmt.Errorf("redo inside transaction %q", e.txn.label)
	}
	target, ok := e.hist.redo()
	if !ok {
		return false, nil
	}
	if err := e.install(ctx, target.snap); err != nil {
		return true, fmt.Errorf("redo %s: %w", target.entry.Label, err)
	}
	e.logger.Debug("redo", "label", target.entry.Label, "seq", target.entry.Seq)

	var hookErr error
	for _, c := range target.cmds {
		if err := e.runHook(ctx, c.Name, c.Redo); err != nil && hookErr == nil {
			hookErr = err
		}
	}

	e.notify(Event{Type: EventRedo, Command: target.entry.Label, Document: docPtr(target.snap.doc)})
	return true, hookErr
}

// guarded runs fn, restoring from on error or panic.
func (e *Editor) guarded(ctx context.Context, from snapshot, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic during edit, restoring snapshot", "panic", r)
			e.restore(ctx, from)
			panic(r)
		}
	}()
	if err = fn(ctx); err != nil {
		e.restore(ctx, from)
	}
	return err
}

// commit records before→now as one entry and emits editor:change.
func (e *Editor) commit(ctx context.Context, before snapshot, label string, reason ChangeReason, cmds []Command) error {
	after, err := e.capture(ctx)
	if err != nil {
		return fmt.Errorf("commit %s: %w", label, err)
	}

	fp, err := model.Fingerprint(&after.doc)
	if err != nil {
		return fmt.Errorf("commit %s: fingerprint: %w", label, err)
	}
	rec := model.HistoryRecord{
		ID:          e.ids.Generate(),
		Seq:         e.clock.Next(),
		Label:       label,
		Reason:      string(reason),
		Fingerprint: fp,
	}
	e.hist.commit(before, state{snap: after, entry: rec, cmds: cmds})

	e.logger.Info("history entry committed",
		"label", label,
		"reason", reason,
		"seq", rec.Seq,
		"entries", e.hist.len(),
	)
	e.notify(Event{Type: EventChange, Command: label, Reason: reason, Document: docPtr(after.doc)})

	if j, ok := e.store.(HistoryJournal); ok {
		if err := j.AppendHistory(ctx, rec); err != nil {
			return fmt.Errorf("journal history entry %s: %w", rec.ID, err)
		}
	}

	if e.cfg.ValidateAfterEach {
		for _, v := range compiler.Validate(&after.doc) {
			e.notifyError(ErrorInfo{Code: CodeValidate, Message: v.Error(), Node: v.Node}, label)
		}
	}
	return nil
}

// apply stores a mutation result and reports its soft diagnostics.
func (e *Editor) apply(ctx context.Context, command string, res mutate.Result) error {
	if err := e.store.ReplaceDocument(ctx, res.Document); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	for _, d := range res.Diagnostics {
		e.logger.Warn("service assignment stripped",
			"code", d.Code,
			"node", d.Node.String(),
			"message", d.Message,
		)
		e.notifyError(ErrorInfo{Code: d.Code, Message: d.Message, Node: d.Node.String()}, command)
	}
	if e.view != nil {
		e.view.RefreshGraph()
	}
	return nil
}

func (e *Editor) capture(ctx context.Context) (snapshot, error) {
	doc, err := e.store.GetDocument(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("get document: %w", err)
	}
	snap := snapshot{doc: doc}
	if e.view != nil {
		if l, ok := e.view.Layout(); ok {
			cl := l.Clone()
			snap.layout = &cl
		}
	}
	return snap, nil
}

// restore puts the document back after a failed edit. The view is
// refreshed rather than re-laid out. A store still holding s is left alone.
func (e *Editor) restore(ctx context.Context, s snapshot) {
	if cur, err := e.store.GetDocument(ctx); err == nil && sameDocument(&cur, &s.doc) {
		return
	}
	if err := e.store.ReplaceDocument(ctx, s.doc.Clone()); err != nil {
		e.logger.Error("restore snapshot failed", "error", err)
		return
	}
	if e.view != nil {
		e.view.RefreshGraph()
	}
}

// sameDocument reports whether a and b have the same fingerprint.
func sameDocument(a, b *model.Document) bool {
	fa, err := model.Fingerprint(a)
	if err != nil {
		return false
	}
	fb, err := model.Fingerprint(b)
	return err == nil && fa == fb
}

// install reinstalls a history snapshot with its layout.
func (e *Editor) install(ctx context.Context, s snapshot) error {
	if err := e.store.ReplaceDocument(ctx, s.doc.Clone()); err != nil {
		return err
	}
	if e.view == nil {
		return nil
	}
	if s.layout == nil {
		e.view.RefreshGraph()
		return nil
	}
	l := s.layout.Clone()
	e.view.SetPositions(l.Positions)
	e.view.SetViewport(l.Viewport)
	return nil
}

func (e *Editor) runHook(ctx context.Context, name string, hook func(context.Context) error) error {
	if hook == nil {
		return nil
	}
	if err := hook(ctx); err != nil {
		cerr := &CommandError{Command: name, Err: err}
		e.logger.Error("history hook failed", "command", name, "error", err)
		e.notifyError(ErrorInfo{Code: CodeHook, Message: cerr.Error(), Err: err}, name)
		return cerr
	}
	return nil
}

func (e *Editor) notify(ev Event) {
	if e.notifier != nil {
		e.notifier.Notify(ev)
	}
}

func (e *Editor) notifyError(info ErrorInfo, command string) {
	e.notify(Event{Type: EventError, Command: command, Error: &info})
}

// serviceChecker returns the configured checker, falling back to the
// store's capability map. It returns nil when neither is available.
func (e *Editor) serviceChecker(ctx context.Context) (mutate.ServiceChecker, error) {
	if e.checker != nil {
		return e.checker, nil
	}
	caps, err := e.store.ServiceCapabilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("service capabilities: %w", err)
	}
	if caps == nil {
		return nil, nil
	}
	return caps, nil
}

func docPtr(d model.Document) *model.Document {
	c := d.Clone()
	return &c
}
