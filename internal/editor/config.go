package editor

import (
	"log/slog"

	"github.com/timeax/servicegraph/internal/mutate"
	"github.com/timeax/servicegraph/internal/policy"
)

// DefaultHistoryLimit is the default number of history snapshots kept.
const DefaultHistoryLimit = 100

// MaxHistoryLimit is the largest accepted history limit.
const MaxHistoryLimit = 1000

// Config holds the editor settings.
type Config struct {
	// HistoryLimit bounds the snapshot history. Clamped to 1..MaxHistoryLimit.
	HistoryLimit int

	// ValidateAfterEach runs document validation after every commit and
	// emits each violation as editor:error with code "validate".
	ValidateAfterEach bool
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{HistoryLimit: DefaultHistoryLimit}
}

// clampLimit keeps n within 1..MaxHistoryLimit. Zero selects the default.
func clampLimit(n int) int {
	switch {
	case n == 0:
		return DefaultHistoryLimit
	case n < 1:
		return 1
	case n > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return n
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) EditorOption {
	return func(e *Editor) {
		e.cfg = cfg
	}
}

// WithHistoryLimit sets the number of snapshots history keeps.
//
// Default: 100 (DefaultHistoryLimit)
// Use WithHistoryLimit(3) for testing trimming.
func WithHistoryLimit(n int) EditorOption {
	return func(e *Editor) {
		e.cfg.HistoryLimit = n
	}
}

// WithValidateAfterEach enables validation after each commit.
func WithValidateAfterEach(on bool) EditorOption {
	return func(e *Editor) {
		e.cfg.ValidateAfterEach = on
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EditorOption {
	return func(e *Editor) {
		e.logger = l
	}
}

// WithView attaches the canvas to keep in sync.
func WithView(v View) EditorOption {
	return func(e *Editor) {
		e.view = v
	}
}

// WithNotifier sets the event sink.
func WithNotifier(n Notifier) EditorOption {
	return func(e *Editor) {
		e.notifier = n
	}
}

// WithServiceChecker sets the service existence check used by service
// edges. Without one the store's capability map is used.
func WithServiceChecker(c mutate.ServiceChecker) EditorOption {
	return func(e *Editor) {
		e.checker = c
	}
}

// WithPolicyCompiler sets the compiler for raw policies passed to
// FilterServices.
func WithPolicyCompiler(c policy.Compiler) EditorOption {
	return func(e *Editor) {
		e.compiler = c
	}
}

// WithEntryIDs sets the history entry id generator.
// Default: UUIDv7Generator.
func WithEntryIDs(g EntryIDGenerator) EditorOption {
	return func(e *Editor) {
		e.ids = g
	}
}

// WithClock sets the history sequence clock, e.g. NewClockAt(lastSeq) to
// continue a persisted journal.
func WithClock(c *Clock) EditorOption {
	return func(e *Editor) {
		e.clock = c
	}
}
