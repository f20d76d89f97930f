package harness

import "github.com/timeax/servicegraph/internal/model"

// TraceEvent is the harness view of one editor event.
// Documents are left out so traces stay small and stable.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Type    string `json:"type"` // "editor:command", "editor:change", ...
	Command string `json:"command,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Code    string `json:"code,omitempty"`
	Node    string `json:"node,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step behaved as expected and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every editor event in emission order.
	Trace []TraceEvent `json:"trace"`

	// History lists recorded entry labels, oldest first.
	History []string `json:"history"`

	// Journal is the history persisted by the store.
	Journal []model.HistoryRecord `json:"journal,omitempty"`

	// Document is the final document.
	Document model.Document `json:"document"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		History: []string{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
