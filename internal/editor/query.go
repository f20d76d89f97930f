package editor

import (
	"context"
	"fmt"
	"sort"

	"github.com/timeax/servicegraph/internal/compiler"
	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/policy"
)

// Document returns a copy of the current document.
func (e *Editor) Document(ctx context.Context) (model.Document, error) {
	doc, err := e.store.GetDocument(ctx)
	if err != nil {
		return model.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// CanUndo reports whether Undo would move.
func (e *Editor) CanUndo() bool { return e.hist.canUndo() }

// CanRedo reports whether Redo would move.
func (e *Editor) CanRedo() bool { return e.hist.canRedo() }

// HistoryLen returns the number of recorded entries, undone ones included.
func (e *Editor) HistoryLen() int { return e.hist.len() }

// HistoryLabels returns recorded entry labels, oldest first.
func (e *Editor) HistoryLabels() []string { return e.hist.labels() }

// Validate checks the current document and emits editor:change with reason
// "validate".
func (e *Editor) Validate(ctx context.Context) ([]compiler.ValidationError, error) {
	doc, err := e.store.GetDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	errs := compiler.Validate(&doc)
	e.logger.Debug("validate", "violations", len(errs))
	e.notify(Event{Type: EventChange, Reason: ReasonValidate, Document: docPtr(doc)})
	return errs, nil
}

// FilterServices evaluates candidates for the visible group in pctx.
//
// Unset context fields are derived from the current document: the tag's
// effective constraints, and the global service set (every service id
// mapped anywhere in the document). raw policies are compiled with the
// configured compiler and added to pctx.Rules.
func (e *Editor) FilterServices(ctx context.Context, candidates []string, pctx policy.Context, raw []byte) (policy.Report, error) {
	doc, err := e.store.GetDocument(ctx)
	if err != nil {
		return policy.Report{}, fmt.Errorf("get document: %w", err)
	}
	caps, err := e.store.ServiceCapabilities(ctx)
	if err != nil {
		return policy.Report{}, fmt.Errorf("service capabilities: %w", err)
	}

	if pctx.EffectiveConstraints == nil && pctx.TagID != "" {
		if c, ok := model.PropagateConstraints(&doc)[pctx.TagID]; ok && !c.IsEmpty() {
			pctx.EffectiveConstraints = &c
		}
	}
	if pctx.GlobalServiceIDs == nil {
		pctx.GlobalServiceIDs = mappedServices(&doc)
	}

	ev := policy.NewEvaluator(caps,
		policy.WithCompiler(e.compiler),
		policy.WithLogger(e.logger),
	)
	return ev.Filter(candidates, pctx, raw)
}

// mappedServices lists every service id mapped in d, sorted.
func mappedServices(d *model.Document) []string {
	seen := make(map[string]bool)
	for _, t := range d.Tags {
		if t.ServiceID != "" {
			seen[t.ServiceID] = true
		}
	}
	for _, f := range d.Fields {
		if f.ServiceID != "" {
			seen[f.ServiceID] = true
		}
		for _, o := range f.Options {
			if o.ServiceID != "" {
				seen[o.ServiceID] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
