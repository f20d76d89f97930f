package store

import (
	"context"
	"sync"

	"github.com/timeax/servicegraph/internal/model"
)

// Memory is a process-local document store.
//
// Thread-safety: Memory is safe for concurrent use via internal mutex.
type Memory struct {
	mu        sync.RWMutex
	doc       model.Document
	caps      model.CapabilityMap
	effective map[string]model.Constraints
	history   []model.HistoryRecord
}

// NewMemory creates a store holding a copy of doc. caps may be nil.
func NewMemory(doc model.Document, caps model.CapabilityMap) *Memory {
	m := &Memory{caps: cloneCaps(caps)}
	m.set(doc.Clone())
	return m
}

// GetDocument returns a copy of the document.
func (m *Memory) GetDocument(ctx context.Context) (model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc.Clone(), nil
}

// ReplaceDocument stores doc and recomputes effective constraints.
func (m *Memory) ReplaceDocument(ctx context.Context, doc model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(doc)
	return nil
}

func (m *Memory) set(doc model.Document) {
	m.doc = doc
	m.effective = model.PropagateConstraints(&m.doc)
}

// ServiceCapabilities returns a copy of the capability map, nil when none
// was given.
func (m *Memory) ServiceCapabilities(ctx context.Context) (model.CapabilityMap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneCaps(m.caps), nil
}

// PutCapabilities replaces the capability map.
func (m *Memory) PutCapabilities(ctx context.Context, caps model.CapabilityMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caps = cloneCaps(caps)
	return nil
}

// EffectiveConstraints returns the derived constraints of a tag, or false
// when the tag inherits none.
func (m *Memory) EffectiveConstraints(ctx context.Context, tagID string) (model.Constraints, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.effective[tagID]
	if !ok || c.IsEmpty() {
		return model.Constraints{}, false, nil
	}
	return c.Clone(), true, nil
}

// AppendHistory records a committed history entry. Duplicate ids are ignored.
func (m *Memory) AppendHistory(ctx context.Context, rec model.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.history {
		if r.ID == rec.ID {
			return nil
		}
	}
	m.history = append(m.history, rec)
	return nil
}

// ListHistory returns recorded history entries in commit order.
func (m *Memory) ListHistory(ctx context.Context) ([]model.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.HistoryRecord, len(m.history))
	copy(out, m.history)
	return out, nil
}

func cloneCaps(caps model.CapabilityMap) model.CapabilityMap {
	if caps == nil {
		return nil
	}
	out := make(model.CapabilityMap, len(caps))
	for id, c := range caps {
		if c.Meta != nil {
			meta := make(map[string]any, len(c.Meta))
			for k, v := range c.Meta {
				meta[k] = v
			}
			c.Meta = meta
		}
		out[id] = c
	}
	return out
}
