package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/timeax/servicegraph/internal/model"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T, opts ...Option) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	n := 0
	opts = append([]Option{WithRevisionIDs(func() string {
		n++
		return fmt.Sprintf("rev-%d", n)
	})}, opts...)
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestDocument builds a small document with inherited constraints.
func createTestDocument() model.Document {
	return model.Document{
		Tags: []model.Tag{
			{ID: "t:root", Label: "Root", Constraints: &model.Constraints{Refill: model.Bool(true)}},
			{ID: "t:child", Label: "Child", ParentID: "t:root"},
			{ID: "t:free", Label: "Free"},
		},
		Fields: []model.Field{
			{ID: "f:qty", Label: "Quantity", Type: "select", Bind: model.TagBinding{"t:child"},
				Options: []model.Option{{ID: "o:1", Label: "One", ServiceID: "svc-1"}}},
		},
	}
}

func createTestCapabilities() model.CapabilityMap {
	return model.CapabilityMap{
		"svc-1": {ID: "svc-1", Name: "Likes", Rate: 1.5, Refill: true},
		"svc-2": {ID: "svc-2", Rate: 2, Meta: map[string]any{"tier": "gold"}},
	}
}
