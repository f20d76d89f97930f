package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/timeax/servicegraph/internal/model"
)

// ReplaceDocument stores doc as a new head revision and recomputes the
// effective constraints of its tags, in one transaction.
func (s *SQLite) ReplaceDocument(ctx context.Context, doc model.Document) error {
	body, err := marshalDocument(&doc)
	if err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	fp, err := model.Fingerprint(&doc)
	if err != nil {
		return fmt.Errorf("replace document: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace document: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM revisions WHERE document = ?
	`, s.name).Scan(&seq); err != nil {
		return fmt.Errorf("replace document: next seq: %w", err)
	}

	id := s.newID()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO revisions (id, document, seq, fingerprint, body)
		VALUES (?, ?, ?, ?, ?)
	`, id, s.name, seq, fp, body); err != nil {
		return fmt.Errorf("replace document: insert revision: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (name, revision_id) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET revision_id = excluded.revision_id
	`, s.name, id); err != nil {
		return fmt.Errorf("replace document: move head: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM effective_constraints WHERE document = ?
	`, s.name); err != nil {
		return fmt.Errorf("replace document: clear constraints: %w", err)
	}

	eff := model.PropagateConstraints(&doc)
	tagIDs := make([]string, 0, len(eff))
	for id := range eff {
		tagIDs = append(tagIDs, id)
	}
	sort.Strings(tagIDs)
	for _, tagID := range tagIDs {
		c := eff[tagID]
		if c.IsEmpty() {
			continue
		}
		cb, err := marshalConstraints(c)
		if err != nil {
			return fmt.Errorf("replace document: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO effective_constraints (document, tag_id, body) VALUES (?, ?, ?)
		`, s.name, tagID, cb); err != nil {
			return fmt.Errorf("replace document: insert constraints: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace document: commit: %w", err)
	}
	return nil
}

// PutCapabilities replaces the whole capability table.
func (s *SQLite) PutCapabilities(ctx context.Context, caps model.CapabilityMap) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put capabilities: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM capabilities`); err != nil {
		return fmt.Errorf("put capabilities: clear: %w", err)
	}

	ids := make([]string, 0, len(caps))
	for id := range caps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := caps[id]
		if c.ID == "" {
			c.ID = id
		}
		body, err := marshalCapability(c)
		if err != nil {
			return fmt.Errorf("put capabilities: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO capabilities (id, body) VALUES (?, ?)
		`, id, body); err != nil {
			return fmt.Errorf("put capabilities: insert %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put capabilities: commit: %w", err)
	}
	return nil
}

// AppendHistory journals a committed editor history entry.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate ids are silently ignored.
func (s *SQLite) AppendHistory(ctx context.Context, rec model.HistoryRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (id, document, seq, label, reason, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		s.name,
		rec.Seq,
		rec.Label,
		rec.Reason,
		rec.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}
