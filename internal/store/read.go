package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/timeax/servicegraph/internal/model"
)

// Revision describes one stored document revision.
type Revision struct {
	ID          string `json:"id"`
	Seq         int64  `json:"seq"`
	Fingerprint string `json:"fingerprint"`
}

// ErrRevisionNotFound is returned by ReadRevision for an unknown id.
var ErrRevisionNotFound = errors.New("revision not found")

// GetDocument returns the head document. A store that has never been
// written returns an empty document.
func (s *SQLite) GetDocument(ctx context.Context) (model.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT r.body
		FROM documents d
		JOIN revisions r ON r.id = d.revision_id
		WHERE d.name = ?
	`, s.name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, nil
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("get document: %w", err)
	}
	return unmarshalDocument(body)
}

// Head returns the head revision, or false when nothing was stored yet.
func (s *SQLite) Head(ctx context.Context) (Revision, bool, error) {
	var r Revision
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.seq, r.fingerprint
		FROM documents d
		JOIN revisions r ON r.id = d.revision_id
		WHERE d.name = ?
	`, s.name).Scan(&r.ID, &r.Seq, &r.Fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, false, nil
	}
	if err != nil {
		return Revision{}, false, fmt.Errorf("read head: %w", err)
	}
	return r, true, nil
}

// Revisions lists every revision of the document.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if no revisions exist.
func (s *SQLite) Revisions(ctx context.Context) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, fingerprint
		FROM revisions
		WHERE document = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, s.name)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	revs := []Revision{}
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.Seq, &r.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revs, nil
}

// ReadRevision returns the document stored under a revision id.
func (s *SQLite) ReadRevision(ctx context.Context, id string) (model.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM revisions WHERE id = ? AND document = ?
	`, id, s.name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, fmt.Errorf("read revision %s: %w", id, ErrRevisionNotFound)
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("read revision %s: %w", id, err)
	}
	return unmarshalDocument(body)
}

// ServiceCapabilities returns the capability table. It returns nil when no
// capabilities were stored, so callers can tell "no catalog" from "empty
// catalog".
func (s *SQLite) ServiceCapabilities(ctx context.Context) (model.CapabilityMap, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, body FROM capabilities ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query capabilities: %w", err)
	}
	defer rows.Close()

	var caps model.CapabilityMap
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan capability: %w", err)
		}
		c, err := unmarshalCapability(body)
		if err != nil {
			return nil, fmt.Errorf("capability %s: %w", id, err)
		}
		if caps == nil {
			caps = model.CapabilityMap{}
		}
		caps[id] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate capabilities: %w", err)
	}
	return caps, nil
}

// EffectiveConstraints returns the derived constraints of a tag, or false
// when the tag inherits none.
func (s *SQLite) EffectiveConstraints(ctx context.Context, tagID string) (model.Constraints, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM effective_constraints WHERE document = ? AND tag_id = ?
	`, s.name, tagID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Constraints{}, false, nil
	}
	if err != nil {
		return model.Constraints{}, false, fmt.Errorf("effective constraints %s: %w", tagID, err)
	}
	c, err := unmarshalConstraints(body)
	if err != nil {
		return model.Constraints{}, false, err
	}
	return c, true, nil
}

// ListHistory returns journaled history entries.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *SQLite) ListHistory(ctx context.Context) ([]model.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, label, reason, fingerprint
		FROM history
		WHERE document = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, s.name)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	recs := []model.HistoryRecord{}
	for rows.Next() {
		var r model.HistoryRecord
		if err := rows.Scan(&r.ID, &r.Seq, &r.Label, &r.Reason, &r.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return recs, nil
}

// LastHistorySeq returns the highest journaled seq, or 0 for an empty
// journal. Pass it to editor.NewClockAt to continue the sequence.
func (s *SQLite) LastHistorySeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM history WHERE document = ?
	`, s.name).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last history seq: %w", err)
	}
	return seq, nil
}
