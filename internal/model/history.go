package model

// HistoryRecord describes one committed history entry.
type HistoryRecord struct {
	// ID is a unique, time-sortable entry id.
	ID string `json:"id"`

	// Seq is the editor's logical clock value at commit.
	Seq int64 `json:"seq"`

	// Label is the command name or transaction label.
	Label string `json:"label"`

	// Reason is "mutation" or "transaction".
	Reason string `json:"reason"`

	// Fingerprint is the document fingerprint after the entry.
	Fingerprint string `json:"fingerprint"`
}
