// Package store provides the document stores the editor runs against.
//
// Two implementations share one contract:
//   - Memory: process-local, for tests, the harness and one-shot CLI runs
//   - SQLite: durable, with a revision log, a capability table, derived
//     constraints and a journal of committed history entries
//
// Both hand out copies: GetDocument returns a clone, and ReplaceDocument
// takes ownership of its argument. Both recompute each tag's effective
// constraints on ReplaceDocument (see model.PropagateConstraints).
//
// # SQLite layout
//
//   - revisions: every stored document body, canonical JSON, with its
//     fingerprint and a per-document seq
//   - documents: the head revision of each named document
//   - effective_constraints: derived per-tag constraints of the head
//   - capabilities: service capability records keyed by service id
//   - history: committed editor history entries
//
// All ordered queries use ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
