// Package testutil provides deterministic fixtures for editor tests and
// the scenario harness: sequential id generators, a recording notifier, a
// recording view, and sample documents.
package testutil
