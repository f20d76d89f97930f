package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/timeax/servicegraph/internal/model"
)

// marshalDocument converts a document to canonical JSON TEXT for storage.
// The same bytes feed the revision fingerprint.
func marshalDocument(d *model.Document) (string, error) {
	data, err := model.MarshalCanonical(d)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

// unmarshalDocument parses a stored document body.
func unmarshalDocument(data string) (model.Document, error) {
	var d model.Document
	if data == "" {
		return d, nil
	}
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return model.Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return d, nil
}

// marshalJSON encodes v with HTML escaping disabled.
// Capabilities carry float rates, so they cannot use canonical JSON.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

func marshalCapability(c model.ServiceCapability) (string, error) {
	s, err := marshalJSON(c)
	if err != nil {
		return "", fmt.Errorf("marshal capability %s: %w", c.ID, err)
	}
	return s, nil
}

func unmarshalCapability(data string) (model.ServiceCapability, error) {
	var c model.ServiceCapability
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return model.ServiceCapability{}, fmt.Errorf("unmarshal capability: %w", err)
	}
	return c, nil
}

func marshalConstraints(c model.Constraints) (string, error) {
	s, err := marshalJSON(c)
	if err != nil {
		return "", fmt.Errorf("marshal constraints: %w", err)
	}
	return s, nil
}

func unmarshalConstraints(data string) (model.Constraints, error) {
	var c model.Constraints
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return model.Constraints{}, fmt.Errorf("unmarshal constraints: %w", err)
	}
	return c, nil
}
