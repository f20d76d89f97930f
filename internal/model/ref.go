package model

import (
	"fmt"
	"strings"
)

// NodeKind discriminates the three entity namespaces.
type NodeKind string

const (
	KindTag    NodeKind = "tag"
	KindField  NodeKind = "field"
	KindOption NodeKind = "option"

	// KindService refers to a service outside the document. Only connect
	// and disconnect accept it, as the target of a service edge.
	KindService NodeKind = "service"
)

// NodeRef identifies a tag, a field, or an option of a field.
// FieldID is set only for options.
type NodeRef struct {
	Kind    NodeKind `json:"kind"`
	ID      string   `json:"id"`
	FieldID string   `json:"field_id,omitempty"`
}

// TagRef builds a tag reference.
func TagRef(id string) NodeRef { return NodeRef{Kind: KindTag, ID: id} }

// FieldRef builds a field reference.
func FieldRef(id string) NodeRef { return NodeRef{Kind: KindField, ID: id} }

// OptionRef builds an option reference.
func OptionRef(fieldID, optionID string) NodeRef {
	return NodeRef{Kind: KindOption, ID: optionID, FieldID: fieldID}
}

// ServiceRef builds a service reference.
func ServiceRef(id string) NodeRef { return NodeRef{Kind: KindService, ID: id} }

// String renders the reference the way ids appear in documents.
func (r NodeRef) String() string {
	if r.Kind == KindOption {
		return OptionKey(r.FieldID, r.ID)
	}
	return r.ID
}

// Exists reports whether the referenced entity is present in the document.
func (r NodeRef) Exists(d *Document) bool {
	switch r.Kind {
	case KindTag:
		return d.Tag(r.ID) != nil
	case KindField:
		return d.Field(r.ID) != nil
	case KindOption:
		return d.Option(r.FieldID, r.ID) != nil
	}
	return false
}

// ResolveRef turns a raw id into a NodeRef once, at the API boundary.
//
// Accepted forms:
//   - "fieldId::optionId" for options
//   - any id present in exactly one namespace of the document
//   - "t:"/"f:"/"o:" prefixed ids, used as a tiebreak when an id is unknown
//     or present in several namespaces
func ResolveRef(d *Document, raw string) (NodeRef, error) {
	if raw == "" {
		return NodeRef{}, fmt.Errorf("empty node id")
	}
	if fieldID, optionID, ok := strings.Cut(raw, OptionKeySeparator); ok {
		if d.Option(fieldID, optionID) == nil {
			return NodeRef{}, fmt.Errorf("option %q not found", raw)
		}
		return OptionRef(fieldID, optionID), nil
	}

	var hits []NodeRef
	if d.Tag(raw) != nil {
		hits = append(hits, TagRef(raw))
	}
	if d.Field(raw) != nil {
		hits = append(hits, FieldRef(raw))
	}
	for _, owner := range d.FieldsWithOption(raw) {
		hits = append(hits, OptionRef(owner, raw))
	}

	if len(hits) == 1 {
		return hits[0], nil
	}
	if kind, ok := kindFromPrefix(raw); ok {
		for _, h := range hits {
			if h.Kind == kind {
				return h, nil
			}
		}
	}
	if len(hits) == 0 {
		return NodeRef{}, fmt.Errorf("node %q not found", raw)
	}
	return NodeRef{}, fmt.Errorf("node %q is ambiguous (%d matches)", raw, len(hits))
}

func kindFromPrefix(id string) (NodeKind, bool) {
	switch {
	case strings.HasPrefix(id, "t:"):
		return KindTag, true
	case strings.HasPrefix(id, "f:"):
		return KindField, true
	case strings.HasPrefix(id, "o:"):
		return KindOption, true
	}
	return "", false
}
