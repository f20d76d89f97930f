package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/timeax/servicegraph/internal/compiler"
	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/policy"
)

// LoadError represents a failure to read one of the CLI's input files.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// readInput reads path, reporting a missing file as ErrCodeNotFound.
func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "file not found"}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Path: path, Message: "read failed", Err: err}
	}
	return data, nil
}

// decodeStrict decodes JSON or YAML (by extension) into out, rejecting
// unknown keys. YAML is converted to JSON first so the model's json tags
// apply to both.
func decodeStrict(path string, data []byte, out any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
	case ".yaml", ".yml":
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return &LoadError{Code: ErrCodeParse, Path: path, Message: "invalid YAML", Err: err}
		}
		converted, err := json.Marshal(generic)
		if err != nil {
			return &LoadError{Code: ErrCodeParse, Path: path, Message: "convert YAML", Err: err}
		}
		data = converted
	default:
		return &LoadError{Code: ErrCodeUnsupported, Path: path, Message: "expected .json, .yaml or .yml"}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &LoadError{Code: ErrCodeParse, Path: path, Message: "invalid document", Err: err}
	}
	return nil
}

// LoadDocument reads a document from a JSON or YAML file.
func LoadDocument(path string) (model.Document, error) {
	var doc model.Document
	data, err := readInput(path)
	if err != nil {
		return doc, err
	}
	err = decodeStrict(path, data, &doc)
	return doc, err
}

// LoadCapabilities reads a capability map keyed by service id. Records
// without an id take their key.
func LoadCapabilities(path string) (model.CapabilityMap, error) {
	caps := model.CapabilityMap{}
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	if err := decodeStrict(path, data, &caps); err != nil {
		return nil, err
	}
	for id, c := range caps {
		if c.ID == "" {
			c.ID = id
			caps[id] = c
		}
	}
	return caps, nil
}

// LoadPolicies reads raw policy source and picks the compiler for its
// extension: CUE (or JSON, which is valid CUE) and YAML.
func LoadPolicies(path string) ([]byte, policy.Compiler, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue", ".json":
		return data, compiler.PolicyCompiler{Filename: filepath.Base(path)}, nil
	case ".yaml", ".yml":
		return data, compiler.PolicyCompiler{YAML: true}, nil
	}
	return nil, nil, &LoadError{Code: ErrCodeUnsupported, Path: path, Message: "expected .cue, .json, .yaml or .yml"}
}

// WriteDocument writes doc as indented JSON.
func WriteDocument(path string, doc model.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &LoadError{Code: ErrCodeWriteFailed, Path: path, Message: "write failed", Err: err}
	}
	return nil
}

// splitList splits a comma separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
