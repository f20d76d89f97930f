package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Script is a bare list of steps, without fixtures or assertions. The CLI
// applies scripts to stored documents.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// LoadScript reads and validates an edit script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}
	return ParseScript(data)
}

// ParseScript parses edit script YAML. Unknown keys are rejected.
func ParseScript(data []byte) (*Script, error) {
	var script Script
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&script); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("invalid script: steps list is required and must be non-empty")
	}
	if err := validateSteps("steps", script.Steps); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return &script, nil
}
