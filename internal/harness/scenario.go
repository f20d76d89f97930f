package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is an editing session replayed through the editor.
// Scenarios pin down editor behavior by running a list of steps and
// asserting on the resulting event trace, history and final document.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is an optional path to a JSON document to start from.
	// Relative paths resolve against the scenario file. Empty starts from
	// testutil.SampleDocument.
	Document string `yaml:"document,omitempty"`

	// Capabilities is an optional path to a JSON capability map, keyed by
	// service id. Empty uses testutil.SampleCapabilities.
	Capabilities string `yaml:"capabilities,omitempty"`

	// HistoryLimit overrides the editor's history limit.
	HistoryLimit int `yaml:"history_limit,omitempty"`

	// ValidateAfterEach enables the validation pass after every commit.
	ValidateAfterEach bool `yaml:"validate_after_each,omitempty"`

	// Steps are run in order against a single editor.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace, history and final document.
	// Supported types: trace_contains, trace_order, trace_count,
	// final_state, node_absent, history, valid
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one editor call.
type Step struct {
	// Op names the editor operation (see the Op constants).
	Op string `yaml:"op"`

	// Node is the target node id, resolved against the current document.
	// Options use "fieldId::optionId".
	Node string `yaml:"node,omitempty"`

	// Args holds operation arguments. Each op decodes them strictly.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Label names a transaction.
	Label string `yaml:"label,omitempty"`

	// Steps are the nested steps of a transaction.
	Steps []Step `yaml:"steps,omitempty"`

	// Fail makes a transaction return an error after its nested steps ran.
	Fail bool `yaml:"fail,omitempty"`

	// ExpectError is the error code the step must fail with. "any" accepts
	// every failure. Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Moved is the expected result of undo or redo.
	Moved *bool `yaml:"moved,omitempty"`
}

// Operation names accepted in Step.Op.
const (
	OpAddTag       = "addTag"
	OpUpdateTag    = "updateTag"
	OpAddField     = "addField"
	OpUpdateField  = "updateField"
	OpAddOption    = "addOption"
	OpUpdateOption = "updateOption"
	OpRemove       = "remove"
	OpDuplicate    = "duplicate"
	OpPlace        = "place"
	OpConnect      = "connect"
	OpDisconnect   = "disconnect"
	OpSetService   = "setService"
	OpTransact     = "transact"
	OpUndo         = "undo"
	OpRedo         = "redo"
	OpValidate     = "validate"
)

// AnyError matches every failure in Step.ExpectError.
const AnyError = "any"

// Assertion validates trace, history or final document.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event matching event/command/code/node exists
	// - "trace_order": commands appear in order
	// - "trace_count": events matching event/command/code occur exactly Count times
	// - "final_state": the node's JSON form contains Expect
	// - "node_absent": the node no longer exists
	// - "history": the recorded entry labels equal Labels
	// - "valid": the final document has no invariant violations
	Type string `yaml:"type"`

	// Event is the editor event type, e.g. "editor:error".
	Event string `yaml:"event,omitempty"`

	// Command is the command name or transaction label.
	Command string `yaml:"command,omitempty"`

	// Code is the error code of an editor:error event.
	Code string `yaml:"code,omitempty"`

	// Node is the node id (used by trace_contains, final_state, node_absent).
	Node string `yaml:"node,omitempty"`

	// Expect contains expected JSON values of the node (used by final_state).
	// Subset match - only specified keys are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Commands is the expected command order (used by trace_order).
	Commands []string `yaml:"commands,omitempty"`

	// Labels is the expected history (used by history).
	Labels []string `yaml:"labels,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertNodeAbsent    = "node_absent"
	AssertHistory       = "history"
	AssertValid         = "valid"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Document and capability paths are resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	scenario.Document = resolvePath(base, scenario.Document)
	scenario.Capabilities = resolvePath(base, scenario.Capabilities)

	if err := validateFiles(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func validateFiles(s *Scenario) error {
	for _, p := range []string{s.Document, s.Capabilities} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
	}
	return nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must be non-negative")
	}

	if err := validateSteps("steps", s.Steps); err != nil {
		return err
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateSteps(path string, steps []Step) error {
	for i, step := range steps {
		at := fmt.Sprintf("%s[%d]", path, i)
		switch step.Op {
		case "":
			return fmt.Errorf("%s: op is required", at)
		case OpAddTag, OpAddField, OpValidate:
		case OpUndo, OpRedo:
			if step.Node != "" || len(step.Args) > 0 {
				return fmt.Errorf("%s: %s takes no node or args", at, step.Op)
			}
		case OpConnect, OpDisconnect:
			if len(step.Args) == 0 {
				return fmt.Errorf("%s: args is required for %s", at, step.Op)
			}
		case OpTransact:
			if step.Label == "" {
				return fmt.Errorf("%s: label is required for transact", at)
			}
			if err := validateSteps(at+".steps", step.Steps); err != nil {
				return err
			}
		case OpUpdateTag, OpUpdateField, OpAddOption, OpUpdateOption,
			OpRemove, OpDuplicate, OpPlace, OpSetService:
			if step.Node == "" {
				return fmt.Errorf("%s: node is required for %s", at, step.Op)
			}
		default:
			return fmt.Errorf("%s: unknown op %q", at, step.Op)
		}
		if step.Op != OpTransact && (len(step.Steps) > 0 || step.Fail) {
			return fmt.Errorf("%s: steps and fail are only valid for transact", at)
		}
		if step.Moved != nil && step.Op != OpUndo && step.Op != OpRedo {
			return fmt.Errorf("%s: moved is only valid for undo and redo", at)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" && a.Command == "" && a.Code == "" {
			return fmt.Errorf("assertions[%d]: one of event, command or code is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Commands) == 0 {
			return fmt.Errorf("assertions[%d]: commands list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" && a.Command == "" && a.Code == "" {
			return fmt.Errorf("assertions[%d]: one of event, command or code is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertNodeAbsent:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for node_absent", index)
		}
	case AssertHistory, AssertValid:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
