package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/timeax/servicegraph/internal/compiler"
	"github.com/timeax/servicegraph/internal/model"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s", event.Seq, event.Type, event.Command)
			if event.Code != "" {
				fmt.Fprintf(&buf, " code=%s", event.Code)
			}
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// matchEvent reports whether event satisfies every filter set on assertion.
func matchEvent(event TraceEvent, assertion Assertion) bool {
	if assertion.Event != "" && event.Type != assertion.Event {
		return false
	}
	if assertion.Command != "" && event.Command != assertion.Command {
		return false
	}
	if assertion.Code != "" && event.Code != assertion.Code {
		return false
	}
	if assertion.Node != "" && event.Node != assertion.Node {
		return false
	}
	return true
}

func describeFilter(a Assertion) string {
	var parts []string
	if a.Event != "" {
		parts = append(parts, "event="+a.Event)
	}
	if a.Command != "" {
		parts = append(parts, "command="+a.Command)
	}
	if a.Code != "" {
		parts = append(parts, "code="+a.Code)
	}
	if a.Node != "" {
		parts = append(parts, "node="+a.Node)
	}
	return strings.Join(parts, " ")
}

// assertTraceContains checks that some event matches the assertion filters.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if matchEvent(event, assertion) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("event with %s", describeFilter(assertion)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that commands first appear in the specified order.
// Commands don't need to be consecutive (intervening events are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)

	for i, event := range trace {
		if event.Type != "editor:command" {
			continue
		}
		for _, expected := range assertion.Commands {
			if event.Command == expected && positions[expected] == 0 {
				positions[expected] = i + 1 // 1-indexed for readability
			}
		}
	}

	for _, command := range assertion.Commands {
		if positions[command] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all commands present: %v", assertion.Commands),
				Actual:   fmt.Sprintf("missing command: %s", command),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Commands); i++ {
		prev := assertion.Commands[i-1]
		curr := assertion.Commands[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("commands in order: %v", assertion.Commands),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that exactly Count events match the filters.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if matchEvent(event, assertion) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d events with %s", assertion.Count, describeFilter(assertion)),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState checks the node's JSON form against Expect using subset
// semantics. Expected values are compared after a JSON round trip so YAML
// ints match JSON numbers.
func assertFinalState(doc *model.Document, assertion Assertion) error {
	ref, err := model.ResolveRef(doc, assertion.Node)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("node %s to exist", assertion.Node),
			Actual:   err.Error(),
		}
	}

	actual, err := nodeJSON(doc, ref)
	if err != nil {
		return fmt.Errorf("final_state %s: %w", assertion.Node, err)
	}
	expected, err := normalize(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_state %s: expect: %w", assertion.Node, err)
	}

	for key, expectedValue := range expected {
		actualValue, exists := actual[key]
		if !exists {
			actualValue = nil
		}
		if !valuesEqual(actualValue, expectedValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %v", assertion.Node, key, expectedValue),
				Actual:   fmt.Sprintf("%s.%s = %v", assertion.Node, key, actualValue),
			}
		}
	}

	return nil
}

// assertNodeAbsent checks that the node no longer resolves.
func assertNodeAbsent(doc *model.Document, assertion Assertion) error {
	if ref, err := model.ResolveRef(doc, assertion.Node); err == nil {
		return &AssertionError{
			Type:     AssertNodeAbsent,
			Expected: fmt.Sprintf("node %s to be absent", assertion.Node),
			Actual:   fmt.Sprintf("found %s %s", ref.Kind, ref),
		}
	}
	return nil
}

// assertHistory checks the recorded entry labels, oldest first.
func assertHistory(result *Result, assertion Assertion) error {
	want := assertion.Labels
	if want == nil {
		want = []string{}
	}
	if !reflect.DeepEqual(result.History, want) {
		return &AssertionError{
			Type:     AssertHistory,
			Expected: fmt.Sprintf("history %v", want),
			Actual:   fmt.Sprintf("history %v", result.History),
		}
	}
	return nil
}

// assertValid checks that the final document has no violations.
func assertValid(doc *model.Document) error {
	errs := compiler.Validate(doc)
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return &AssertionError{
		Type:     AssertValid,
		Expected: "no violations",
		Actual:   strings.Join(msgs, "; "),
	}
}

// nodeJSON renders the referenced node as a generic JSON object.
func nodeJSON(doc *model.Document, ref model.NodeRef) (map[string]interface{}, error) {
	var node interface{}
	switch ref.Kind {
	case model.KindTag:
		node = doc.Tag(ref.ID)
	case model.KindField:
		node = doc.Field(ref.ID)
	case model.KindOption:
		node = doc.Option(ref.FieldID, ref.ID)
	default:
		return nil, fmt.Errorf("unsupported node kind %q", ref.Kind)
	}
	out, err := normalize(node)
	if err != nil {
		return nil, err
	}
	m, ok := out.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("node %s is not an object", ref)
	}
	return m, nil
}

// normalize round-trips v through JSON.
func normalize[T any](v T) (T, error) {
	var zero T
	data, err := json.Marshal(v)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, err
	}
	return out, nil
}

// valuesEqual compares two values for equality.
// Handles nested maps and slices.
func valuesEqual(actual, expected interface{}) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}
	return reflect.DeepEqual(actual, expected)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(&result.Document, assertion)
		case AssertNodeAbsent:
			err = assertNodeAbsent(&result.Document, assertion)
		case AssertHistory:
			err = assertHistory(result, assertion)
		case AssertValid:
			err = assertValid(&result.Document)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
