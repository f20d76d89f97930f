package mutate

import (
	"errors"
	"fmt"

	"github.com/timeax/servicegraph/internal/naming"
)

// ErrorCode categorizes hard operation failures.
type ErrorCode string

const (
	// ErrCodeNotFound indicates an unknown tag, field, option or edge.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeCycleDetected indicates a bind would make a tag its own ancestor.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"

	// ErrCodeDuplicateID indicates an explicit id already in use.
	ErrCodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// ErrCodeDuplicateName indicates a field name already in use.
	ErrCodeDuplicateName ErrorCode = "DUPLICATE_NAME"

	// ErrCodeIDExhausted indicates id generation gave up.
	ErrCodeIDExhausted ErrorCode = "ID_EXHAUSTED"

	// ErrCodeNoServiceChecker indicates a service edge without an existence checker.
	ErrCodeNoServiceChecker ErrorCode = "NO_SERVICE_CHECKER"

	// ErrCodeUnknownService indicates the checker rejected a service id.
	ErrCodeUnknownService ErrorCode = "UNKNOWN_SERVICE"

	// ErrCodeUnsupportedRoute indicates an edge kind/endpoint combination with no handler.
	ErrCodeUnsupportedRoute ErrorCode = "UNSUPPORTED_ROUTE"

	// ErrCodeInvalidArgument indicates a malformed request.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// Sentinels matching OpError codes with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrCycle            = errors.New("cycle detected")
	ErrDuplicateID      = errors.New("duplicate id")
	ErrUnsupportedRoute = errors.New("unsupported route")
)

var sentinels = map[ErrorCode]error{
	ErrCodeNotFound:         ErrNotFound,
	ErrCodeCycleDetected:    ErrCycle,
	ErrCodeDuplicateID:      ErrDuplicateID,
	ErrCodeUnsupportedRoute: ErrUnsupportedRoute,
}

// OpError is a hard failure of a structural operation.
type OpError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed, e.g. "removeTag".
	Op string

	// Message is a human-readable description.
	Message string

	// Node is the id of the entity involved, when there is one.
	Node string

	// Details contains additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s: %s (node=%s)", e.Code, e.Op, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
}

// Is matches the sentinel for the error's code.
func (e *OpError) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

// CodeOf returns the code of an OpError anywhere in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}

// IsNotFound returns true if the error is an unknown-reference error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsCycleError returns true if the error is a cycle rejection.
func IsCycleError(err error) bool { return CodeOf(err) == ErrCodeCycleDetected }

// IsDuplicateID returns true if the error is a duplicate explicit id.
func IsDuplicateID(err error) bool { return CodeOf(err) == ErrCodeDuplicateID }

// IsDuplicateName returns true if the error is a duplicate field name.
func IsDuplicateName(err error) bool { return CodeOf(err) == ErrCodeDuplicateName }

// IsUnsupportedRoute returns true if no connect handler matched.
func IsUnsupportedRoute(err error) bool { return CodeOf(err) == ErrCodeUnsupportedRoute }

// IsMissingChecker returns true if a service edge had no existence checker.
func IsMissingChecker(err error) bool { return CodeOf(err) == ErrCodeNoServiceChecker }

func notFound(op string, kind, id string) *OpError {
	return &OpError{Code: ErrCodeNotFound, Op: op, Message: kind + " not found", Node: id}
}

func invalid(op, node, format string, args ...any) *OpError {
	return &OpError{Code: ErrCodeInvalidArgument, Op: op, Message: fmt.Sprintf(format, args...), Node: node}
}

func duplicateID(op, kind, id string) *OpError {
	return &OpError{Code: ErrCodeDuplicateID, Op: op, Message: kind + " id already in use", Node: id}
}

// idError converts a naming failure into an OpError.
func idError(op string, err error) error {
	if errors.Is(err, naming.ErrExhausted) {
		return &OpError{Code: ErrCodeIDExhausted, Op: op, Message: err.Error()}
	}
	return fmt.Errorf("%s: %w", op, err)
}
