package editor

import (
	"errors"
	"fmt"
)

// Error codes carried by editor:error events.
const (
	// CodeCommand reports a failed command.
	CodeCommand = "command"

	// CodeTransaction reports a transaction rolled back for a reason other
	// than a failed command.
	CodeTransaction = "transaction"

	// CodeValidate reports a document invariant violation.
	CodeValidate = "validate"

	// CodeHook reports a failed command Undo or Redo hook.
	CodeHook = "hook"
)

// ErrNoDo is returned by Exec for a command without a Do function.
var ErrNoDo = errors.New("command has no Do function")

// CommandError wraps the failure of a command's Do function.
type CommandError struct {
	// Command is the name of the failed command.
	Command string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s: %v", e.Command, e.Err)
}

// Unwrap returns the underlying failure.
func (e *CommandError) Unwrap() error { return e.Err }

// IsCommandError returns true if the error is a command failure.
// Uses errors.As to handle wrapped errors.
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}
