// Package editor implements the command and transaction engine over a
// service graph document.
//
// Every structural edit runs as a Command through Exec. The editor captures
// a snapshot (document plus view layout) before the command, runs it, and on
// success commits the after-snapshot to a bounded linear history and emits
// an editor:change event. A failing command restores the before-snapshot,
// emits editor:error with code "command" and returns a *CommandError.
//
// Transact groups commands into one history entry. Only the outermost call
// snapshots and commits; nested calls join it. Any error or panic inside
// restores the pre-transaction document.
//
// Undo and Redo move a cursor over the recorded snapshots, reinstalling the
// document and the captured layout (or refreshing the view when none was
// captured).
//
// The editor is single-threaded: it is not safe for concurrent use, and
// commands must not call Undo or Redo.
//
// Soft service-role violations never fail a command. They are stripped by
// the mutation and emitted as editor:error events carrying the violation code.
package editor
