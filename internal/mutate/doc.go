// Package mutate implements the structural operations on a service graph
// document.
//
// Every operation is pure: it reads the source document, clones it,
// transforms the clone and returns the clone in a Result. The source is never
// modified, so a failed operation leaves the caller's document untouched.
//
// Two failure channels are kept apart:
//
// Hard failures (unknown reference, cycle attempt, duplicate explicit id,
// unsupported connect route, missing service checker, id exhaustion) are
// returned as *OpError and abort the operation.
//
// Soft violations (a service mapped onto a utility entity or onto a field
// that cannot carry one) do not abort. The offending value is stripped from
// the result and reported in Result.Diagnostics, so an invalid state is
// never produced.
//
// After every successful operation the document satisfies:
//   - the tag parent graph is acyclic
//   - tag ids and field ids are unique; option ids are unique per field
//   - field names, when set, are unique
//   - no utility option or field carries a service id
//   - no option-bearing or non-button field carries a field-level service id
//   - every include/exclude/order/option-map reference resolves, and
//     emptied keys are deleted
package mutate
