// Package model provides the service graph document types.
//
// This package contains the document shape and pure helpers over it. All
// other internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - Documents are values: every edit works on a Clone and installs the
//     result as a unit, nobody mutates a stored document in place
//   - Tag, field and option ids live in separate namespaces; option ids are
//     only unique within their owning field
//   - All JSON tags use snake_case
//   - Fingerprints use canonical JSON (sorted keys, NFC strings, no floats)
package model
