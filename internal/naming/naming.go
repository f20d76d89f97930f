// Package naming derives ids, labels and field names for new and copied
// entities, probing the document for collisions.
package naming

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/timeax/servicegraph/internal/model"
)

// MaxAttempts bounds every probing loop.
const MaxAttempts = 9999

// ErrExhausted is matched by ExhaustedError via errors.Is.
var ErrExhausted = errors.New("id generation exhausted")

// ExhaustedError reports that no free candidate was found within MaxAttempts.
type ExhaustedError struct {
	Base     string
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("no free id for %q after %d attempts", e.Base, e.Attempts)
}

// Is makes errors.Is(err, ErrExhausted) work.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Taken is a set of identifiers already in use.
type Taken map[string]bool

var (
	copyIDPattern    = regexp.MustCompile(`^(.*)_copy(\d*)$`)
	copyLabelPattern = regexp.MustCompile(`^(.*) \(copy(?: (\d+))?\)$`)
	trailingInt      = regexp.MustCompile(`^(.*?)(\d+)$`)
)

// TakenIDs collects every tag, field and option id in the document.
func TakenIDs(d *model.Document) Taken {
	taken := make(Taken, len(d.Tags)+len(d.Fields))
	for _, t := range d.Tags {
		taken[t.ID] = true
	}
	for _, f := range d.Fields {
		taken[f.ID] = true
		for _, o := range f.Options {
			taken[o.ID] = true
		}
	}
	return taken
}

// TakenFieldNames collects every non-empty field name.
func TakenFieldNames(d *model.Document) Taken {
	taken := make(Taken, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name != "" {
			taken[f.Name] = true
		}
	}
	return taken
}

// TakenTagLabels collects every tag label.
func TakenTagLabels(d *model.Document) Taken {
	taken := make(Taken, len(d.Tags))
	for _, t := range d.Tags {
		taken[t.Label] = true
	}
	return taken
}

// TakenFieldLabels collects every field label.
func TakenFieldLabels(d *model.Document) Taken {
	taken := make(Taken, len(d.Fields))
	for _, f := range d.Fields {
		taken[f.Label] = true
	}
	return taken
}

// TakenOptionLabels collects the option labels of one field.
func TakenOptionLabels(f *model.Field) Taken {
	taken := make(Taken, len(f.Options))
	for _, o := range f.Options {
		taken[o.Label] = true
	}
	return taken
}

// NextCopyID returns the copy-suffixed successor of an id:
// "x" → "x_copy", "x_copy" → "x_copy2", "x_copy7" → "x_copy8".
func NextCopyID(id string) string {
	m := copyIDPattern.FindStringSubmatch(id)
	if m == nil {
		return id + "_copy"
	}
	n := 1
	if m[2] != "" {
		n, _ = strconv.Atoi(m[2])
	}
	return fmt.Sprintf("%s_copy%d", m[1], n+1)
}

// bumpTrailingInt increments a trailing integer, or appends 2 when there is none.
func bumpTrailingInt(s string) string {
	m := trailingInt.FindStringSubmatch(s)
	if m == nil {
		return s + "2"
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return s + "2"
	}
	return m[1] + strconv.Itoa(n+1)
}

// Probe starts from the copy-suffixed candidate and increments until free.
func Probe(base string, taken Taken) (string, error) {
	cand := NextCopyID(base)
	for i := 0; i < MaxAttempts; i++ {
		if !taken[cand] {
			return cand, nil
		}
		cand = bumpTrailingInt(cand)
	}
	return "", &ExhaustedError{Base: base, Attempts: MaxAttempts}
}

// UniqueID derives a fresh tag or field id from base.
func UniqueID(d *model.Document, base string) (string, error) {
	return Probe(base, TakenIDs(d))
}

// UniqueOptionID derives a fresh option id for a field. Ids elsewhere in the
// document are avoided too, so bare option ids stay resolvable.
func UniqueOptionID(d *model.Document, f *model.Field, base string) (string, error) {
	taken := TakenIDs(d)
	for _, o := range f.Options {
		taken[o.ID] = true
	}
	return Probe(base, taken)
}

// GenID returns the first unused "prefix:N" (N ≥ 1) across all namespaces.
func GenID(d *model.Document, prefix string) (string, error) {
	taken := TakenIDs(d)
	for n := 1; n <= MaxAttempts; n++ {
		cand := prefix + ":" + strconv.Itoa(n)
		if !taken[cand] {
			return cand, nil
		}
	}
	return "", &ExhaustedError{Base: prefix, Attempts: MaxAttempts}
}

// CopyLabel derives a display label for a copy:
// "X" → "X (copy)" → "X (copy 2)" → "X (copy 3)".
func CopyLabel(label string, taken Taken) string {
	base, n := label, 0
	if m := copyLabelPattern.FindStringSubmatch(label); m != nil {
		base, n = m[1], 1
		if m[2] != "" {
			n, _ = strconv.Atoi(m[2])
		}
	}
	for i := 0; i < MaxAttempts; i++ {
		n++
		cand := base + " (copy)"
		if n > 1 {
			cand = fmt.Sprintf("%s (copy %d)", base, n)
		}
		if !taken[cand] {
			return cand
		}
	}
	return base + " (copy)"
}

// CopyName derives a field name for a copy: "x" → "x_copy" → "x_copy2".
// Returns "" for an empty name.
func CopyName(name string, taken Taken) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil
	}
	return Probe(name, taken)
}
