package mutate

import (
	"fmt"

	"github.com/timeax/servicegraph/internal/model"
)

// Diagnostic codes for soft service-role violations.
const (
	DiagServiceOnUtility     = "service_on_utility"
	DiagServiceOnOptionField = "service_on_option_field"
	DiagServiceOnNonButton   = "service_on_non_button"
)

// Diagnostic reports a value that was stripped instead of stored.
type Diagnostic struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Node    model.NodeRef `json:"node"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s (%s)", d.Code, d.Message, d.Node)
}

// Result is the outcome of a successful operation.
type Result struct {
	// Document is the transformed clone.
	Document model.Document

	// Diagnostics lists soft violations normalized away.
	Diagnostics []Diagnostic

	// Created is the entity added or duplicated, when the operation creates one.
	Created *model.NodeRef
}

func (r *Result) created(ref model.NodeRef) {
	r.Created = &ref
}

// ServiceChecker answers whether a service id exists.
// model.CapabilityMap implements it.
type ServiceChecker interface {
	HasService(id string) bool
}

// ServiceCheckerFunc adapts a predicate to ServiceChecker.
type ServiceCheckerFunc func(id string) bool

// HasService implements ServiceChecker.
func (f ServiceCheckerFunc) HasService(id string) bool { return f(id) }
