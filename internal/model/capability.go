package model

// ServiceCapability is the descriptive record of a service: its rate, the
// constraint flags it supports, and the handler/platform it runs on.
type ServiceCapability struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	Rate       float64        `json:"rate"`
	Refill     bool           `json:"refill,omitempty"`
	Cancel     bool           `json:"cancel,omitempty"`
	Dripfeed   bool           `json:"dripfeed,omitempty"`
	HandlerID  string         `json:"handler_id,omitempty"`
	PlatformID string         `json:"platform_id,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Supports reports whether the service supports the named constraint flag.
func (c ServiceCapability) Supports(key string) bool {
	switch key {
	case ConstraintRefill:
		return c.Refill
	case ConstraintCancel:
		return c.Cancel
	case ConstraintDripfeed:
		return c.Dripfeed
	}
	return false
}

// CapabilityMap indexes capabilities by service id.
type CapabilityMap map[string]ServiceCapability

// HasService reports whether a capability record exists for the id.
func (m CapabilityMap) HasService(id string) bool {
	_, ok := m[id]
	return ok
}
