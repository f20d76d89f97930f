package model

// Constraint flag names, in canonical order.
const (
	ConstraintRefill   = "refill"
	ConstraintCancel   = "cancel"
	ConstraintDripfeed = "dripfeed"
)

// ConstraintKeys lists every constraint flag.
var ConstraintKeys = []string{ConstraintRefill, ConstraintCancel, ConstraintDripfeed}

// Constraints are tri-state service requirement flags on a tag. A nil flag
// inherits from the nearest ancestor that sets it.
type Constraints struct {
	Refill   *bool `json:"refill,omitempty"`
	Cancel   *bool `json:"cancel,omitempty"`
	Dripfeed *bool `json:"dripfeed,omitempty"`
}

// Get returns the flag with the given name, or nil when unset or unknown.
func (c *Constraints) Get(key string) *bool {
	if c == nil {
		return nil
	}
	switch key {
	case ConstraintRefill:
		return c.Refill
	case ConstraintCancel:
		return c.Cancel
	case ConstraintDripfeed:
		return c.Dripfeed
	}
	return nil
}

// Set stores a flag by name. Unknown names are ignored.
func (c *Constraints) Set(key string, v *bool) {
	switch key {
	case ConstraintRefill:
		c.Refill = cloneBool(v)
	case ConstraintCancel:
		c.Cancel = cloneBool(v)
	case ConstraintDripfeed:
		c.Dripfeed = cloneBool(v)
	}
}

// Required returns the names of flags explicitly set to true.
func (c *Constraints) Required() []string {
	var keys []string
	for _, k := range ConstraintKeys {
		if v := c.Get(k); v != nil && *v {
			keys = append(keys, k)
		}
	}
	return keys
}

// IsEmpty reports whether no flag is set.
func (c *Constraints) IsEmpty() bool {
	return c == nil || (c.Refill == nil && c.Cancel == nil && c.Dripfeed == nil)
}

// PropagateConstraints computes the effective constraints of every tag: for
// each flag the tag's own value wins, then the nearest ancestor that sets it.
// Tags with nothing set anywhere on their chain are omitted.
func PropagateConstraints(d *Document) map[string]Constraints {
	out := make(map[string]Constraints, len(d.Tags))
	for _, t := range d.Tags {
		eff := Constraints{}
		chain := append([]string{t.ID}, d.Ancestors(t.ID)...)
		for _, k := range ConstraintKeys {
			for _, id := range chain {
				at := d.Tag(id)
				if at == nil {
					break
				}
				if v := at.Constraints.Get(k); v != nil {
					eff.Set(k, v)
					break
				}
			}
		}
		if !eff.IsEmpty() {
			out[t.ID] = eff
		}
	}
	return out
}

// Bool returns a pointer to b, for building constraint literals.
func Bool(b bool) *bool {
	return &b
}
