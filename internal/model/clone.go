package model

// Clone returns a deep copy of the document. Nil slices and maps stay nil so
// a clone fingerprints identically to its source.
func (d *Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	out := Document{
		OrderForTags:       cloneListMap(d.OrderForTags),
		IncludesForButtons: cloneListMap(d.IncludesForButtons),
		ExcludesForButtons: cloneListMap(d.ExcludesForButtons),
		IncludesForOptions: cloneListMap(d.IncludesForOptions),
		ExcludesForOptions: cloneListMap(d.ExcludesForOptions),
	}
	if d.Tags != nil {
		out.Tags = make([]Tag, len(d.Tags))
		for i := range d.Tags {
			out.Tags[i] = d.Tags[i].Clone()
		}
	}
	if d.Fields != nil {
		out.Fields = make([]Field, len(d.Fields))
		for i := range d.Fields {
			out.Fields[i] = d.Fields[i].Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the tag.
func (t Tag) Clone() Tag {
	out := t
	if t.Constraints != nil {
		c := t.Constraints.Clone()
		out.Constraints = &c
	}
	out.Includes = cloneStrings(t.Includes)
	out.Excludes = cloneStrings(t.Excludes)
	return out
}

// Clone returns a deep copy of the field and its options.
func (f Field) Clone() Field {
	out := f
	if f.Bind != nil {
		out.Bind = TagBinding(cloneStrings(f.Bind))
	}
	if f.Options != nil {
		out.Options = make([]Option, len(f.Options))
		copy(out.Options, f.Options)
	}
	return out
}

// Clone returns a copy of the constraints with fresh flag pointers.
func (c Constraints) Clone() Constraints {
	return Constraints{
		Refill:   cloneBool(c.Refill),
		Cancel:   cloneBool(c.Cancel),
		Dripfeed: cloneBool(c.Dripfeed),
	}
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneListMap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = cloneStrings(v)
	}
	return out
}
