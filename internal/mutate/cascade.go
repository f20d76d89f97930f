package mutate

import "github.com/timeax/servicegraph/internal/model"

// without returns list minus every occurrence of id; nil when nothing is left.
func without(list []string, id string) []string {
	var out []string
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// appendUnique appends id unless already present.
func appendUnique(list []string, id string) []string {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// pruneValues strips id from every value list and deletes emptied keys.
func pruneValues(m map[string][]string, id string) map[string][]string {
	for k, v := range m {
		if !contains(v, id) {
			continue
		}
		if rest := without(v, id); len(rest) > 0 {
			m[k] = rest
		} else {
			delete(m, k)
		}
	}
	return compact(m)
}

// compact turns an empty map into nil.
func compact(m map[string][]string) map[string][]string {
	if len(m) == 0 {
		return nil
	}
	return m
}

// addToMap appends id under key, creating the map if needed.
func addToMap(m map[string][]string, key, id string) map[string][]string {
	if m == nil {
		m = make(map[string][]string)
	}
	m[key] = appendUnique(m[key], id)
	return m
}

// removeFromMap removes id under key, deleting the key when emptied.
func removeFromMap(m map[string][]string, key, id string) (map[string][]string, bool) {
	list, ok := m[key]
	if !ok || !contains(list, id) {
		return m, false
	}
	if rest := without(list, id); len(rest) > 0 {
		m[key] = rest
	} else {
		delete(m, key)
	}
	return compact(m), true
}

// optionKeys returns the option-map keys that refer to an option of a field:
// the composite key always, the bare option id only when no other field
// owns an option with the same id.
func optionKeys(d *model.Document, fieldID, optionID string) []string {
	keys := []string{model.OptionKey(fieldID, optionID)}
	owners := d.FieldsWithOption(optionID)
	if len(owners) == 0 || (len(owners) == 1 && owners[0] == fieldID) {
		keys = append(keys, optionID)
	}
	return keys
}

// purgeTag removes every reference to a tag. The tag itself must already be
// gone from d.Tags.
func purgeTag(d *model.Document, tagID string) {
	for i := range d.Tags {
		if d.Tags[i].ParentID == tagID {
			d.Tags[i].ParentID = ""
		}
	}
	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Bind.Contains(tagID) {
			f.Bind = model.TagBinding(without(f.Bind, tagID))
		}
	}
	if d.OrderForTags != nil {
		delete(d.OrderForTags, tagID)
		d.OrderForTags = compact(d.OrderForTags)
	}
}

// purgeField removes every reference to a field. Option keys must be purged
// first, while the field's options are still known.
func purgeField(d *model.Document, fieldID string) {
	for i := range d.Tags {
		t := &d.Tags[i]
		t.Includes = without(t.Includes, fieldID)
		t.Excludes = without(t.Excludes, fieldID)
	}
	d.OrderForTags = pruneValues(d.OrderForTags, fieldID)

	delete(d.IncludesForButtons, fieldID)
	delete(d.ExcludesForButtons, fieldID)
	d.IncludesForButtons = pruneValues(d.IncludesForButtons, fieldID)
	d.ExcludesForButtons = pruneValues(d.ExcludesForButtons, fieldID)
	d.IncludesForOptions = pruneValues(d.IncludesForOptions, fieldID)
	d.ExcludesForOptions = pruneValues(d.ExcludesForOptions, fieldID)
}

// purgeOptionKeys deletes the option-map entries keyed by an option.
// Call it while the option is still present in the document.
func purgeOptionKeys(d *model.Document, fieldID, optionID string) {
	for _, key := range optionKeys(d, fieldID, optionID) {
		delete(d.IncludesForOptions, key)
		delete(d.ExcludesForOptions, key)
	}
	d.IncludesForOptions = compact(d.IncludesForOptions)
	d.ExcludesForOptions = compact(d.ExcludesForOptions)
}
