package model

// FieldMapping maps model variable names to dataset field names.
// An empty value means the variable is left unmapped. Several variables may share a field.
type FieldMapping map[string]string

// Clone copies the mapping.
func (m FieldMapping) Clone() FieldMapping {
	if m == nil {
		return nil
	}
	out := make(FieldMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Lookup returns the field mapped to variable and whether one is set.
func (m FieldMapping) Lookup(variable string) (string, bool) {
	f, ok := m[variable]
	return f, ok && f != ""
}

// SelectedFields returns the distinct mapped fields, ordered as they appear in schema.
func (m FieldMapping) SelectedFields(schema []string) []string {
	used := make(map[string]struct{}, len(m))
	for _, f := range m {
		if f != "" {
			used[f] = struct{}{}
		}
	}
	out := make([]string, 0, len(used))
	for _, f := range schema {
		if _, ok := used[f]; ok {
			out = append(out, f)
		}
	}
	return out
}
