package forms

import "sort"

// ErrorMap maps a field name to a human-readable validation message.
// A field is invalid when it has a non-empty entry.
type ErrorMap map[string]string

// Get returns the message for a field, or "" when the field is valid.
func (e ErrorMap) Get(field string) string {
	return e[field]
}

// Has reports whether the field currently carries a message.
func (e ErrorMap) Has(field string) bool {
	return e[field] != ""
}

// Set records a message for a field. An empty message removes the entry.
func (e ErrorMap) Set(field, message string) {
	if message == "" {
		delete(e, field)
		return
	}
	e[field] = message
}

// Clear removes the message for a field and reports whether one was present.
func (e ErrorMap) Clear(field string) bool {
	if !e.Has(field) {
		return false
	}
	delete(e, field)
	return true
}

// Len returns the number of invalid fields.
func (e ErrorMap) Len() int {
	n := 0
	for _, msg := range e {
		if msg != "" {
			n++
		}
	}
	return n
}

// Fields returns the invalid field names in sorted order.
func (e ErrorMap) Fields() []string {
	fields := make([]string, 0, len(e))
	for field, msg := range e {
		if msg != "" {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

// Clone returns an independent copy.
func (e ErrorMap) Clone() ErrorMap {
	out := make(ErrorMap, len(e))
	for k, v := range e {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
