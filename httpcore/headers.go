package httpcore

import "strings"

// Headers is a case-insensitive, insertion-order-agnostic header map.
// Comparisons are ASCII case-insensitive as spec.md §4.1 requires;
// repeated header lines with the same name are joined with ", ".
type Headers struct {
	m map[string]string // key: lowercased header name
}

// NewHeaders returns an empty Headers map.
func NewHeaders() *Headers {
	return &Headers{m: map[string]string{}}
}

func lowerHeader(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Set overwrites any existing value for name.
func (h *Headers) Set(name, value string) {
	h.m[lowerHeader(name)] = value
}

// Add appends value to any existing value for name, joined with ", ",
// matching the wire behavior of repeated header lines.
func (h *Headers) Add(name, value string) {
	key := lowerHeader(name)
	if existing, ok := h.m[key]; ok && existing != "" {
		h.m[key] = existing + ", " + value
	} else {
		h.m[key] = value
	}
}

// Get returns the value stored for name and whether it was present.
func (h *Headers) Get(name string) (string, bool) {
	v, ok := h.m[lowerHeader(name)]
	return v, ok
}

// GetDefault returns the value for name, or def if absent.
func (h *Headers) GetDefault(name, def string) string {
	if v, ok := h.Get(name); ok {
		return v
	}
	return def
}

// Has reports whether name was present.
func (h *Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Del removes name.
func (h *Headers) Del(name string) {
	delete(h.m, lowerHeader(name))
}

// Clone returns an independent copy.
func (h *Headers) Clone() *Headers {
	out := NewHeaders()
	for k, v := range h.m {
		out.m[k] = v
	}
	return out
}

// Range calls fn for every stored header, in unspecified order.
func (h *Headers) Range(fn func(name, value string)) {
	for k, v := range h.m {
		fn(k, v)
	}
}

// Len returns the number of distinct headers stored.
func (h *Headers) Len() int { return len(h.m) }
