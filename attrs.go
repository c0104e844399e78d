package docweaver

import (
	"html"
	"strings"
	"unicode"
)

// Attr is a single element attribute. An empty Value renders as a bare
// (boolean) attribute, e.g. `defer`.
type Attr struct {
	Key   string
	Value string
}

// Attrs is an ordered attribute map. Keys are unique; setting an existing
// key replaces its value in place.
type Attrs []Attr

// Set returns a copy of a with key set to value.
func (a Attrs) Set(key, value string) Attrs {
	out := make(Attrs, len(a), len(a)+1)
	copy(out, a)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Attr{Key: key, Value: value})
}

// Get returns the value stored under key.
func (a Attrs) Get(key string) (string, bool) {
	for _, at := range a {
		if at.Key == key {
			return at.Value, true
		}
	}
	return "", false
}

// validAttrKey rejects keys that would break `key="value"` serialization.
func validAttrKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
		switch r {
		case '"', '\'', '<', '>', '/', '=':
			return false
		}
	}
	return true
}

// render writes the attributes with a leading space, or nothing when a is
// empty. path identifies the owning node in errors.
func (a Attrs) render(sb *strings.Builder, tag, path string) error {
	for _, at := range a {
		if !validAttrKey(at.Key) {
			return NewInvalidAttributeError(path, tag, at.Key)
		}
		sb.WriteByte(' ')
		sb.WriteString(at.Key)
		if at.Value != "" {
			sb.WriteString(`="`)
			sb.WriteString(html.EscapeString(at.Value))
			sb.WriteByte('"')
		}
	}
	return nil
}
