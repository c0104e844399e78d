package docweaver

import (
	"fmt"
	"math"
	"sort"
)

// RenderFunc turns the keyword arguments of a directive into markup and the
// resources that markup needs. It must be pure.
type RenderFunc func(args Args, ctx Context) (string, Dependencies, error)

// Entry binds a directive name to its renderer. Validator, when set, checks
// the arguments before Func is called.
type Entry struct {
	Name      string
	Func      RenderFunc
	Validator Validator
}

// Func is a shorthand for an Entry without validation.
func Func(name string, fn RenderFunc) Entry {
	return Entry{Name: name, Func: fn}
}

// Registry is the closed table of directive renderers. It cannot change
// after construction; With derives a new one.
type Registry struct {
	byName map[string]Entry
}

// NewRegistry builds a registry. Names must be identifiers and unique.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{byName: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if err := checkEntry(e); err != nil {
			return nil, err
		}
		if _, dup := r.byName[e.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate directive %q", e.Name)
		}
		r.byName[e.Name] = e
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. It is meant for
// tables built at program start.
func MustRegistry(entries ...Entry) *Registry {
	r, err := NewRegistry(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

// With returns a registry holding r's entries, with entries added or
// replacing those of the same name. r is unchanged.
func (r *Registry) With(entries ...Entry) (*Registry, error) {
	out := &Registry{byName: make(map[string]Entry, len(r.byName)+len(entries))}
	for k, v := range r.byName {
		out.byName[k] = v
	}
	for _, e := range entries {
		if err := checkEntry(e); err != nil {
			return nil, err
		}
		out.byName[e.Name] = e
	}
	return out, nil
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	e, ok := r.byName[name]
	return e, ok
}

// Names returns the registered directive names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func checkEntry(e Entry) error {
	if !isIdent(e.Name) {
		return fmt.Errorf("registry: invalid directive name %q", e.Name)
	}
	if e.Func == nil {
		return fmt.Errorf("registry: directive %q has no renderer", e.Name)
	}
	return nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i], i == 0) {
			return false
		}
	}
	return true
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		return true
	case '0' <= c && c <= '9':
		return !first
	}
	return false
}

// Args holds the evaluated keyword arguments of one directive call, in call
// order.
type Args struct {
	names  []string
	values map[string]Value
}

// NewArgs builds Args from name/value pairs in order. Later duplicates
// replace earlier values.
func NewArgs(pairs ...any) Args {
	a := Args{values: map[string]Value{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		name, _ := pairs[i].(string)
		a.set(name, pairs[i+1])
	}
	return a
}

func (a *Args) set(name string, v Value) {
	if a.values == nil {
		a.values = map[string]Value{}
	}
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = v
}

// Names returns the argument names in call order.
func (a Args) Names() []string { return append([]string(nil), a.names...) }

// Len returns the number of arguments.
func (a Args) Len() int { return len(a.names) }

// Has reports whether the argument was given.
func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// Get returns the argument value.
func (a Args) Get(name string) (Value, bool) {
	v, ok := a.values[name]
	return v, ok
}

// String returns a string argument, or def when absent.
func (a Args) String(name, def string) (string, error) {
	v, ok := a.values[name]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q: want string, got %T", name, v)
	}
	return s, nil
}

// Int returns an integer argument, or def when absent.
func (a Args) Int(name string, def int) (int, error) {
	v, ok := a.values[name]
	if !ok {
		return def, nil
	}
	switch t := v.(type) {
	case int64:
		return int(t), nil
	case float64:
		if t == math.Trunc(t) && t >= math.MinInt64 && t < math.MaxInt64 {
			return int(t), nil
		}
	}
	return 0, fmt.Errorf("argument %q: want integer, got %v", name, FormatValue(v))
}

// Float returns a numeric argument, or def when absent.
func (a Args) Float(name string, def float64) (float64, error) {
	v, ok := a.values[name]
	if !ok {
		return def, nil
	}
	f, ok := AsFloat(v)
	if !ok {
		return 0, fmt.Errorf("argument %q: want number, got %T", name, v)
	}
	return f, nil
}

// Bool returns a boolean argument, or def when absent. Integers count as
// booleans (0 is false) since directive literals have no true/false.
func (a Args) Bool(name string, def bool) (bool, error) {
	v, ok := a.values[name]
	if !ok {
		return def, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	}
	return false, fmt.Errorf("argument %q: want boolean, got %T", name, v)
}

// Floats returns a list argument of numbers.
func (a Args) Floats(name string) ([]float64, error) {
	v, ok := a.values[name]
	if !ok {
		return nil, fmt.Errorf("argument %q: missing", name)
	}
	l, ok := AsList(v)
	if !ok {
		return nil, fmt.Errorf("argument %q: want list, got %T", name, v)
	}
	out := make([]float64, len(l))
	for i, e := range l {
		f, ok := AsFloat(e)
		if !ok {
			return nil, fmt.Errorf("argument %q: element %d is %T, want number", name, i, e)
		}
		out[i] = f
	}
	return out, nil
}

// Strings returns a list argument as text, formatting non-string elements.
func (a Args) Strings(name string) ([]string, error) {
	v, ok := a.values[name]
	if !ok {
		return nil, fmt.Errorf("argument %q: missing", name)
	}
	l, ok := AsList(v)
	if !ok {
		return nil, fmt.Errorf("argument %q: want list, got %T", name, v)
	}
	out := make([]string, len(l))
	for i, e := range l {
		out[i] = FormatValue(e)
	}
	return out, nil
}
