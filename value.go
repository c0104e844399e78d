package docweaver

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Value is a context or argument value. It holds one of string, int64,
// float64, bool, []Value or map[string]Value. Directive literals never
// produce maps; they only come from context files.
type Value = any

// Context maps variable names to values. Renders read it and never write it.
type Context map[string]Value

// Lookup returns the value bound to name.
func (c Context) Lookup(name string) (Value, bool) {
	v, ok := c[name]
	return v, ok
}

// Snapshot returns a deep copy of c. Every render entry point works on a
// snapshot so callers may keep mutating their own map.
func (c Context) Snapshot() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v Value) Value {
	switch t := v.(type) {
	case []Value:
		out := make([]Value, len(t))
		for i := range t {
			out[i] = copyValue(t[i])
		}
		return out
	case map[string]Value:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			out[k] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// Normalize converts common Go values (int, uint64, float32, []any,
// map[string]any, map[any]any, time.Time, ...) into the Value forms above.
// Map keys are formatted as text; dates without a clock become
// "2006-01-02", other times RFC 3339.
func Normalize(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string, int64, float64, bool:
		return t, nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint:
		return uintValue(uint64(t))
	case uint64:
		return uintValue(t)
	case time.Time:
		return formatTime(t), nil
	case float32:
		return float64(t), nil
	case []Value:
		out := make([]Value, len(t))
		for i := range t {
			n, err := Normalize(t[i])
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []int:
		out := make([]Value, len(t))
		for i := range t {
			out[i] = int64(t[i])
		}
		return out, nil
	case []float64:
		out := make([]Value, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, nil
	case []string:
		out := make([]Value, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, nil
	case map[string]Value:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			key, err := Normalize(k)
			if err != nil {
				return nil, fmt.Errorf("key %v: %w", k, err)
			}
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("key %v: %w", k, err)
			}
			out[FormatValue(key)] = n
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d overflows int64", u)
	}
	return int64(u), nil
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 && t.Location() == time.UTC {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}

// NewContext normalizes vars into a Context.
func NewContext(vars map[string]any) (Context, error) {
	out := make(Context, len(vars))
	for k, v := range vars {
		n, err := Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

// FormatValue returns the text form of v used for substitution into
// documents. Lists render as `[a, b]`, maps with sorted keys.
func FormatValue(v Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []Value:
		parts := make([]string, len(t))
		for i := range t {
			parts[i] = FormatValue(t[i])
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]Value:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + FormatValue(t[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}

// AsFloat converts a numeric Value.
func AsFloat(v Value) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

// AsList returns v as a list.
func AsList(v Value) ([]Value, bool) {
	l, ok := v.([]Value)
	return l, ok
}
