package dispatch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Params are the loosely typed arguments of a tool call, as decoded from JSON.
type Params map[string]any

// present reports whether name was supplied with a non-null value.
func (p Params) present(name string) bool {
	v, ok := p[name]
	return ok && v != nil
}

// RequireString returns the value of a required string parameter.
// An empty string counts as supplied.
func (p Params) RequireString(name string) (string, error) {
	if !p.present(name) {
		return "", fmt.Errorf("missing required parameter: %s", name)
	}
	switch v := p[name].(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64, int, int64, bool:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("parameter %s must be a string", name)
	}
}

// String returns a string parameter, or def when it is absent or empty.
func (p Params) String(name, def string) string {
	if !p.present(name) {
		return def
	}
	s, err := p.RequireString(name)
	if err != nil || s == "" {
		return def
	}
	return s
}

// Bool returns a boolean parameter. Strings such as "true" or "0" are accepted.
func (p Params) Bool(name string, def bool) bool {
	if !p.present(name) {
		return def
	}
	switch v := p[name].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return b
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return def
	}
}

// Float returns a numeric parameter. Numeric strings are accepted.
func (p Params) Float(name string, def float64) float64 {
	if !p.present(name) {
		return def
	}
	switch v := p[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return def
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}

// Seconds reads a duration given in (possibly fractional) seconds.
// Zero, negative and unparsable values yield def.
func (p Params) Seconds(name string, def time.Duration) time.Duration {
	secs := p.Float(name, 0)
	if secs <= 0 {
		return def
	}
	return time.Duration(secs * float64(time.Second))
}
