// Package values converts loosely typed configuration values.
// TOML decodes integers as int64 and arrays as []any, environment
// overrides arrive as strings, and tests set native Go values; every
// ConfigStore implementation funnels lookups through these helpers.
package values

import (
	"strconv"
	"strings"
	"time"
)

// String returns v as a string, or "" for non-strings.
func String(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Int returns v as an int. Numeric strings are parsed.
func Int(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Float returns v as a float64. Numeric strings are parsed.
func Float(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Bool returns v as a bool. "true", "1", "yes" and "on" count as true.
func Bool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "on":
			return true
		}
		return false
	default:
		return false
	}
}

// Duration returns v as a duration. Strings use time.ParseDuration
// ("30s", "2m"); bare numbers are seconds.
func Duration(v any) time.Duration {
	switch t := v.(type) {
	case time.Duration:
		return t
	case string:
		s := strings.TrimSpace(t)
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(n * float64(time.Second))
		}
		return 0
	case int, int64, float64:
		return time.Duration(Float(t) * float64(time.Second))
	default:
		return 0
	}
}

// StringSlice returns v as a string slice. A string is split on commas.
func StringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		result := make([]string, 0, len(t))
		for _, item := range t {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	case string:
		var result []string
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				result = append(result, p)
			}
		}
		return result
	default:
		return nil
	}
}
