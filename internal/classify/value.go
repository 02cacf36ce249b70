package classify

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseAmount converts an arbitrary numeric-like value into a finite float.
// Numbers pass through only when finite; strings are trimmed, stripped of
// currency symbols and grouping separators, then parsed. Everything else,
// including empty and non-numeric strings, reports absent. The boolean is
// the only error channel.
func ParseAmount(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case float32:
		return ParseAmount(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		return parseAmountString(x)
	default:
		return 0, false
	}
}

func parseAmountString(s string) (float64, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', '_', ' ':
			return -1
		}
		return r
	}, cleaned)
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseDate parses a date from the loosely formatted strings the upstream
// sources emit: bare dates, RFC 3339 datetimes, and datetimes with a bare
// "Z" suffix. Falls back to the first ten characters as a last resort.
func ParseDate(s string) (time.Time, bool) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.UTC(), true
		}
	}

	if len(cleaned) > 10 {
		if t, err := time.Parse("2006-01-02", cleaned[:10]); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
