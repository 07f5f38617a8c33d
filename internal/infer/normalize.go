package infer

import (
	"strings"
	"time"
)

// Canonical output forms for temporal values. The timestamp form matches
// what the destination databases accept for both TIMESTAMP and DATETIME2
// columns.
const (
	canonicalDate      = "2006-01-02"
	canonicalTimestamp = "2006-01-02T15:04:05"
)

// Normalize rewrites a raw value into the literal to persist for its
// column's resolved level.
//
// Behavior:
//   - Blank (empty or all-space) input is NULL for every level.
//   - LevelDate values are re-emitted as YYYY-MM-DD.
//   - LevelTimestamp values are re-emitted as YYYY-MM-DDTHH:MM:SS.
//   - Everything else passes through verbatim; numeric literals are already
//     valid for their destination column and text is stored as-is.
//
// If a date/timestamp value unexpectedly fails to parse (the column was
// resolved from other rows), the raw value passes through rather than
// failing the row; the load either stores it or fails that table alone.
func Normalize(raw string, level Level) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	switch level {
	case LevelDate:
		if t, ok := parseAny(s, DateLayouts); ok {
			return t.Format(canonicalDate)
		}
	case LevelTimestamp:
		if t, ok := parseAny(s, TimestampLayouts); ok {
			return t.Format(canonicalTimestamp)
		}
		// A column promoted from mixed date and timestamp values still holds
		// date-only literals; they land at midnight.
		if t, ok := parseAny(s, DateLayouts); ok {
			return t.Format(canonicalTimestamp)
		}
	}
	return raw
}

// ParseCanonicalTimestamp parses a value previously produced by Normalize
// for a timestamp column. Mostly useful in tests and debugging tools.
func ParseCanonicalTimestamp(s string) (time.Time, error) {
	return time.Parse(canonicalTimestamp, s)
}
