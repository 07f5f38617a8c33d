// Package infer implements the type-inference core of the sync pipeline:
// classifying raw feed values, resolving one SQL type per column across all
// rows of a table, and normalizing values into the canonical literal form
// for their resolved type.
//
// Design constraints:
//   - Classification is a pure function of one value; no side effects.
//   - Column resolution must be order-independent: any permutation of the
//     rows yields the same resolved type per column.
//   - Inference is best-effort and must never fail a sync run.
package infer

import (
	"regexp"
	"strings"
	"time"
)

// Level is a column type on the promotion ladder.
//
// The ladder is a total order; a higher level subsumes a lower one when both
// are of the same kind (numeric or temporal). LevelUnknown carries no signal
// and never participates in promotion.
type Level int

const (
	LevelUnknown   Level = -1
	LevelInteger   Level = 0
	LevelReal      Level = 1
	LevelDate      Level = 2
	LevelTimestamp Level = 3
	LevelText      Level = 4
)

// String returns the canonical name of the level, matching the generic SQL
// type names used by the postgres backends. Backends with different type
// systems map Level themselves rather than parsing this string.
func (l Level) String() string {
	switch l {
	case LevelUnknown:
		return "unknown"
	case LevelInteger:
		return "bigint"
	case LevelReal:
		return "float8"
	case LevelDate:
		return "date"
	case LevelTimestamp:
		return "timestamp"
	default:
		return "text"
	}
}

func (l Level) isNumeric() bool  { return l == LevelInteger || l == LevelReal }
func (l Level) isTemporal() bool { return l == LevelDate || l == LevelTimestamp }

// Exact-match numeric patterns. strconv.ParseInt/ParseFloat are deliberately
// not used here: ParseFloat accepts exponents, "Inf" and "NaN", all of which
// must classify as text so they never reach a numeric destination column.
var (
	integerPattern = regexp.MustCompile(`^[-+]?[0-9]+$`)
	realPattern    = regexp.MustCompile(`^[-+]?([0-9]+\.[0-9]*|[0-9]*\.[0-9]+)$`)
)

// TimestampLayouts are tried, in order, before DateLayouts: a timestamp
// string would otherwise satisfy a laxer date-only layout and lose its
// time-of-day. The ordering of both lists is a load-bearing contract shared
// by Classify and Normalize.
var TimestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"01/02/2006 15:04:05",
	"02/01/2006 15:04",
	"01/02/2006 15:04",
	"2006-01-02 15:04",
}

// DateLayouts cover day-first, month-first and ISO date-only forms.
var DateLayouts = []string{
	"02/01/2006",
	"01/02/2006",
	"2006-01-02",
}

// Classify decides the most specific plausible level for one raw value.
//
// Rules are evaluated in a fixed priority order, first match wins:
//  1. blank (empty or all-space) -> LevelUnknown
//  2. optional sign + digits -> LevelInteger
//  3. decimal number -> LevelReal
//  4. any timestamp layout -> LevelTimestamp
//  5. any date-only layout -> LevelDate
//  6. anything else -> LevelText
func Classify(raw string) Level {
	s := strings.TrimSpace(raw)
	if s == "" {
		return LevelUnknown
	}
	if integerPattern.MatchString(s) {
		return LevelInteger
	}
	if realPattern.MatchString(s) {
		return LevelReal
	}
	if _, ok := parseAny(s, TimestampLayouts); ok {
		return LevelTimestamp
	}
	if _, ok := parseAny(s, DateLayouts); ok {
		return LevelDate
	}
	return LevelText
}

// parseAny attempts each layout in order and returns the first parse that
// succeeds.
func parseAny(s string, layouts []string) (time.Time, bool) {
	for _, lay := range layouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
