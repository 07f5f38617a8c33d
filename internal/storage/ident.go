package storage

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// filler replaces every character that cannot appear in an identifier.
const filler = '_'

// foldMarks strips combining marks after canonical decomposition so accented
// letters keep their base letter ("Café" -> "Cafe") instead of collapsing to
// the filler.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeIdent maps a raw table or column name to a safe SQL identifier:
// diacritics are folded to their base letters, then every character that is
// not a letter or digit becomes the filler.
//
// SanitizeIdent is deterministic and idempotent: sanitizing an already
// sanitized name is a no-op.
func SanitizeIdent(name string) string {
	folded, _, err := transform.String(foldMarks, name)
	if err != nil {
		// Fold failures (invalid UTF-8 and the like) degrade to plain
		// filler replacement.
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(filler)
		}
	}
	return b.String()
}
