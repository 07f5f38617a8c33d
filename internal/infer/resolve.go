package infer

// ResolveColumns scans every row of one table and reduces per-column
// observations into a single resolved level per column.
//
// Every column key appearing in any row gets exactly one entry. A column
// whose values are all blank resolves to LevelText.
//
// The reduction is associative and commutative (see Promote), so the result
// does not depend on row order.
func ResolveColumns(rows []map[string]string) map[string]Level {
	levels := map[string]Level{}

	for _, row := range rows {
		for col, raw := range row {
			cur, seen := levels[col]
			if !seen {
				cur = LevelUnknown
			}
			levels[col] = Promote(cur, Classify(raw))
		}
	}

	// Columns that never produced a signal still need a destination type.
	for col, l := range levels {
		if l == LevelUnknown {
			levels[col] = LevelText
		}
	}
	return levels
}

// Promote combines two observed levels into the least-lossy common level.
//
// Rules:
//   - LevelUnknown contributes nothing.
//   - LevelText absorbs everything; once text, always text.
//   - A numeric level meeting a temporal level is irreconcilable: such a
//     column is forced to text rather than silently merged into either kind.
//   - Otherwise the higher level wins (integer+real -> real,
//     date+timestamp -> timestamp).
func Promote(a, b Level) Level {
	switch {
	case b == LevelUnknown:
		return a
	case a == LevelUnknown:
		return b
	case a == LevelText || b == LevelText:
		return LevelText
	case a.isNumeric() && b.isTemporal(), a.isTemporal() && b.isNumeric():
		return LevelText
	case b > a:
		return b
	default:
		return a
	}
}
