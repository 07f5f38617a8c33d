package infer

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   string
		level Level
		want  any
	}{
		{"blank is null for text", "", LevelText, nil},
		{"blank is null for integer", "   ", LevelInteger, nil},
		{"blank is null for date", "", LevelDate, nil},

		{"day-first date canonicalized", "31/01/2024", LevelDate, "2024-01-31"},
		{"month-first date canonicalized", "12/31/2024", LevelDate, "2024-12-31"},
		{"iso date unchanged shape", "2024-01-31", LevelDate, "2024-01-31"},

		{"iso timestamp canonicalized", "2024-02-02 10:00:00", LevelTimestamp, "2024-02-02T10:00:00"},
		{"day-first timestamp canonicalized", "31/01/2024 09:30", LevelTimestamp, "2024-01-31T09:30:00"},
		{"t-separated timestamp stable", "2024-02-02T10:00:00", LevelTimestamp, "2024-02-02T10:00:00"},
		{"date in promoted timestamp column lands at midnight", "31/01/2024", LevelTimestamp, "2024-01-31T00:00:00"},

		{"same raw date typed text passes through", "31/01/2024", LevelText, "31/01/2024"},
		{"integer passes through", "10", LevelInteger, "10"},
		{"real passes through", "7.5", LevelReal, "7.5"},

		// Should not occur after resolution, but the row must survive.
		{"unparseable date falls back to raw", "not-a-date", LevelDate, "not-a-date"},
		{"unparseable timestamp falls back to raw", "n/a", LevelTimestamp, "n/a"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.raw, tt.level); got != tt.want {
				t.Fatalf("Normalize(%q, %v) = %#v, want %#v", tt.raw, tt.level, got, tt.want)
			}
		})
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	t.Parallel()

	out := Normalize("01/02/2024 10:00", LevelTimestamp)
	s, ok := out.(string)
	if !ok {
		t.Fatalf("Normalize returned %T, want string", out)
	}
	if _, err := ParseCanonicalTimestamp(s); err != nil {
		t.Fatalf("canonical timestamp %q does not round-trip: %v", s, err)
	}
}
