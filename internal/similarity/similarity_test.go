package similarity

import "testing"

func TestScore_Identity(t *testing.T) {
	for _, s := range []string{"burpee", "Bear Crawl", "a", "merkin"} {
		if got := Score(s, s); got != 1.0 {
			t.Errorf("Score(%q, %q) = %v, want 1.0", s, s, got)
		}
	}
}

func TestScore_EmptyVsEmpty(t *testing.T) {
	if got := Score("", ""); got != 1.0 {
		t.Errorf("Score(\"\", \"\") = %v, want 1.0", got)
	}
	if got := Score("   ", ""); got != 1.0 {
		t.Errorf("Score with whitespace-only input = %v, want 1.0", got)
	}
}

func TestScore_CaseAndWhitespaceInsensitive(t *testing.T) {
	if got := Score("  Burpee ", "burpee"); got != 1.0 {
		t.Errorf("Score = %v, want 1.0", got)
	}
}

func TestScore_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"burpee", "burpees"},
		{"merkin", "merkins"},
		{"burpee", "music"},
		{"", "abc"},
	}
	for _, p := range pairs {
		if Score(p[0], p[1]) != Score(p[1], p[0]) {
			t.Errorf("Score(%q, %q) != Score(%q, %q)", p[0], p[1], p[1], p[0])
		}
	}
}

func TestScore_AcceptanceThresholdCases(t *testing.T) {
	// One trailing character on a 7-char word stays above the 0.8 gate.
	if got := Score("burpee", "burpees"); got < 0.8 {
		t.Errorf("Score(burpee, burpees) = %v, want >= 0.8", got)
	}
	// Unrelated words fall well below it.
	if got := Score("burpee", "music"); got >= 0.8 {
		t.Errorf("Score(burpee, music) = %v, want < 0.8", got)
	}
}

func TestScore_RangeBounds(t *testing.T) {
	if got := Score("", "abcdef"); got != 0.0 {
		t.Errorf("Score(\"\", \"abcdef\") = %v, want 0.0", got)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"burpee", "burpees", 1},
		{"merkin", "merkins", 1},
		{"flutter kick", "flutter kicks", 1},
	}

	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
