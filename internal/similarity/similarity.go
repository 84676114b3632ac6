// Package similarity computes normalized edit-distance similarity between
// short strings. It is the acceptance gate for cross-reference candidates.
package similarity

import "strings"

// Score returns a similarity score in [0,1] for two strings.
// Comparison is case-insensitive and whitespace-trimmed. Identical strings
// score exactly 1.0; otherwise the score is
// (maxLen - levenshtein(a, b)) / maxLen.
//
// The function is pure and symmetric. Inputs are expected to be short
// exercise names, so the O(n*m) distance is fine.
func Score(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		// Covers empty-vs-empty as well, avoiding a zero division.
		return 1.0
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	return float64(maxLen-Levenshtein(a, b)) / float64(maxLen)
}

// Levenshtein returns the classic unit-cost edit distance between a and b:
// the minimum number of single-character insertions, deletions, and
// substitutions needed to turn one into the other.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Two-row dynamic programming over bytes. Names in the lexicon are
	// ASCII in practice; multi-byte runes still produce a usable bound.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
