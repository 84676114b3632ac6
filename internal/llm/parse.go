package llm

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/kaptinlin/jsonrepair"
)

// ParseJSON attempts to parse a potentially malformed JSON string.
// Model responses arrive wrapped in markdown fences, truncated, or with
// trailing commas often enough that strict parsing alone is not viable.
func ParseJSON(jsonStr string, v interface{}) error {
	jsonStr = stripFences(jsonStr)

	// Try parsing as-is first
	err := jsoniter.UnmarshalFromString(jsonStr, v)
	if err == nil {
		return nil
	}
	originalErr := err

	// Try repairing the JSON
	repaired, err := jsonrepair.JSONRepair(jsonStr)
	if err != nil {
		return originalErr
	}

	if err := jsoniter.UnmarshalFromString(repaired, v); err == nil {
		return nil
	}

	return originalErr
}

// stripFences removes a surrounding markdown code fence, with or
// without a language tag, leaving other content untouched.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 8 && !strings.ContainsAny(first, "{}[]") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
