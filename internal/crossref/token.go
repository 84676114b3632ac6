// Package crossref turns free-text exercise mentions into durable
// links. Detection proposes candidate substrings, the lexicon search
// resolves them to documents, and only spans that survive similarity
// and re-validation checks are rewritten.
package crossref

import (
	"fmt"
	"regexp"
)

// linkPattern matches an inline exercise link. The slug side is
// restricted to the slug alphabet so ordinary markdown links never
// match.
var linkPattern = regexp.MustCompile(`\[([^\[\]]+)\]\(@([a-z0-9-]+)\)`)

// Link is one inline exercise link found in a document's text.
type Link struct {
	Text  string
	Slug  string
	Start int
	End   int
}

// Render produces the inline link form for a mention.
func Render(text, slug string) string {
	return fmt.Sprintf("[%s](@%s)", text, slug)
}

// ParseLinks returns every inline link in the text with byte offsets.
func ParseLinks(text string) []Link {
	matches := linkPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	links := make([]Link, 0, len(matches))
	for _, m := range matches {
		links = append(links, Link{
			Text:  text[m[2]:m[3]],
			Slug:  text[m[4]:m[5]],
			Start: m[0],
			End:   m[1],
		})
	}
	return links
}

// StripLinks replaces every inline link with its display text, yielding
// the prose a reader would see.
func StripLinks(text string) string {
	return linkPattern.ReplaceAllString(text, "$1")
}
