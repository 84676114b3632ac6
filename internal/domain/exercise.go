package domain

import (
	"regexp"
	"strings"
	"time"
)

// Status is the lifecycle state of a lexicon document.
// Only active documents are eligible for public search and as
// cross-reference targets.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusActive    Status = "active"
	StatusArchived  Status = "archived"
)

// Exercise represents a lexicon record for a single exercise.
// It is the primary data structure stored in the document store and
// in the Bleve search index.
type Exercise struct {
	// ID is an opaque unique identifier.
	ID string `json:"id"`

	// Slug is the unique, URL-safe identifier derived from Name.
	// Format: "bear-crawl"
	Slug string `json:"slug"`

	// Name is the canonical display name. Highest search weight.
	Name string `json:"name"`

	// Aliases are alternate names, weighted the same as Name.
	Aliases []string `json:"aliases,omitempty"`

	// Description is a short summary. Medium search weight.
	Description string `json:"description,omitempty"`

	// Text is the full body. Lowest search weight, highest
	// false-positive risk.
	Text string `json:"text,omitempty"`

	// Tags is a set of controlled vocabulary strings.
	Tags []string `json:"tags,omitempty"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bleve field name constants for consistent field references in queries
// and mappings.
const (
	FieldID          = "id"
	FieldSlug        = "slug"
	FieldName        = "name"
	FieldAliases     = "aliases"
	FieldDescription = "description"
	FieldText        = "text"
	FieldTags        = "tags"
	FieldStatus      = "status"
	FieldUpdatedAt   = "updated_at"
)

// SourceText returns the text the cross-reference pipeline should operate
// on: the short description when present, otherwise the full body.
func (e *Exercise) SourceText() string {
	if strings.TrimSpace(e.Description) != "" {
		return e.Description
	}
	return e.Text
}

// IsActive reports whether the exercise is publicly searchable and a
// valid cross-reference target.
func (e *Exercise) IsActive() bool {
	return e.Status == StatusActive
}

// NormalizeTags folds tags to their canonical stored form: trimmed,
// lowercased, empties dropped, duplicates removed, order preserved.
// The keyword-analyzed tags field indexes stored values verbatim, so
// every tag must enter the store in the form filters query it by.
func NormalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

var (
	slugInvalid  = regexp.MustCompile(`[^a-z0-9]+`)
	slugSqueezed = regexp.MustCompile(`-{2,}`)
)

// Slugify derives a URL-safe slug from a display name.
// Uniqueness is the store's responsibility; callers must probe for
// collisions before committing a new or changed slug.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugSqueezed.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
