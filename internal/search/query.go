package search

import (
	"errors"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/grindlab/exicon/internal/config"
	"github.com/grindlab/exicon/internal/domain"
)

// ErrNoQuery signals that the free text was empty after trimming, so
// callers should skip search entirely instead of fuzzy-matching on an
// empty string.
var ErrNoQuery = errors.New("no search query")

// Filters are the structural constraints applied alongside the free-text
// query.
type Filters struct {
	Status domain.Status
	Tags   []string
}

// BuildQuery constructs the ranked compound query for a free-text search.
// One clause per weighted field, each independently fuzzy, combined as a
// disjunction that must satisfy the configured minimum number of clauses.
func BuildQuery(freeText string, cfg *config.SearchSettings) (query.Query, error) {
	freeText = strings.TrimSpace(freeText)
	if freeText == "" {
		return nil, ErrNoQuery
	}

	maxEdits := cfg.Fuzzy.MaxEditsLong
	if len(freeText) <= cfg.Fuzzy.ShortQueryLen {
		maxEdits = cfg.Fuzzy.MaxEditsShort
	}

	fuzzyClause := func(field string, boost float64) *query.MatchQuery {
		q := bleve.NewMatchQuery(freeText)
		q.SetField(field)
		q.SetBoost(boost)
		if cfg.Fuzzy.Enabled {
			q.SetFuzziness(maxEdits)
			q.SetPrefix(cfg.Fuzzy.PrefixLength)
		}
		return q
	}

	nameQuery := fuzzyClause(domain.FieldName, cfg.Weights.Name)
	aliasesQuery := fuzzyClause(domain.FieldAliases, cfg.Weights.Aliases)
	descriptionQuery := fuzzyClause(domain.FieldDescription, cfg.Weights.Description)
	textQuery := fuzzyClause(domain.FieldText, cfg.Weights.Text)

	// Tags are a controlled vocabulary on a keyword field; fuzzy
	// expansion there only manufactures false positives.
	tagsQuery := bleve.NewMatchQuery(strings.ToLower(freeText))
	tagsQuery.SetField(domain.FieldTags)
	tagsQuery.SetBoost(cfg.Weights.Tags)

	compound := bleve.NewDisjunctionQuery(nameQuery, aliasesQuery, tagsQuery, descriptionQuery, textQuery)
	if cfg.Behavior.MinShouldMatch > 0 {
		compound.SetMin(cfg.Behavior.MinShouldMatch)
	}

	return compound, nil
}

// ApplyFilters conjoins structural filters with the search query.
// A nil base returns the filters alone (pure structural lookup).
func ApplyFilters(base query.Query, f Filters) query.Query {
	must := []query.Query{}
	if base != nil {
		must = append(must, base)
	}

	if f.Status != "" {
		statusQuery := bleve.NewTermQuery(string(f.Status))
		statusQuery.SetField(domain.FieldStatus)
		must = append(must, statusQuery)
	}

	for _, tag := range f.Tags {
		tagQuery := bleve.NewTermQuery(strings.ToLower(strings.TrimSpace(tag)))
		tagQuery.SetField(domain.FieldTags)
		must = append(must, tagQuery)
	}

	if len(must) == 1 {
		return must[0]
	}
	return bleve.NewConjunctionQuery(must...)
}
