package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/grindlab/exicon/internal/cache"
	"github.com/grindlab/exicon/internal/config"
	"github.com/grindlab/exicon/internal/domain"
	"github.com/grindlab/exicon/internal/store"
)

// ErrNoHits indicates an empty result set for a top-hit lookup. This is
// an expected outcome, not a failure.
var ErrNoHits = errors.New("no search hits")

// Result is one page of ranked documents plus the size of the whole
// filtered set.
type Result struct {
	Results    []domain.Exercise
	TotalCount int
}

// Executor runs compound queries against the Bleve index and falls back
// to a case-insensitive substring scan over the store whenever the index
// path fails. Search stays available, degraded, rather than erroring.
type Executor struct {
	index bleve.Index
	store *store.Store
	cache *cache.Cache[Result]
	cfg   *config.SearchSettings
}

// NewExecutor creates an executor. index may be nil, in which case every
// query takes the fallback path. cache may be nil to disable memoization.
func NewExecutor(index bleve.Index, s *store.Store, c *cache.Cache[Result], cfg *config.SearchSettings) *Executor {
	return &Executor{
		index: index,
		store: s,
		cache: c,
		cfg:   cfg,
	}
}

// Search executes a free-text query with structural filters and
// page-based pagination. An empty free text lists by recency. A
// non-empty free text shorter than the configured minimum returns an
// empty result without error (autocomplete contract).
func (e *Executor) Search(ctx context.Context, freeText string, f Filters, page, pageSize int) (*Result, error) {
	freeText = strings.TrimSpace(freeText)
	if pageSize <= 0 {
		pageSize = e.cfg.MaxResults
	}
	if page < 0 {
		page = 0
	}

	if freeText != "" && len(freeText) < e.cfg.Behavior.MinQueryLength {
		return &Result{}, nil
	}

	key := e.cacheKey(freeText, f, page, pageSize)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			return &cached, nil
		}
	}

	result, err := e.execute(ctx, freeText, f, page, pageSize)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(key, *result, e.cfg.CacheTTL)
	}
	return result, nil
}

// First returns the single top-ranked hit for a free-text query, or
// ErrNoHits when nothing matches. Used by the cross-reference validator;
// bypasses the cache so validation always sees the live index. The
// fuzzy expansion cap bounds the page asked of the index, so a top hit
// dropped by the score threshold or a stale index entry does not hide
// the next ranked candidate.
func (e *Executor) First(ctx context.Context, freeText string, f Filters) (*domain.Exercise, error) {
	result, err := e.execute(ctx, strings.TrimSpace(freeText), f, 0, e.cfg.Fuzzy.MaxExpansions)
	if err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return nil, ErrNoHits
	}
	return &result.Results[0], nil
}

func (e *Executor) execute(ctx context.Context, freeText string, f Filters, page, pageSize int) (*Result, error) {
	compound, err := BuildQuery(freeText, e.cfg)
	if errors.Is(err, ErrNoQuery) {
		// No relevance signal to sort by; list by recency from the store.
		results, total, err := e.store.ListExercises(storeFilter(f), page*pageSize, pageSize)
		if err != nil {
			return nil, fmt.Errorf("listing failed: %w", err)
		}
		return &Result{Results: results, TotalCount: total}, nil
	}
	if err != nil {
		return nil, err
	}

	if e.index != nil {
		result, err := e.searchIndex(ctx, ApplyFilters(compound, f), page, pageSize)
		if err == nil {
			return result, nil
		}
		slog.Warn("Search index failed, degrading to substring scan", "error", err, "query", freeText)
	} else {
		slog.Warn("Search index unavailable, degrading to substring scan", "query", freeText)
	}

	return e.fallbackScan(freeText, f, page, pageSize)
}

// searchIndex is the primary path: ranked Bleve search sorted by score
// with recency and document ID as deterministic tie-breaks.
func (e *Executor) searchIndex(ctx context.Context, q query.Query, page, pageSize int) (*Result, error) {
	if t := e.cfg.Behavior.ScoreThreshold; t > 0 {
		return e.searchIndexThresholded(ctx, q, page, pageSize, t)
	}

	req := bleve.NewSearchRequestOptions(q, pageSize, page*pageSize, false)
	req.SortBy([]string{"-_score", "-" + domain.FieldUpdatedAt, "_id"})

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	dropped := 0
	results := make([]domain.Exercise, 0, len(res.Hits))
	for _, hit := range res.Hits {
		// The store is authoritative; the index only ranks.
		ex, err := e.store.GetExercise(hit.ID)
		if err != nil {
			slog.Warn("Indexed document missing from store", "id", hit.ID, "error", err)
			dropped++
			continue
		}
		results = append(results, *ex)
	}

	return &Result{Results: results, TotalCount: int(res.Total) - dropped}, nil
}

// searchIndexThresholded fetches the full ranked hit list and applies
// the score floor before paging, so TotalCount describes the filtered
// set and stays consistent across pages. Paging inside the index and
// subtracting per-page drops would undercount on some pages and
// overcount on others.
func (e *Executor) searchIndexThresholded(ctx context.Context, q query.Query, page, pageSize int, threshold float64) (*Result, error) {
	probe := bleve.NewSearchRequestOptions(q, 0, 0, false)
	count, err := e.index.SearchInContext(ctx, probe)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	req := bleve.NewSearchRequestOptions(q, int(count.Total), 0, false)
	req.SortBy([]string{"-_score", "-" + domain.FieldUpdatedAt, "_id"})

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	var kept []domain.Exercise
	for _, hit := range res.Hits {
		if hit.Score < threshold {
			continue
		}
		ex, err := e.store.GetExercise(hit.ID)
		if err != nil {
			slog.Warn("Indexed document missing from store", "id", hit.ID, "error", err)
			continue
		}
		kept = append(kept, *ex)
	}

	total := len(kept)
	offset := page * pageSize
	if offset >= total {
		return &Result{TotalCount: total}, nil
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	return &Result{Results: kept[offset:end], TotalCount: total}, nil
}

// fallbackScan is the degraded path: a case-insensitive substring match
// over the primary text fields, sorted by recency. Reduced precision and
// recall, but never an error page.
func (e *Executor) fallbackScan(freeText string, f Filters, page, pageSize int) (*Result, error) {
	needle := strings.ToLower(freeText)

	var matched []domain.Exercise
	err := e.store.ScanExercises(storeFilter(f), func(ex *domain.Exercise) error {
		if fallbackMatches(ex, needle) {
			matched = append(matched, *ex)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fallback scan failed: %w", err)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	offset := page * pageSize
	if offset >= total {
		return &Result{TotalCount: total}, nil
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	return &Result{Results: matched[offset:end], TotalCount: total}, nil
}

func fallbackMatches(ex *domain.Exercise, needle string) bool {
	if strings.Contains(strings.ToLower(ex.Name), needle) {
		return true
	}
	for _, alias := range ex.Aliases {
		if strings.Contains(strings.ToLower(alias), needle) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(ex.Description), needle)
}

func (e *Executor) cacheKey(freeText string, f Filters, page, pageSize int) string {
	tags := make([]string, len(f.Tags))
	for i, tag := range f.Tags {
		tags[i] = strings.ToLower(strings.TrimSpace(tag))
	}
	sort.Strings(tags)
	return fmt.Sprintf("search:%s|%s|%s|%d|%d",
		strings.ToLower(freeText), f.Status, strings.Join(tags, ","), page, pageSize)
}

func storeFilter(f Filters) store.Filter {
	return store.Filter{Status: f.Status, Tags: f.Tags}
}

// InvalidationKeys returns the cache keys that may hold results derived
// from the given document: the detail key and every listing page up to
// maxPages. Callers delete these best-effort on any write; a missed key
// only means a briefly stale entry.
func InvalidationKeys(slug string, maxPages, pageSize int) []string {
	keys := []string{DetailKey(slug)}
	for p := 0; p < maxPages; p++ {
		keys = append(keys, fmt.Sprintf("search:|%s||%d|%d", domain.StatusActive, p, pageSize))
	}
	return keys
}

// DetailKey is the cache key for a detail-by-slug read, held as a
// single-document Result.
func DetailKey(slug string) string {
	return "detail:" + slug
}
