// Package lexicon wires the document store, search index, cache, and
// executor into one service and exposes the lexicon over MCP tools.
package lexicon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/grindlab/exicon/internal/cache"
	"github.com/grindlab/exicon/internal/config"
	"github.com/grindlab/exicon/internal/domain"
	"github.com/grindlab/exicon/internal/search"
	"github.com/grindlab/exicon/internal/store"
)

// Service coordinates the store, search index, and result cache.
type Service struct {
	settings *config.Settings
	store    *store.Store
	indexer  *search.Indexer
	cache    *cache.Cache[search.Result]

	mu       sync.RWMutex
	index    bleve.Index
	executor *search.Executor
	ready    bool
}

// NewService opens the store and prepares the cache. The search index
// is handled later by Initialize so a missing index never blocks
// startup.
func NewService(settings *config.Settings) (*Service, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	if err := os.MkdirAll(settings.Store.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s, err := store.Open(settings.Store.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	c := cache.New[search.Result](settings.Search.CacheTTL)
	c.Start()

	return &Service{
		settings: settings,
		store:    s,
		indexer:  search.NewIndexer(settings.Store.DataDir),
		cache:    c,
	}, nil
}

// Initialize builds the search index from the store when absent and
// opens it for reading. An unopenable index is degraded service, not a
// startup failure; the executor falls back to a substring scan.
func (s *Service) Initialize(ctx context.Context) error {
	if !s.indexer.Exists() {
		slog.Info("Search index missing, building from store")
		count, err := s.indexer.Rebuild(s.store)
		if err != nil {
			slog.Warn("Index build failed, search will degrade to substring scan", "error", err)
		} else {
			slog.Info("Search index built", "documents", count)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.indexer.OpenForRead()
	if err != nil {
		slog.Warn("Failed to open search index, search will degrade to substring scan", "error", err)
		index = nil
	}

	s.index = index
	s.executor = search.NewExecutor(index, s.store, s.cache, &s.settings.Search)
	s.ready = true
	return nil
}

// IsReady reports whether Initialize has completed.
func (s *Service) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Executor returns the search executor, or nil before Initialize.
func (s *Service) Executor() *search.Executor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.executor
}

// Store returns the underlying document store.
func (s *Service) Store() *store.Store {
	return s.store
}

// Settings returns the service settings.
func (s *Service) Settings() *config.Settings {
	return s.settings
}

// GetBySlug resolves a slug to its document, memoized under the detail
// key so repeated tool reads skip the store until the next write
// invalidates it. Misses (including ErrNotFound) are not cached.
func (s *Service) GetBySlug(slug string) (*domain.Exercise, error) {
	key := search.DetailKey(slug)
	if cached, ok := s.cache.Get(key); ok && len(cached.Results) == 1 {
		ex := cached.Results[0]
		return &ex, nil
	}

	ex, err := s.store.GetExerciseBySlug(slug)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, search.Result{Results: []domain.Exercise{*ex}, TotalCount: 1}, s.settings.Search.CacheTTL)
	return ex, nil
}

// UpsertExercise writes a document through to the store, refreshes the
// index when one is open, and invalidates derived cache entries.
func (s *Service) UpsertExercise(ex *domain.Exercise) error {
	if err := s.store.PutExercise(ex); err != nil {
		return err
	}

	s.mu.RLock()
	index := s.index
	s.mu.RUnlock()

	if index != nil {
		if err := search.IndexExercise(index, ex); err != nil {
			slog.Warn("Failed to index document", "slug", ex.Slug, "error", err)
		}
	}

	s.invalidate(ex.Slug)
	return nil
}

// DeleteExercise removes a document from the store and index.
func (s *Service) DeleteExercise(id string) error {
	ex, err := s.store.GetExercise(id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExercise(id); err != nil {
		return err
	}

	s.mu.RLock()
	index := s.index
	s.mu.RUnlock()

	if index != nil {
		if err := search.RemoveExercise(index, id); err != nil {
			slog.Warn("Failed to remove document from index", "slug", ex.Slug, "error", err)
		}
	}

	s.invalidate(ex.Slug)
	return nil
}

// invalidate drops cache entries derived from the document. Best
// effort; stale entries expire on their own.
func (s *Service) invalidate(slug string) {
	maxPages := 50
	if count, err := s.store.CountExercises(); err == nil {
		pageSize := s.settings.Search.MaxResults
		maxPages = (count + pageSize - 1) / pageSize
	} else {
		slog.Warn("Failed to count documents for cache invalidation", "error", err)
	}

	s.cache.DeleteAll(search.InvalidationKeys(slug, maxPages, s.settings.Search.MaxResults)...)
}

// Close releases the index, cache, and store.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ready = false
	s.cache.Close()

	var firstErr error
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close index: %w", err)
		}
		s.index = nil
	}
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close store: %w", err)
	}
	return firstErr
}
