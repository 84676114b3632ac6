// Package store persists lexicon documents and cleanup proposals in a
// local bbolt database. It is the single source of truth; the search
// index is derived from it and can always be rebuilt.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/grindlab/exicon/internal/domain"
)

const (
	// DBFilename is the bolt database file name under the data dir.
	DBFilename = "exicon.db"

	openTimeout = 5 * time.Second
)

var (
	bucketExercises = []byte("exercises")
	bucketSlugs     = []byte("slugs")
	bucketProposals = []byte("proposals")

	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrSlugTaken indicates a slug collision on create or re-slug.
	ErrSlugTaken = errors.New("slug already in use")
)

// Store wraps a bbolt database holding exercises and proposals.
// All updates are per-document atomic; no multi-document transactions
// are offered because none are needed.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the store under the given data directory.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dataDir, DBFilename), 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketExercises, bucketSlugs, bucketProposals} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutExercise inserts or replaces an exercise. Slug uniqueness is
// enforced inside the same transaction: a slug owned by a different
// document fails with ErrSlugTaken before anything is written.
func (s *Store) PutExercise(ex *domain.Exercise) error {
	if ex.ID == "" {
		return errors.New("exercise id cannot be empty")
	}
	if ex.Slug == "" {
		return errors.New("exercise slug cannot be empty")
	}

	now := time.Now().UTC()
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = now
	}
	ex.UpdatedAt = now

	// Tags feed a keyword-analyzed index field and exact term filters;
	// the canonical lowercase form is fixed here so the index, the term
	// queries, and the fallback scan all agree.
	ex.Tags = domain.NormalizeTags(ex.Tags)

	return s.db.Update(func(tx *bolt.Tx) error {
		exercises := tx.Bucket(bucketExercises)
		slugs := tx.Bucket(bucketSlugs)

		if owner := slugs.Get([]byte(ex.Slug)); owner != nil && string(owner) != ex.ID {
			return fmt.Errorf("%w: %s", ErrSlugTaken, ex.Slug)
		}

		// Release the previous slug if this document was re-slugged.
		if prev := exercises.Get([]byte(ex.ID)); prev != nil {
			var old domain.Exercise
			if err := json.Unmarshal(prev, &old); err == nil && old.Slug != ex.Slug {
				if err := slugs.Delete([]byte(old.Slug)); err != nil {
					return err
				}
			}
		}

		data, err := json.Marshal(ex)
		if err != nil {
			return fmt.Errorf("failed to marshal exercise: %w", err)
		}
		if err := exercises.Put([]byte(ex.ID), data); err != nil {
			return err
		}
		return slugs.Put([]byte(ex.Slug), []byte(ex.ID))
	})
}

// GetExercise returns the exercise with the given id, or ErrNotFound.
func (s *Store) GetExercise(id string) (*domain.Exercise, error) {
	var ex *domain.Exercise
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketExercises).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		ex = &domain.Exercise{}
		return json.Unmarshal(data, ex)
	})
	if err != nil {
		return nil, err
	}
	return ex, nil
}

// GetExerciseBySlug resolves a slug to its exercise, or ErrNotFound.
func (s *Store) GetExerciseBySlug(slug string) (*domain.Exercise, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		owner := tx.Bucket(bucketSlugs).Get([]byte(slug))
		if owner == nil {
			return fmt.Errorf("%w: slug %s", ErrNotFound, slug)
		}
		id = string(owner)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetExercise(id)
}

// DeleteExercise removes an exercise and its slug mapping.
func (s *Store) DeleteExercise(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		exercises := tx.Bucket(bucketExercises)
		data := exercises.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		var ex domain.Exercise
		if err := json.Unmarshal(data, &ex); err == nil {
			if err := tx.Bucket(bucketSlugs).Delete([]byte(ex.Slug)); err != nil {
				return err
			}
		}
		return exercises.Delete([]byte(id))
	})
}

// UpdateExerciseField atomically rewrites one text field of a document.
// Used by the batch pipelines to apply proposals and reference rewrites.
func (s *Store) UpdateExerciseField(id, field, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		exercises := tx.Bucket(bucketExercises)
		data := exercises.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		var ex domain.Exercise
		if err := json.Unmarshal(data, &ex); err != nil {
			return fmt.Errorf("failed to unmarshal exercise: %w", err)
		}

		switch field {
		case domain.FieldName:
			ex.Name = value
		case domain.FieldDescription:
			ex.Description = value
		case domain.FieldText:
			ex.Text = value
		default:
			return fmt.Errorf("field %q is not updatable", field)
		}
		ex.UpdatedAt = time.Now().UTC()

		updated, err := json.Marshal(&ex)
		if err != nil {
			return fmt.Errorf("failed to marshal exercise: %w", err)
		}
		return exercises.Put([]byte(id), updated)
	})
}

// Filter narrows listings to a lifecycle status and/or required tags.
type Filter struct {
	Status domain.Status
	Tags   []string
}

func (f Filter) matches(ex *domain.Exercise) bool {
	if f.Status != "" && ex.Status != f.Status {
		return false
	}
	for _, want := range f.Tags {
		found := false
		for _, tag := range ex.Tags {
			if strings.EqualFold(tag, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ListExercises returns one page of matching documents plus the total
// count of the filtered set. Ordering is UpdatedAt descending with ID
// ascending as the deterministic tie-break, so pagination is stable.
func (s *Store) ListExercises(f Filter, offset, limit int) ([]domain.Exercise, int, error) {
	matched, err := s.collect(f)
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	return page(matched, offset, limit), len(matched), nil
}

// ExercisePage returns one page of all documents in stable ID order.
// Used by the batch orchestrator as a resumable walk cursor.
func (s *Store) ExercisePage(offset, limit int) ([]domain.Exercise, error) {
	all, err := s.collect(Filter{})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, offset, limit), nil
}

// ScanExercises invokes fn for every matching document. Used by the
// search fallback path and the index rebuild.
func (s *Store) ScanExercises(f Filter, fn func(ex *domain.Exercise) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketExercises).ForEach(func(_, data []byte) error {
			var ex domain.Exercise
			if err := json.Unmarshal(data, &ex); err != nil {
				// A corrupt record should not take the whole scan down.
				return nil
			}
			if !f.matches(&ex) {
				return nil
			}
			return fn(&ex)
		})
	})
}

// CountExercises returns the number of stored documents.
func (s *Store) CountExercises() (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketExercises).Stats().KeyN
		return nil
	})
	return count, err
}

// Tags returns the distinct tags across active documents with usage
// counts.
func (s *Store) Tags() (map[string]int, error) {
	tags := make(map[string]int)
	err := s.ScanExercises(Filter{Status: domain.StatusActive}, func(ex *domain.Exercise) error {
		for _, tag := range ex.Tags {
			tags[strings.ToLower(tag)]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *Store) collect(f Filter) ([]domain.Exercise, error) {
	var matched []domain.Exercise
	err := s.ScanExercises(f, func(ex *domain.Exercise) error {
		matched = append(matched, *ex)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

func page(items []domain.Exercise, offset, limit int) []domain.Exercise {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
