// Package search provides the fuzzy, field-weighted lexicon search:
// a Bleve index derived from the document store, a tunable compound
// query builder, and an executor that degrades to a plain substring
// scan when the index is unavailable.
package search

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/grindlab/exicon/internal/domain"
	"github.com/grindlab/exicon/internal/store"
)

const (
	// IndexDirname is the index directory under the data dir.
	IndexDirname = "exercises.bleve"

	// MaxBatchSize is the maximum number of documents per rebuild batch
	MaxBatchSize = 100
)

// Indexer manages the Bleve index for lexicon documents.
type Indexer struct {
	baseDir string
}

// NewIndexer creates a new indexer rooted at the given data directory.
func NewIndexer(baseDir string) *Indexer {
	return &Indexer{baseDir: baseDir}
}

// IndexPath returns the on-disk location of the index.
func (i *Indexer) IndexPath() string {
	return filepath.Join(i.baseDir, IndexDirname)
}

// CreateIndexMapping creates the Bleve index mapping for exercises.
// Text fields are analyzed for full-text search; slug, status, and tags
// are keyword fields so they can serve as exact filters.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name
	nameField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldName, nameField)

	aliasesField := bleve.NewTextFieldMapping()
	aliasesField.Analyzer = standard.Name
	aliasesField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldAliases, aliasesField)

	descriptionField := bleve.NewTextFieldMapping()
	descriptionField.Analyzer = standard.Name
	descriptionField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldDescription, descriptionField)

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = false
	docMapping.AddFieldMappingsAt(domain.FieldText, textField)

	tagsField := bleve.NewTextFieldMapping()
	tagsField.Analyzer = keyword.Name
	tagsField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldTags, tagsField)

	slugField := bleve.NewTextFieldMapping()
	slugField.Analyzer = keyword.Name
	slugField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldSlug, slugField)

	statusField := bleve.NewTextFieldMapping()
	statusField.Analyzer = keyword.Name
	statusField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldStatus, statusField)

	updatedField := bleve.NewDateTimeFieldMapping()
	updatedField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldUpdatedAt, updatedField)

	// ID - stored but not indexed (we use the document ID)
	idField := bleve.NewTextFieldMapping()
	idField.Index = false
	idField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldID, idField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// OpenForWrite opens or creates the index for writing.
func (i *Indexer) OpenForWrite() (bleve.Index, error) {
	index, err := bleve.Open(i.IndexPath())
	if err == nil {
		return index, nil
	}

	index, err = bleve.New(i.IndexPath(), CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return index, nil
}

// OpenForRead opens the existing index for reading.
func (i *Indexer) OpenForRead() (bleve.Index, error) {
	index, err := bleve.Open(i.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return index, nil
}

// Exists checks whether an index has been built.
func (i *Indexer) Exists() bool {
	_, err := os.Stat(i.IndexPath())
	return err == nil
}

// Delete removes the index from disk.
func (i *Indexer) Delete() error {
	return os.RemoveAll(i.IndexPath())
}

// IndexExercise adds or updates a single document in the open index.
func IndexExercise(index bleve.Index, ex *domain.Exercise) error {
	return index.Index(ex.ID, ex)
}

// RemoveExercise deletes a single document from the open index.
func RemoveExercise(index bleve.Index, id string) error {
	return index.Delete(id)
}

// Rebuild drops the index and re-derives it from the store in batches.
// Returns the number of documents indexed.
func (i *Indexer) Rebuild(s *store.Store) (count int, err error) {
	if err := i.Delete(); err != nil {
		return 0, fmt.Errorf("failed to remove stale index: %w", err)
	}

	index, err := i.OpenForWrite()
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := index.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	batch := index.NewBatch()
	batchSize := 0

	err = s.ScanExercises(store.Filter{}, func(ex *domain.Exercise) error {
		if err := batch.Index(ex.ID, ex); err != nil {
			return fmt.Errorf("failed to index %s: %w", ex.ID, err)
		}
		batchSize++
		count++

		if batchSize >= MaxBatchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("batch index failed: %w", err)
			}
			batch = index.NewBatch()
			batchSize = 0
		}
		return nil
	})
	if err != nil {
		return count, err
	}

	if batchSize > 0 {
		if err := index.Batch(batch); err != nil {
			return count, fmt.Errorf("final batch index failed: %w", err)
		}
	}

	return count, nil
}
