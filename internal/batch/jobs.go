package batch

import (
	"context"
	"strings"
	"sync"

	"github.com/grindlab/exicon/internal/domain"
	"github.com/grindlab/exicon/internal/llm"
	"github.com/grindlab/exicon/internal/store"
)

const (
	JobTypeCrossRef = "crossref"
	JobTypeCleanup  = "cleanup"
)

// Change is one proposed field mutation produced by a job. A nil Change
// from Job.Run means the document was examined and needs nothing.
type Change struct {
	Field      string
	Proposed   string
	Confidence float64
}

// Job processes one document at a time. Implementations must be safe to
// call sequentially across an entire run; per-document failures are
// returned, not stored.
type Job interface {
	Type() string
	Run(ctx context.Context, ex *domain.Exercise) (*Change, error)
}

// CrossRefJob links exercise mentions in document text to their lexicon
// entries.
type CrossRefJob struct {
	linker Linker
	store  *store.Store

	vocabOnce sync.Once
	vocab     []string
	vocabErr  error
}

// Linker is the per-document cross-reference pipeline.
type Linker interface {
	Process(ctx context.Context, ex *domain.Exercise, vocabulary []string) (*domain.CrossRefResult, error)
}

// NewCrossRefJob creates the cross-linking job. The vocabulary of known
// names is derived from the store once per run.
func NewCrossRefJob(linker Linker, s *store.Store) *CrossRefJob {
	return &CrossRefJob{linker: linker, store: s}
}

func (j *CrossRefJob) Type() string { return JobTypeCrossRef }

func (j *CrossRefJob) Run(ctx context.Context, ex *domain.Exercise) (*Change, error) {
	vocab, err := j.vocabulary()
	if err != nil {
		return nil, err
	}

	result, err := j.linker.Process(ctx, ex, vocab)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	return &Change{
		Field:      sourceField(ex),
		Proposed:   result.UpdatedText,
		Confidence: result.Confidence,
	}, nil
}

// vocabulary collects the names and aliases of all active exercises.
func (j *CrossRefJob) vocabulary() ([]string, error) {
	j.vocabOnce.Do(func() {
		j.vocabErr = j.store.ScanExercises(store.Filter{Status: domain.StatusActive}, func(ex *domain.Exercise) error {
			j.vocab = append(j.vocab, ex.Name)
			j.vocab = append(j.vocab, ex.Aliases...)
			return nil
		})
	})
	return j.vocab, j.vocabErr
}

// CleanupJob proposes normalized rewrites of exercise descriptions.
type CleanupJob struct {
	cleaner Cleaner
}

// Cleaner is the per-document description cleanup pipeline.
type Cleaner interface {
	CleanDescription(ctx context.Context, ex *domain.Exercise) (*llm.CleanupOutcome, error)
}

// NewCleanupJob creates the description cleanup job.
func NewCleanupJob(cleaner Cleaner) *CleanupJob {
	return &CleanupJob{cleaner: cleaner}
}

func (j *CleanupJob) Type() string { return JobTypeCleanup }

func (j *CleanupJob) Run(ctx context.Context, ex *domain.Exercise) (*Change, error) {
	outcome, err := j.cleaner.CleanDescription(ctx, ex)
	if err != nil {
		return nil, err
	}
	if outcome == nil {
		return nil, nil
	}

	return &Change{
		Field:      outcome.Field,
		Proposed:   outcome.Proposed,
		Confidence: outcome.Confidence,
	}, nil
}

// sourceField names the field SourceText drew from, so the rewrite
// lands where the original text came from.
func sourceField(ex *domain.Exercise) string {
	if strings.TrimSpace(ex.Description) != "" {
		return domain.FieldDescription
	}
	return domain.FieldText
}
