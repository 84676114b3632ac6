package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/grindlab/exicon/internal/cache"
	"github.com/grindlab/exicon/internal/config"
	"github.com/grindlab/exicon/internal/domain"
	"github.com/grindlab/exicon/internal/search"
	"github.com/grindlab/exicon/internal/store"
)

// Orchestrator pages through the store and runs one job over every
// eligible document. Documents are processed sequentially; pacing comes
// from a token bucket sized by configuration, not from delays inside
// the jobs themselves.
type Orchestrator struct {
	store   *store.Store
	tracker *Tracker
	cache   *cache.Cache[search.Result]
	index   bleve.Index
	limiter *rate.Limiter
	cfg     *config.Settings
}

// NewOrchestrator creates an orchestrator. cache and index may be nil;
// invalidation and reindexing are then skipped.
func NewOrchestrator(s *store.Store, tracker *Tracker, c *cache.Cache[search.Result], index bleve.Index, cfg *config.Settings) *Orchestrator {
	return &Orchestrator{
		store:   s,
		tracker: tracker,
		cache:   c,
		index:   index,
		limiter: rate.NewLimiter(rate.Limit(cfg.Batch.Rate), cfg.Batch.Burst),
		cfg:     cfg,
	}
}

// Summary is the outcome of one batch run.
type Summary struct {
	Examined  int
	Processed int
	Proposed  int
	Applied   int
	Skipped   int
	Failed    int
}

// Run executes the job over every eligible document. Cancellation is
// honored between documents and between pages; the summary reflects
// work completed before the stop. Only one run per job type may be
// active across processes.
func (o *Orchestrator) Run(ctx context.Context, job Job) (*Summary, error) {
	lock := NewJobLock(o.cfg.Store.DataDir, job.Type())
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("Failed to release job lock", "job", job.Type(), "error", err)
		}
	}()

	slog.Info("Batch run starting", "job", job.Type(), "auto_apply", o.cfg.Batch.AutoApply)

	summary := &Summary{}
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		page, err := o.store.ExercisePage(offset, o.cfg.Batch.PageSize)
		if err != nil {
			return summary, fmt.Errorf("failed to load page at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			ex := &page[i]
			summary.Examined++

			if !o.eligible(job.Type(), ex) {
				summary.Skipped++
				continue
			}

			if err := o.limiter.Wait(ctx); err != nil {
				return summary, err
			}

			if err := o.processOne(ctx, job, ex, summary); err != nil {
				// The id was not marked processed, so the next run
				// reattempts this document.
				slog.Error("Document failed", "job", job.Type(), "slug", ex.Slug, "error", err)
				summary.Failed++
				continue
			}
			summary.Processed++
		}

		offset += len(page)

		if len(page) == o.cfg.Batch.PageSize && o.cfg.Batch.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(o.cfg.Batch.PageDelay):
			}
		}
	}

	slog.Info("Batch run finished",
		"job", job.Type(),
		"examined", summary.Examined,
		"processed", summary.Processed,
		"proposed", summary.Proposed,
		"applied", summary.Applied,
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	return summary, nil
}

// eligible: the document has source text and this job type has not
// handled it yet.
func (o *Orchestrator) eligible(jobType string, ex *domain.Exercise) bool {
	if strings.TrimSpace(ex.SourceText()) == "" {
		return false
	}
	return !o.tracker.IsProcessed(jobType, ex.ID)
}

// processOne runs the job on a single document and records the result.
// The tracker append happens last so a failure anywhere leaves the
// document eligible for the next run.
func (o *Orchestrator) processOne(ctx context.Context, job Job, ex *domain.Exercise, summary *Summary) error {
	change, err := job.Run(ctx, ex)
	if err != nil {
		return err
	}

	if change != nil {
		if err := o.applyChange(job.Type(), ex, change, summary); err != nil {
			return err
		}
	}

	if err := o.tracker.MarkProcessed(job.Type(), ex.ID); err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}
	return nil
}

// applyChange stages the change as a proposal, writing it through
// directly when auto-apply is on and confidence clears the threshold.
func (o *Orchestrator) applyChange(jobType string, ex *domain.Exercise, change *Change, summary *Summary) error {
	proposal := &domain.Proposal{
		ID:            uuid.NewString(),
		ExerciseID:    ex.ID,
		Field:         change.Field,
		CurrentValue:  fieldValue(ex, change.Field),
		ProposedValue: change.Proposed,
		Confidence:    change.Confidence,
		Status:        domain.ProposalPending,
		JobType:       jobType,
	}

	if o.cfg.Batch.AutoApply && change.Confidence >= o.cfg.Batch.AutoApplyThreshold {
		if err := o.store.UpdateExerciseField(ex.ID, change.Field, change.Proposed); err != nil {
			return fmt.Errorf("failed to apply change: %w", err)
		}
		proposal.Status = domain.ProposalApplied
		o.reindex(ex.ID)
		o.invalidate(ex.Slug)
		summary.Applied++
	} else {
		summary.Proposed++
	}

	if err := o.store.PutProposal(proposal); err != nil {
		return fmt.Errorf("failed to write proposal: %w", err)
	}

	slog.Info("Change recorded",
		"job", jobType,
		"slug", ex.Slug,
		"field", change.Field,
		"status", string(proposal.Status),
		"confidence", change.Confidence)
	return nil
}

// reindex refreshes the search document after a direct write. Index
// staleness is recoverable, so failures are logged, not returned.
func (o *Orchestrator) reindex(id string) {
	if o.index == nil {
		return
	}
	ex, err := o.store.GetExercise(id)
	if err != nil {
		slog.Warn("Failed to reload document for reindex", "id", id, "error", err)
		return
	}
	if err := search.IndexExercise(o.index, ex); err != nil {
		slog.Warn("Failed to reindex document", "slug", ex.Slug, "error", err)
	}
}

// invalidate drops cache entries that could contain the stale text.
// Best effort; entries expire on their own.
func (o *Orchestrator) invalidate(slug string) {
	if o.cache == nil {
		return
	}

	maxPages := 50
	if count, err := o.store.CountExercises(); err == nil {
		pageSize := o.cfg.Search.MaxResults
		maxPages = (count + pageSize - 1) / pageSize
	} else {
		slog.Warn("Failed to count documents for cache invalidation", "error", err)
	}

	o.cache.DeleteAll(search.InvalidationKeys(slug, maxPages, o.cfg.Search.MaxResults)...)
}

// fieldValue reads the current value of a mutable text field.
func fieldValue(ex *domain.Exercise, field string) string {
	switch field {
	case domain.FieldName:
		return ex.Name
	case domain.FieldDescription:
		return ex.Description
	case domain.FieldText:
		return ex.Text
	default:
		return ""
	}
}

// IsLockContention reports whether the error means another run holds
// the job lock.
func IsLockContention(err error) bool {
	return errors.Is(err, ErrJobRunning)
}
