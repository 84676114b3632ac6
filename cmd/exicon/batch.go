package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/grindlab/exicon/internal/app"
	"github.com/grindlab/exicon/internal/batch"
	"github.com/grindlab/exicon/internal/config"
	"github.com/grindlab/exicon/internal/crossref"
	"github.com/grindlab/exicon/internal/domain"
	"github.com/grindlab/exicon/internal/llm"
	"github.com/grindlab/exicon/internal/search"
	"github.com/grindlab/exicon/internal/store"
)

func newCrossRefCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crossref",
		Short: "Detect and link exercise mentions across the lexicon",
		RunE: func(cmd *cobra.Command, args []string) error {
			reset, _ := cmd.Flags().GetBool("reset")
			return runBatch(cmd.Flags(), batch.JobTypeCrossRef, reset)
		},
	}
	app.RegisterFlags(cmd.Flags())
	cmd.Flags().Bool("reset", false, "Forget previous progress for this job before running")
	return cmd
}

func newCleanupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Propose normalized rewrites of exercise descriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			reset, _ := cmd.Flags().GetBool("reset")
			return runBatch(cmd.Flags(), batch.JobTypeCleanup, reset)
		},
	}
	app.RegisterFlags(cmd.Flags())
	cmd.Flags().Bool("reset", false, "Forget previous progress for this job before running")
	return cmd
}

func runBatch(flags *pflag.FlagSet, jobType string, reset bool) error {
	settings, err := loadBatchSettings(flags)
	if err != nil {
		return err
	}
	if err := config.ValidateLLMSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	config.Log(settings)

	s, err := store.Open(settings.Store.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Error("Failed to close store", "error", err)
		}
	}()

	index, err := openIndex(settings, s)
	if err != nil {
		slog.Warn("Search index unavailable, mention resolution will degrade to substring scan", "error", err)
	}
	if index != nil {
		defer func() {
			if err := index.Close(); err != nil {
				slog.Error("Failed to close index", "error", err)
			}
		}()
	}

	tracker, err := batch.LoadTracker(batch.TrackerPath(settings.Store.DataDir))
	if err != nil {
		return err
	}
	if reset {
		if err := tracker.Reset(jobType); err != nil {
			return fmt.Errorf("failed to reset progress: %w", err)
		}
		slog.Info("Progress reset", "job", jobType)
	}

	client, err := llm.NewClient(settings.LLM)
	if err != nil {
		return err
	}

	var job batch.Job
	switch jobType {
	case batch.JobTypeCrossRef:
		executor := search.NewExecutor(index, s, nil, &settings.Search)
		linker := crossref.NewLinker(llm.NewDetector(client), executor, settings.Batch.SimilarityThreshold)
		job = batch.NewCrossRefJob(linker, s)
	case batch.JobTypeCleanup:
		job = batch.NewCleanupJob(llm.NewCleaner(client))
	default:
		return fmt.Errorf("unknown job type: %s", jobType)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator := batch.NewOrchestrator(s, tracker, nil, index, settings)
	summary, err := orchestrator.Run(ctx, job)
	if summary != nil {
		slog.Info("Run summary",
			"job", jobType,
			"examined", summary.Examined,
			"processed", summary.Processed,
			"proposed", summary.Proposed,
			"applied", summary.Applied,
			"skipped", summary.Skipped,
			"failed", summary.Failed)
	}
	return err
}

func newReindexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the document store",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadBatchSettings(cmd.Flags())
			if err != nil {
				return err
			}

			s, err := store.Open(settings.Store.DataDir)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer func() {
				if err := s.Close(); err != nil {
					slog.Error("Failed to close store", "error", err)
				}
			}()

			count, err := search.NewIndexer(settings.Store.DataDir).Rebuild(s)
			if err != nil {
				return fmt.Errorf("reindex failed: %w", err)
			}
			slog.Info("Reindex complete", "documents", count)
			return nil
		},
	}
	app.RegisterFlags(cmd.Flags())
	return cmd
}

func newSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Load exercises from a JSON file into the store and index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadBatchSettings(cmd.Flags())
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read seed file: %w", err)
			}
			var exercises []domain.Exercise
			if err := jsoniter.Unmarshal(data, &exercises); err != nil {
				return fmt.Errorf("failed to parse seed file: %w", err)
			}

			s, err := store.Open(settings.Store.DataDir)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer func() {
				if err := s.Close(); err != nil {
					slog.Error("Failed to close store", "error", err)
				}
			}()

			loaded := 0
			for i := range exercises {
				ex := &exercises[i]
				if ex.ID == "" {
					ex.ID = uuid.NewString()
				}
				if ex.Slug == "" {
					ex.Slug = domain.Slugify(ex.Name)
				}
				if ex.Status == "" {
					ex.Status = domain.StatusActive
				}
				if err := s.PutExercise(ex); err != nil {
					slog.Warn("Skipping document", "name", ex.Name, "error", err)
					continue
				}
				loaded++
			}

			count, err := search.NewIndexer(settings.Store.DataDir).Rebuild(s)
			if err != nil {
				return fmt.Errorf("index rebuild failed: %w", err)
			}
			slog.Info("Seed complete", "loaded", loaded, "indexed", count)
			return nil
		},
	}
	app.RegisterFlags(cmd.Flags())
	return cmd
}

// loadBatchSettings loads and validates settings and configures logging
// the same way the server path does.
func loadBatchSettings(flags *pflag.FlagSet) (*config.Settings, error) {
	settings, err := config.LoadSettingsWithFlags(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := config.ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))
	return settings, nil
}

// openIndex opens the search index for writing, building it from the
// store when absent.
func openIndex(settings *config.Settings, s *store.Store) (bleve.Index, error) {
	indexer := search.NewIndexer(settings.Store.DataDir)
	if !indexer.Exists() {
		count, err := indexer.Rebuild(s)
		if err != nil {
			return nil, err
		}
		slog.Info("Search index built", "documents", count)
	}
	return indexer.OpenForWrite()
}
