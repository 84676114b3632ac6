// Package batch runs the offline cleanup and cross-linking jobs:
// paging through the store, rate-limiting the external calls, and
// recording progress durably so an interrupted run resumes where it
// stopped.
package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// TrackerVersion is the current schema version
	TrackerVersion = 1

	// TrackerFilename is the default tracker filename
	TrackerFilename = "batch-progress.json"
)

// Tracker records which documents each job type has already handled.
// The processed-id append for a document must happen after that
// document's own write, so a crash mid-document leaves it eligible for
// the next run.
type Tracker struct {
	Version int                 `json:"version"`
	Jobs    map[string]*JobState `json:"jobs"`

	path string
	mu   sync.RWMutex
	seen map[string]map[string]bool
}

// JobState is the durable progress of one job type.
type JobState struct {
	LastRun   time.Time `json:"last_run"`
	Processed []string  `json:"processed"`
}

// LoadTracker reads the tracker from disk, or starts an empty one if
// the file does not exist.
func LoadTracker(path string) (*Tracker, error) {
	t := &Tracker{
		Version: TrackerVersion,
		Jobs:    make(map[string]*JobState),
		path:    path,
		seen:    make(map[string]map[string]bool),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("failed to read tracker: %w", err)
	}

	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse tracker: %w", err)
	}
	if t.Jobs == nil {
		t.Jobs = make(map[string]*JobState)
	}
	for jobType, state := range t.Jobs {
		ids := make(map[string]bool, len(state.Processed))
		for _, id := range state.Processed {
			ids[id] = true
		}
		t.seen[jobType] = ids
	}

	return t, nil
}

// TrackerPath returns the on-disk location of the tracker under the
// data directory.
func TrackerPath(dataDir string) string {
	return filepath.Join(dataDir, TrackerFilename)
}

// IsProcessed reports whether the job type has already handled the id.
func (t *Tracker) IsProcessed(jobType, id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seen[jobType][id]
}

// MarkProcessed appends the id to the job's durable list and persists
// immediately.
func (t *Tracker) MarkProcessed(jobType, id string) error {
	t.mu.Lock()
	state, ok := t.Jobs[jobType]
	if !ok {
		state = &JobState{}
		t.Jobs[jobType] = state
	}
	if t.seen[jobType] == nil {
		t.seen[jobType] = make(map[string]bool)
	}
	if !t.seen[jobType][id] {
		state.Processed = append(state.Processed, id)
		t.seen[jobType][id] = true
	}
	state.LastRun = time.Now().UTC()
	t.mu.Unlock()

	return t.save()
}

// Reset forgets all progress for a job type, making every document
// eligible again.
func (t *Tracker) Reset(jobType string) error {
	t.mu.Lock()
	delete(t.Jobs, jobType)
	delete(t.seen, jobType)
	t.mu.Unlock()

	return t.save()
}

// Count returns how many documents the job type has processed.
func (t *Tracker) Count(jobType string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if state, ok := t.Jobs[jobType]; ok {
		return len(state.Processed)
	}
	return 0
}

// save writes the tracker to disk atomically using the
// write-to-temp + rename pattern.
func (t *Tracker) save() error {
	t.mu.RLock()
	data, err := json.MarshalIndent(t, "", "  ")
	t.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal tracker: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("failed to create tracker directory: %w", err)
	}

	tempPath := t.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write tracker temp file: %w", err)
	}

	if err := os.Rename(tempPath, t.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename tracker file: %w", err)
	}

	return nil
}
