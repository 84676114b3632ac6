package batch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTracker_EmptyOnFirstLoad(t *testing.T) {
	path := TrackerPath(t.TempDir())

	tracker, err := LoadTracker(path)
	if err != nil {
		t.Fatalf("LoadTracker failed: %v", err)
	}
	if tracker.IsProcessed(JobTypeCrossRef, "1") {
		t.Error("fresh tracker reports a processed id")
	}
	if tracker.Count(JobTypeCrossRef) != 0 {
		t.Errorf("count = %d, want 0", tracker.Count(JobTypeCrossRef))
	}
}

func TestTracker_MarkAndReload(t *testing.T) {
	path := TrackerPath(t.TempDir())

	tracker, err := LoadTracker(path)
	if err != nil {
		t.Fatalf("LoadTracker failed: %v", err)
	}
	if err := tracker.MarkProcessed(JobTypeCrossRef, "a"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if err := tracker.MarkProcessed(JobTypeCrossRef, "b"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if err := tracker.MarkProcessed(JobTypeCleanup, "a"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	// Progress must survive a restart.
	reloaded, err := LoadTracker(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !reloaded.IsProcessed(JobTypeCrossRef, "a") || !reloaded.IsProcessed(JobTypeCrossRef, "b") {
		t.Error("crossref progress lost across reload")
	}
	if !reloaded.IsProcessed(JobTypeCleanup, "a") {
		t.Error("cleanup progress lost across reload")
	}
	if reloaded.IsProcessed(JobTypeCleanup, "b") {
		t.Error("job types are not isolated")
	}
}

func TestTracker_MarkIsIdempotent(t *testing.T) {
	tracker, err := LoadTracker(TrackerPath(t.TempDir()))
	if err != nil {
		t.Fatalf("LoadTracker failed: %v", err)
	}

	for range 3 {
		if err := tracker.MarkProcessed(JobTypeCrossRef, "a"); err != nil {
			t.Fatalf("MarkProcessed failed: %v", err)
		}
	}
	if tracker.Count(JobTypeCrossRef) != 1 {
		t.Errorf("count = %d, want 1", tracker.Count(JobTypeCrossRef))
	}
}

func TestTracker_Reset(t *testing.T) {
	path := TrackerPath(t.TempDir())
	tracker, err := LoadTracker(path)
	if err != nil {
		t.Fatalf("LoadTracker failed: %v", err)
	}

	if err := tracker.MarkProcessed(JobTypeCrossRef, "a"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if err := tracker.MarkProcessed(JobTypeCleanup, "a"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if err := tracker.Reset(JobTypeCrossRef); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	reloaded, err := LoadTracker(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.IsProcessed(JobTypeCrossRef, "a") {
		t.Error("reset job still has progress")
	}
	if !reloaded.IsProcessed(JobTypeCleanup, "a") {
		t.Error("reset wiped an unrelated job type")
	}
}

func TestTracker_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), TrackerFilename)
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := LoadTracker(path); err == nil {
		t.Error("expected an error for a corrupt tracker file")
	}
}

func TestTracker_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	tracker, err := LoadTracker(TrackerPath(dir))
	if err != nil {
		t.Fatalf("LoadTracker failed: %v", err)
	}
	if err := tracker.MarkProcessed(JobTypeCrossRef, "a"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	if _, err := os.Stat(TrackerPath(dir) + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}
