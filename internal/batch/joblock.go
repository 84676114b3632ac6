package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// ErrJobRunning indicates another process holds the batch lock.
var ErrJobRunning = errors.New("another batch run is in progress")

// JobLock serializes batch runs across processes with flock(2). The
// lock releases automatically if the process crashes, so a dead run
// never wedges the next one.
type JobLock struct {
	path string
	file *os.File
}

// NewJobLock creates a lock for the given job type under the data
// directory.
func NewJobLock(dataDir, jobType string) *JobLock {
	return &JobLock{
		path: filepath.Join(dataDir, fmt.Sprintf("%s.lock", jobType)),
	}
}

// Acquire takes the exclusive lock without blocking. Returns
// ErrJobRunning if another process holds it.
func (l *JobLock) Acquire() error {
	if l.file == nil {
		if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
			return fmt.Errorf("failed to create lock directory: %w", err)
		}
		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			return fmt.Errorf("failed to open lock file: %w", err)
		}
		l.file = file
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = l.file.Close()
		l.file = nil
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return ErrJobRunning
		}
		return fmt.Errorf("flock failed: %w", err)
	}
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *JobLock) Release() error {
	if l.file == nil {
		return nil
	}

	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("flock unlock failed: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close failed: %w", closeErr)
	}
	return nil
}

// Held reports whether this instance currently holds the lock.
func (l *JobLock) Held() bool {
	return l.file != nil
}

// Path returns the lock file location.
func (l *JobLock) Path() string {
	return l.path
}
