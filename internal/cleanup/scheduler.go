package cleanup

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/codebuildervaibhav/transcript-extractor/internal/logger"
)

// Scheduler removes raw engine results left behind in a local output
// container when an extraction never got to purge them
type Scheduler struct {
	dir      string
	pattern  string
	interval time.Duration
	maxAge   time.Duration
	log      *logger.Logger
	now      func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a new cleanup scheduler sweeping files matching
// pattern (for example "*.json") under dir
func NewScheduler(dir, pattern string, intervalMinutes, maxAgeHours int, log *logger.Logger) *Scheduler {
	if intervalMinutes < 1 {
		intervalMinutes = 60
	}
	if maxAgeHours < 1 {
		maxAgeHours = 24
	}
	return &Scheduler{
		dir:      dir,
		pattern:  pattern,
		interval: time.Duration(intervalMinutes) * time.Minute,
		maxAge:   time.Duration(maxAgeHours) * time.Hour,
		log:      log.With("component", "cleanup"),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval
func (s *Scheduler) Start() {
	s.log.Info("running initial stale result cleanup", "dir", s.dir)
	s.Sweep()

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopChan:
				return
			}
		}
	}()

	s.log.Info("cleanup scheduler started", "interval", s.interval, "max_age", s.maxAge)
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.log.Info("cleanup scheduler stopped")
	})
}

// Sweep removes matching files older than the max age and returns how many
// were deleted
func (s *Scheduler) Sweep() int {
	now := s.now()

	var deletedCount int
	var deletedSize int64

	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// missing container or unreadable entry
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(s.pattern, d.Name()); !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			return nil
		}
		if err := os.Remove(path); err != nil {
			s.log.Warn("failed to delete stale file", "path", path, "error", err)
			return nil
		}
		deletedCount++
		deletedSize += info.Size()
		rel, _ := filepath.Rel(s.dir, path)
		s.log.Debug("deleted stale file", "file", filepath.ToSlash(rel), "age", age.Round(time.Minute))
		return nil
	})
	if err != nil {
		s.log.Error("error during cleanup", "error", err)
	}

	if deletedCount > 0 {
		s.log.Info("cleanup complete", "deleted", deletedCount, "freed_kb", deletedSize/1024)
	}
	return deletedCount
}

// EnsureDirExists creates dir if it doesn't exist
func EnsureDirExists(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
