package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultSweepAge      = time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

// Sweeper removes old pipeline outputs from a directory. It only touches
// regular files whose name starts with Prefix and whose modification time
// is older than MaxAge, so files still being written are never removed.
type Sweeper struct {
	Dir      string
	MaxAge   time.Duration
	Interval time.Duration
	Prefix   string
	Logger   *slog.Logger

	now func() time.Time
}

// SweepOnce deletes every expired file and returns the paths removed.
// Files that vanish in between are ignored.
func (s *Sweeper) SweepOnce() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}
	maxAge, prefix, log := s.settings()
	cutoff := s.clock()().Add(-maxAge)

	var removed []string
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.Dir, e.Name())
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		log.Debug("swept", "file", e.Name(), "age", s.clock()().Sub(info.ModTime()).Round(time.Second))
		removed = append(removed, path)
	}
	if len(removed) > 0 {
		log.Info("sweep finished", "dir", s.Dir, "removed", len(removed))
	}
	return removed, errors.Join(errs...)
}

// Run sweeps immediately and then on every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	_, _, log := s.settings()
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if _, err := s.SweepOnce(); err != nil {
		log.Warn("sweep failed", "dir", s.Dir, "err", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.SweepOnce(); err != nil {
				log.Warn("sweep failed", "dir", s.Dir, "err", err)
			}
		}
	}
}

func (s *Sweeper) settings() (time.Duration, string, *slog.Logger) {
	maxAge := s.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultSweepAge
	}
	prefix := s.Prefix
	if prefix == "" {
		prefix = OutputPrefix
	}
	log := s.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return maxAge, prefix, log
}

func (s *Sweeper) clock() func() time.Time {
	if s.now != nil {
		return s.now
	}
	return time.Now
}
