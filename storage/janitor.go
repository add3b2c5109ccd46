package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SweepStale removes staged files older than maxAge and returns how many were deleted.
// Requests release their own artifacts; this only catches files orphaned by a crash.
func (s *TempStore) SweepStale(maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), stagePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := s.Release(filepath.Join(s.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// StartTempJanitor sweeps once immediately and then every interval until ctx is done.
func StartTempJanitor(ctx context.Context, store *TempStore, interval, maxAge time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sweep := func() {
		n, err := store.SweepStale(maxAge, time.Now())
		if err != nil {
			logger.Warn("staging sweep failed", zap.String("dir", store.Dir()), zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("removed orphaned staged uploads", zap.Int("count", n))
		}
	}
	go func() {
		sweep()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep()
			}
		}
	}()
}
