package state

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultAutosaveInterval matches the original's background saver.
const DefaultAutosaveInterval = 60 * time.Second

// AutoSave periodically persists the snapshot until the context is
// cancelled, then writes one final save so shutdown never loses state.
func (s *Store) AutoSave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.Save(); err != nil {
				s.log.Error("final save failed", zap.Error(err))
			}
			return
		case <-ticker.C:
			if err := s.Save(); err != nil {
				s.log.Error("autosave failed", zap.Error(err))
			}
		}
	}
}
