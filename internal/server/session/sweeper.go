package session

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredDeleter removes persisted sessions that are past their expiry.
type ExpiredDeleter interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// Sweeper periodically purges expired rows from a persistent session store.
// Expired sessions are already rejected on read; this only reclaims space.
type Sweeper struct {
	repo     ExpiredDeleter
	interval time.Duration
	done     chan struct{}
}

const defaultSweepInterval = time.Hour

// NewSweeper creates a new sweeper. A non-positive interval falls back to
// one hour.
func NewSweeper(repo ExpiredDeleter, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		repo:     repo,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the sweep loop in a background goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	slog.Info("session sweeper started", "interval", s.interval)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		// Run once immediately on start
		s.sweep(ctx)

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-ctx.Done():
				slog.Info("session sweeper stopping")
				close(s.done)
				return
			}
		}
	}()
}

// Wait blocks until the sweeper has fully stopped.
func (s *Sweeper) Wait() {
	<-s.done
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.repo.DeleteExpiredSessions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("failed to delete expired sessions", "error", err)
		}
		return
	}
	if removed > 0 {
		slog.Info("expired sessions removed", "count", removed)
	}
}
