package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Sweeper deletes read notifications once a day at midnight UTC. It runs
// on its own goroutine and never touches the request path.
type Sweeper struct {
	service   NotificationService
	retention time.Duration
	now       func() time.Time

	// after lets tests replace the wait between runs.
	after func(d time.Duration) <-chan time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSweeper creates a sweeper that keeps read notifications for retention.
func NewSweeper(service NotificationService, retention time.Duration) *Sweeper {
	return &Sweeper{
		service:   service,
		retention: retention,
		now:       time.Now,
		after:     time.After,
	}
}

// Start launches the sweep loop. It stops when ctx is cancelled or Stop is
// called.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("notification sweeper already running")
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)

	slog.Info("notification sweeper started", slog.Duration("retention", s.retention))
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("notification sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.after(untilMidnight(s.now())):
			if _, err := s.service.Sweep(ctx, s.retention); err != nil {
				slog.Error("notification sweep failed", slog.Any("error", err))
			}
		}
	}
}

// untilMidnight returns the wait until the next 00:00 UTC after now.
func untilMidnight(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return next.Sub(now)
}
