/*
scheduler.go - Background reconciliation scheduler

PURPOSE:
  Runs the status sweep on a fixed interval so parties advance even when
  nobody is reading the list. Between ticks, reads still reconcile
  opportunistically (OnListView), so the scheduler interval is an upper
  bound on staleness, not the only trigger.

LIFECYCLE:
  Start launches one goroutine; Stop signals it and waits for it to exit.
  RunNow executes a sweep synchronously on the caller's goroutine,
  independent of the tick loop.

SEE ALSO:
  - party/reconciler.go: AutoUpdateStatuses, the sweep this drives
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/party-engine/party"
)

// ReconciliationScheduler periodically sweeps party statuses.
type ReconciliationScheduler struct {
	Reconciler *party.Reconciler
	Interval   time.Duration
	Log        zerolog.Logger

	mu      sync.Mutex
	running bool
	nextRun time.Time
	stop    chan struct{}
	done    chan struct{}
}

func NewScheduler(rec *party.Reconciler, interval time.Duration, log zerolog.Logger) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		Reconciler: rec,
		Interval:   interval,
		Log:        log,
	}
}

// Start launches the sweep loop. Calling Start on a running scheduler is a
// no-op.
func (s *ReconciliationScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.nextRun = time.Now().Add(s.Interval)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(ctx)
	s.Log.Info().Dur("interval", s.Interval).Msg("reconciliation scheduler started")
}

func (s *ReconciliationScheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
			s.mu.Lock()
			s.nextRun = time.Now().Add(s.Interval)
			s.mu.Unlock()
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *ReconciliationScheduler) sweep(ctx context.Context) {
	if _, err := s.Reconciler.AutoUpdateStatuses(ctx); err != nil {
		// Sweep-level failure (the party list itself). Per-party failures
		// are already collected and logged inside the reconciler.
		s.Log.Error().Err(err).Msg("scheduled reconciliation failed")
	}
}

// Stop signals the loop and waits for it to exit.
func (s *ReconciliationScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	<-s.done
	s.Log.Info().Msg("reconciliation scheduler stopped")
}

// RunNow performs one synchronous sweep, outside the tick loop.
func (s *ReconciliationScheduler) RunNow(ctx context.Context) (party.SweepResult, error) {
	return s.Reconciler.AutoUpdateStatuses(ctx)
}

// Running reports whether the tick loop is active.
func (s *ReconciliationScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun reports when the next scheduled sweep fires.
func (s *ReconciliationScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}
