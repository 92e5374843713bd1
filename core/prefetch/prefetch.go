// Package prefetch opportunistically warms the cache tiers for the
// sefarim the user has not opened yet.
//
// The scheduler runs after the initially requested sefer is interactive:
// it waits a settle delay, then walks the remaining identifiers in
// ascending order with a pacing delay between loads so it never competes
// with an interactive load for the same network or CPU burst. Failures
// are advisory only; nothing here ever reaches the UI.
package prefetch

import (
	"context"
	"time"

	"github.com/torahstudy/limud/core/loader"
	"github.com/torahstudy/limud/core/torah"
	"github.com/torahstudy/limud/internal/logging"
)

const (
	// DefaultSettleDelay is how long the scheduler waits after Start
	// before its first load.
	DefaultSettleDelay = 5 * time.Second

	// DefaultPacing is the delay inserted between consecutive loads.
	DefaultPacing = 1 * time.Second
)

// ProgressFunc is invoked after each identifier is handled (loaded,
// already resident, or failed).
type ProgressFunc func(seferID, done, total int)

// Scheduler warms the cache tiers in the background, one sefer at a
// time. It never runs concurrent loads.
type Scheduler struct {
	loader     *loader.Loader
	settle     time.Duration
	pacing     time.Duration
	onProgress ProgressFunc
	cancel     context.CancelFunc
	done       chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSettleDelay overrides the initial settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Scheduler) { s.settle = d }
}

// WithPacing overrides the delay between loads.
func WithPacing(d time.Duration) Option {
	return func(s *Scheduler) { s.pacing = d }
}

// WithProgress sets a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Scheduler) { s.onProgress = fn }
}

// New creates a scheduler over the given loader.
func New(l *loader.Loader, opts ...Option) *Scheduler {
	s := &Scheduler{
		loader: l,
		settle: DefaultSettleDelay,
		pacing: DefaultPacing,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the background warm-up for all identifiers except
// skip (the sefer the user is viewing). It returns immediately; call
// Stop on teardown so no timer outlives the owning view.
func (s *Scheduler) Start(ctx context.Context, skip int) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.run(ctx, skip)
	}()
}

// Stop cancels any pending work and waits for the loop to exit.
// Safe to call if Start was never called.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Done returns a channel closed when the current run finishes.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// run walks the remaining identifiers, strictly ascending, one at a
// time. A single failure is logged and the loop continues.
func (s *Scheduler) run(ctx context.Context, skip int) {
	if !sleep(ctx, s.settle) {
		return
	}
	logging.Info("background prefetch started")

	ids := torah.SeferIDs()
	total := len(ids)
	done := 0
	for _, seferID := range ids {
		if seferID == skip || s.loader.Resident(seferID) {
			done++
			s.progress(seferID, done, total)
			continue
		}
		if !sleep(ctx, s.pacing) {
			logging.PrefetchEvent("cancelled", seferID)
			return
		}
		if _, err := s.loader.Resolve(ctx, seferID); err != nil {
			// Advisory only. The interactive path retries on demand.
			logging.PrefetchEvent("failed", seferID, "error", err)
		} else {
			logging.PrefetchEvent("loaded", seferID)
		}
		done++
		s.progress(seferID, done, total)
	}
	logging.Info("background prefetch finished")
}

func (s *Scheduler) progress(seferID, done, total int) {
	if s.onProgress != nil {
		s.onProgress(seferID, done, total)
	}
}

// sleep waits for d unless the context is cancelled first. The timer is
// stopped on cancellation so nothing dangles after teardown.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
