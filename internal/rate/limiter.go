package rate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Window is the trailing horizon over which calls are counted.
const Window = time.Minute

// Limiter delays the caller until one more call fits the budget.
type Limiter interface {
	Wait(ctx context.Context) error
}

// SlidingWindow admits at most limit calls within any trailing Window.
// One instance guards one operation class and is shared by every caller
// in the process; the timestamp sequence is never exposed.
type SlidingWindow struct {
	mu    sync.Mutex
	limit int
	calls []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSlidingWindow returns a limiter admitting limit calls per minute.
func NewSlidingWindow(limit int) *SlidingWindow {
	if limit <= 0 {
		limit = 1
	}
	return &SlidingWindow{
		limit: limit,
		now:   time.Now,
		sleep: sleepContext,
	}
}

// Wait blocks until the call is admitted or ctx is done. Timestamps
// older than the window are pruned before every admission decision; if
// the budget is full, the caller sleeps until the oldest retained call
// exits the window, then the admission is re-evaluated. The admitted
// call is recorded at the moment it proceeds.
func (s *SlidingWindow) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		now := s.now()
		s.prune(now)
		if len(s.calls) < s.limit {
			s.calls = append(s.calls, now)
			s.mu.Unlock()
			return nil
		}
		delay := s.calls[0].Add(Window).Sub(now)
		s.mu.Unlock()

		if err := s.sleep(ctx, delay); err != nil {
			return fmt.Errorf("rate wait canceled: %w", err)
		}
	}
}

// prune drops timestamps that have left the trailing window. Callers
// must hold mu.
func (s *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-Window)
	i := 0
	for i < len(s.calls) && !s.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		s.calls = append(s.calls[:0], s.calls[i:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ Limiter = (*SlidingWindow)(nil)
