package debounce

import (
	"sync"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// manualScheduler fires timers synchronously from Advance, in due order.
type manualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	at      time.Time
	fn      func()
	done    bool
	stopped bool
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: epoch}
}

func (s *manualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *manualScheduler) Schedule(delay time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &manualTimer{s: s, at: s.now.Add(delay), fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.done || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Elapsed returns the time since the scheduler's start.
func (s *manualScheduler) Elapsed() time.Duration {
	return s.Now().Sub(epoch)
}

// Set moves the clock without firing anything, like a late or stalled
// host timer. Moving backwards is allowed.
func (s *manualScheduler) Set(elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = epoch.Add(elapsed)
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var next *manualTimer
		for _, t := range s.timers {
			if t.done || t.stopped || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		if next.at.After(s.now) {
			s.now = next.at
		}
		next.done = true
		s.mu.Unlock()

		next.fn()
	}
}

// Active counts timers that have neither fired nor been stopped.
func (s *manualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.timers {
		if !t.done && !t.stopped {
			n++
		}
	}
	return n
}

type invocation struct {
	at   time.Duration
	args string
}

// recorder is a target that remembers every execution.
type recorder struct {
	mu    sync.Mutex
	clock *manualScheduler
	calls []invocation
	err   error
}

func (r *recorder) fn(args string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var at time.Duration
	if r.clock != nil {
		at = r.clock.Elapsed()
	}
	r.calls = append(r.calls, invocation{at: at, args: args})
	if r.err != nil {
		return "", r.err
	}
	return "ran:" + args, nil
}

func (r *recorder) args() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.args)
	}
	return out
}

func (r *recorder) times() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]time.Duration, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.at)
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

const ms = time.Millisecond
