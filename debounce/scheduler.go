package debounce

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultFrameInterval paces a FrameLoop at roughly 60 frames per second.
const DefaultFrameInterval = 16 * time.Millisecond

// Timer is a handle to one scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It reports false when the
	// callback already ran or was stopped before.
	Stop() bool
}

// DelayScheduler runs a callback once after a delay.
type DelayScheduler interface {
	Now() time.Time
	Schedule(delay time.Duration, fn func()) Timer
}

// FrameScheduler runs a callback once on the next frame tick.
type FrameScheduler interface {
	Now() time.Time
	ScheduleFrame(fn func()) Timer
}

type ClockScheduler struct {
	clock clockwork.Clock
}

func NewClockScheduler(clock clockwork.Clock) *ClockScheduler {
	return &ClockScheduler{clock: clock}
}

func NewRealScheduler() *ClockScheduler {
	return NewClockScheduler(clockwork.NewRealClock())
}

func (s *ClockScheduler) Now() time.Time {
	return s.clock.Now()
}

func (s *ClockScheduler) Schedule(delay time.Duration, fn func()) Timer {
	return s.clock.AfterFunc(delay, fn)
}

// FrameLoop is a FrameScheduler driven by a ticker. Every callback
// requested before a tick runs exactly once on that tick, in request
// order, on the goroutine running the loop. Callbacks requested while a
// tick is in progress wait for the following one.
type FrameLoop struct {
	clock    clockwork.Clock
	interval time.Duration

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]func()
}

func NewFrameLoop(clock clockwork.Clock, interval time.Duration) *FrameLoop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &FrameLoop{
		clock:    clock,
		interval: interval,
		pending:  make(map[uint64]func()),
	}
}

func (l *FrameLoop) Now() time.Time {
	return l.clock.Now()
}

func (l *FrameLoop) Interval() time.Duration {
	return l.interval
}

func (l *FrameLoop) ScheduleFrame(fn func()) Timer {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.pending[id] = fn

	return &frameHandle{loop: l, id: id}
}

// Pending returns the number of callbacks waiting for the next frame.
func (l *FrameLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Tick runs one frame.
func (l *FrameLoop) Tick() {
	l.mu.Lock()
	batch := l.pending
	l.pending = make(map[uint64]func())
	l.mu.Unlock()

	for _, id := range slices.Sorted(maps.Keys(batch)) {
		batch[id]()
	}
}

// Run ticks until ctx is done.
func (l *FrameLoop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			l.Tick()
		}
	}
}

type frameHandle struct {
	loop *FrameLoop
	id   uint64
}

func (h *frameHandle) Stop() bool {
	h.loop.mu.Lock()
	defer h.loop.mu.Unlock()

	if _, ok := h.loop.pending[h.id]; !ok {
		return false
	}
	delete(h.loop.pending, h.id)
	return true
}
