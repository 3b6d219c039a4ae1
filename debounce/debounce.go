// Package debounce coalesces bursts of calls to one operation into a
// bounded number of executions.
//
// A Debouncer runs its operation on the leading edge of a cycle, on the
// trailing edge once no call arrived for the wait period, or both. With a
// max wait, execution is never deferred longer than that bound while
// calls keep arriving. The operation always receives the arguments of
// the most recent call.
package debounce

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/vcnkl/settle/logger"
)

// Func is the operation wrapped by a Debouncer.
type Func[A, R any] func(args A) (R, error)

type Debouncer[A, R any] struct {
	fn       Func[A, R]
	wait     time.Duration
	maxWait  time.Duration
	maxing   bool
	leading  bool
	trailing bool

	delay     DelayScheduler
	frames    FrameScheduler
	useFrames bool
	log       logger.Logger
	onError   func(error)

	// mu guards the state below. It is never held while fn runs.
	mu             sync.Mutex
	lastArgs       A
	hasArgs        bool
	lastCallTime   time.Time
	called         bool
	lastInvokeTime time.Time
	result         R
	timer          Timer
	gen            uint64
	epoch          uint64

	// tail is closed once the most recently decided execution finishes.
	tail <-chan struct{}
}

func New[A, R any](fn Func[A, R], opts ...Option) (*Debouncer[A, R], error) {
	if fn == nil {
		return nil, errors.WithStack(ErrInvalidOperand)
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(s)
	}

	if s.delay == nil {
		s.delay = NewRealScheduler()
	}
	if s.log == nil {
		s.log = logger.Nop()
	}

	d := &Debouncer[A, R]{
		fn:        fn,
		wait:      s.wait,
		maxing:    s.maxing,
		maxWait:   max(s.maxWait, s.wait),
		leading:   s.leading,
		trailing:  s.trailing,
		delay:     s.delay,
		frames:    s.frames,
		useFrames: s.frames != nil && !s.waitSet,
		log:       s.log,
		onError:   s.onError,
	}
	idle := make(chan struct{})
	close(idle)
	d.tail = idle
	if d.onError == nil {
		d.onError = func(err error) {
			d.log.Error("debounced execution failed", logger.Err(err))
		}
	}

	return d, nil
}

// NewThrottle executes fn at most once per wait while calls keep
// arriving, on both edges. Later options override the throttle defaults.
func NewThrottle[A, R any](fn Func[A, R], wait time.Duration, opts ...Option) (*Debouncer[A, R], error) {
	base := []Option{
		WithWait(wait),
		WithLeading(true),
		WithTrailing(true),
		WithMaxWait(wait),
	}
	return New(fn, append(base, opts...)...)
}

// Call records a trigger with args. It returns the result of the
// execution it started, if any, and otherwise the last stored result.
// Only a Call that starts an execution waits, and only for that
// execution and any still running ahead of it.
func (d *Debouncer[A, R]) Call(args A) (R, error) {
	d.mu.Lock()
	e := d.call(args)
	res := d.result
	d.mu.Unlock()

	if e == nil {
		return res, nil
	}
	return d.run(e)
}

func (d *Debouncer[A, R]) call(args A) *execution[A] {
	now := d.now()
	isInvoking := d.shouldInvoke(now)

	d.lastArgs = args
	d.hasArgs = true
	d.lastCallTime = now
	d.called = true

	if isInvoking {
		if d.timer == nil {
			return d.leadingEdge(now)
		}
		if d.maxing {
			// Calls keep landing inside the wait but the max wait passed
			// before the timer could observe it.
			d.startTimer(d.wait)
			return d.invoke(now)
		}
	}
	if d.timer == nil {
		d.startTimer(d.wait)
	}
	return nil
}

// Cancel drops pending work. No execution starts after Cancel returns
// until the next Call; one already running is left to finish.
func (d *Debouncer[A, R]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.clearTimer()
	d.clearArgs()
	d.lastInvokeTime = time.Time{}
	d.lastCallTime = time.Time{}
	d.called = false
	d.epoch++
}

// Flush runs the trailing edge now if a cycle is pending. It returns
// once every execution started so far has finished.
func (d *Debouncer[A, R]) Flush() (R, error) {
	d.mu.Lock()
	var e *execution[A]
	if d.timer != nil {
		e = d.trailingEdge(d.now())
	}
	tail := d.tail
	d.mu.Unlock()

	if e != nil {
		return d.run(e)
	}

	<-tail
	return d.Result(), nil
}

// Pending reports whether a cycle is in progress. It never waits for a
// running execution.
func (d *Debouncer[A, R]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Result returns the value of the last successful execution.
func (d *Debouncer[A, R]) Result() R {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

func (d *Debouncer[A, R]) now() time.Time {
	if d.useFrames {
		return d.frames.Now()
	}
	return d.delay.Now()
}

func (d *Debouncer[A, R]) shouldInvoke(now time.Time) bool {
	if !d.called {
		return true
	}
	sinceCall := now.Sub(d.lastCallTime)
	sinceInvoke := now.Sub(d.lastInvokeTime)

	// A negative sinceCall means the clock went backwards.
	return sinceCall >= d.wait || sinceCall < 0 || (d.maxing && sinceInvoke >= d.maxWait)
}

func (d *Debouncer[A, R]) remainingWait(now time.Time) time.Duration {
	remaining := d.wait - now.Sub(d.lastCallTime)
	if d.maxing {
		remaining = min(remaining, d.maxWait-now.Sub(d.lastInvokeTime))
	}
	return remaining
}

func (d *Debouncer[A, R]) leadingEdge(now time.Time) *execution[A] {
	d.log.Debug("leading edge", logger.Bool("leading", d.leading))

	d.lastInvokeTime = now
	d.startTimer(d.wait)
	if d.leading {
		return d.invoke(now)
	}
	return nil
}

func (d *Debouncer[A, R]) trailingEdge(now time.Time) *execution[A] {
	d.clearTimer()

	if d.trailing && d.hasArgs {
		d.log.Debug("trailing edge")
		return d.invoke(now)
	}
	d.clearArgs()
	return nil
}

// execution is an invocation decided under mu and run after mu is
// released. Executions run one at a time in the order they were decided.
type execution[A any] struct {
	args  A
	epoch uint64
	prev  <-chan struct{}
	done  chan struct{}
}

// invoke consumes the pending args, so a failing execution is never
// retried.
func (d *Debouncer[A, R]) invoke(now time.Time) *execution[A] {
	e := &execution[A]{
		args:  d.lastArgs,
		epoch: d.epoch,
		prev:  d.tail,
		done:  make(chan struct{}),
	}
	d.tail = e.done
	d.clearArgs()
	d.lastInvokeTime = now
	return e
}

// run waits for the executions ahead of e, then calls fn without holding
// mu. The stored result only changes on success. An execution queued
// behind a Cancel is dropped.
func (d *Debouncer[A, R]) run(e *execution[A]) (R, error) {
	defer close(e.done)
	<-e.prev

	d.mu.Lock()
	if e.epoch != d.epoch {
		res := d.result
		d.mu.Unlock()
		return res, nil
	}
	d.mu.Unlock()

	res, err := d.fn(e.args)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		return d.result, err
	}
	d.result = res
	return res, nil
}

func (d *Debouncer[A, R]) timerExpired(gen uint64) {
	if err := d.expire(gen); err != nil {
		d.onError(err)
	}
}

func (d *Debouncer[A, R]) expire(gen uint64) error {
	d.mu.Lock()
	e := d.expired(gen)
	d.mu.Unlock()

	if e == nil {
		return nil
	}
	_, err := d.run(e)
	return err
}

func (d *Debouncer[A, R]) expired(gen uint64) *execution[A] {
	// The timer was stopped or replaced while this callback was in flight.
	if d.timer == nil || gen != d.gen {
		return nil
	}

	now := d.now()
	if d.shouldInvoke(now) {
		return d.trailingEdge(now)
	}

	remaining := d.remainingWait(now)
	d.log.Debug("timer rescheduled", logger.Duration("remaining", remaining))
	d.startTimer(remaining)
	return nil
}

func (d *Debouncer[A, R]) startTimer(delay time.Duration) {
	d.clearTimer()

	d.gen++
	gen := d.gen
	callback := func() { d.timerExpired(gen) }

	if d.useFrames {
		d.timer = d.frames.ScheduleFrame(callback)
		return
	}
	d.timer = d.delay.Schedule(delay, callback)
}

func (d *Debouncer[A, R]) clearTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer[A, R]) clearArgs() {
	var zero A
	d.lastArgs = zero
	d.hasArgs = false
}
