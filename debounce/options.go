package debounce

import (
	"time"

	"github.com/vcnkl/settle/logger"
)

type Option func(*settings)

type settings struct {
	wait     time.Duration
	waitSet  bool
	maxWait  time.Duration
	maxing   bool
	leading  bool
	trailing bool

	delay   DelayScheduler
	frames  FrameScheduler
	log     logger.Logger
	onError func(error)
}

func defaultSettings() *settings {
	return &settings{trailing: true}
}

// WithWait sets the quiet period. Negative values are treated as zero.
// Setting a wait, even zero, disables frame scheduling.
func WithWait(d time.Duration) Option {
	return func(s *settings) {
		s.wait = max(d, 0)
		s.waitSet = true
	}
}

// WithLeading executes on the first trigger of a cycle.
func WithLeading(enabled bool) Option {
	return func(s *settings) {
		s.leading = enabled
	}
}

// WithTrailing executes when a cycle's quiet period ends. On by default.
func WithTrailing(enabled bool) Option {
	return func(s *settings) {
		s.trailing = enabled
	}
}

// WithMaxWait bounds how long execution can be deferred while triggers
// keep arriving. It is raised to the wait if smaller.
func WithMaxWait(d time.Duration) Option {
	return func(s *settings) {
		s.maxWait = max(d, 0)
		s.maxing = true
	}
}

// WithScheduler replaces the real-clock delay scheduler.
func WithScheduler(delay DelayScheduler) Option {
	return func(s *settings) {
		s.delay = delay
	}
}

// WithFrameScheduler makes frame scheduling available. It is used only
// when no wait was set.
func WithFrameScheduler(frames FrameScheduler) Option {
	return func(s *settings) {
		s.frames = frames
	}
}

func WithLogger(log logger.Logger) Option {
	return func(s *settings) {
		s.log = log
	}
}

// WithErrorHandler receives errors of executions started by a timer,
// where there is no caller to return them to.
func WithErrorHandler(fn func(error)) Option {
	return func(s *settings) {
		s.onError = fn
	}
}
