package runq

import "log/slog"

// Options holds configuration options for the [Runner].
type Options struct {
	Clock    *TickClock
	Logger   *slog.Logger
	Observer func(StatusEvent)
}

// Option is a function that configures [Options].
type Option func(*Options)

// WithClock makes the [Runner] take its ticks from c instead of starting its
// own ticker. The runner does not start c.
func WithClock(c *TickClock) Option {
	return func(o *Options) {
		o.Clock = c
	}
}

// WithLogger sets the logger the [Runner] reports events to.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithObserver registers fn to be called for every event, ticks included,
// from the goroutine running [Runner.Run]. Events are queued without bound,
// so fn may call Add, Remove and AdjustPriority; a slow fn only delays
// logging.
func WithObserver(fn func(StatusEvent)) Option {
	return func(o *Options) {
		o.Observer = fn
	}
}
