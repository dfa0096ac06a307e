package editor

import (
	"log/slog"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/debounce"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAutosaveDelay sets the quiet period before an autosave fires.
func WithAutosaveDelay(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithClock drives the autosave timer and save timestamps from clock.
func WithClock(clock debounce.Clock) Option {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func defaultDelay() time.Duration {
	return time.Duration(config.DefaultAutosaveDelayMs) * time.Millisecond
}
