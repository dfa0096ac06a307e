// Package debounce delays an action until its watched values have stopped
// changing for a quiet period.
package debounce

import (
	"reflect"
	"sync"
	"time"
)

type absent struct{}

// Absent marks a watched value as missing (for example, no active post).
// Scheduling with an absent or nil watched value arms nothing and cancels
// whatever was pending.
var Absent any = absent{}

func isAbsent(v any) bool {
	return v == nil || v == Absent
}

// Scheduler arms at most one timer at a time. A timer is (re)armed only when
// the watched values differ from those of the previous Schedule call, and
// the action invoked on fire is always the one supplied by the latest call.
type Scheduler struct {
	clock Clock

	mu      sync.Mutex
	action  func()
	watched []any
	delay   time.Duration
	seen    bool
	timer   Timer
	seq     uint64
	stopped bool
}

// New returns a scheduler driven by clock. A nil clock uses the real clock.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{clock: clock}
}

// Schedule records action as the one to run and, if any watched value
// changed since the previous call, replaces the pending timer with a fresh
// one of the given delay.
func (s *Scheduler) Schedule(action func(), delay time.Duration, watched ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.action = action

	changed := !s.seen || s.delay != delay || !reflect.DeepEqual(s.watched, watched)
	s.seen = true
	s.delay = delay
	s.watched = append(s.watched[:0:0], watched...)

	for _, v := range watched {
		if isAbsent(v) {
			s.cancelLocked()
			return
		}
	}
	if !changed {
		return
	}

	s.cancelLocked()
	seq := s.seq
	s.timer = s.clock.AfterFunc(delay, func() { s.fire(seq) })
}

func (s *Scheduler) fire(seq uint64) {
	s.mu.Lock()
	if s.stopped || seq != s.seq || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	action := s.action
	s.mu.Unlock()

	if action != nil {
		action()
	}
}

// Cancel clears the pending timer, if any. Safe to call at any time.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *Scheduler) cancelLocked() {
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Forget cancels the pending timer and drops the recorded watched values, so
// the next Schedule call arms a timer whatever its values.
func (s *Scheduler) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.seen = false
	s.watched = nil
}

// Stop tears the scheduler down: the pending timer is cancelled and later
// Schedule calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.stopped = true
	s.action = nil
}

// Pending reports whether a timer is armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
