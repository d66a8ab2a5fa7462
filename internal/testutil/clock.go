package testutil

import (
	"sync"
	"time"

	"github.com/musher-dev/wdlplay/internal/eventloop"
)

// FakeScheduler is an eventloop.Scheduler driven by Advance instead of the
// wall clock.
type FakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *FakeScheduler
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}

	t.stopped = true

	return true
}

var _ eventloop.Scheduler = (*FakeScheduler)(nil)

// AfterFunc arms a timer that fires once Advance moves past d.
func (s *FakeScheduler) AfterFunc(d time.Duration, f func()) eventloop.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &fakeTimer{s: s, at: s.now + d, fn: f}
	s.timers = append(s.timers, t)

	return t
}

// Advance moves the clock forward and fires due timers in deadline order.
func (s *FakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d

	var due []*fakeTimer

	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.at <= s.now {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for i := 1; i < len(due); i++ {
		for j := i; j > 0 && due[j].at < due[j-1].at; j-- {
			due[j], due[j-1] = due[j-1], due[j]
		}
	}

	for _, t := range due {
		t.fn()
	}
}

// Armed counts timers that have neither fired nor been stopped.
func (s *FakeScheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0

	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}

	return n
}
