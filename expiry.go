package periscope

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// scheduler owns one idle-deadline timer per filter id. Arming replaces any
// existing timer; firing invokes the expire callback at most once per arm
// cycle. A firing that lost the race against a rearm or cancel is detected
// by generation and ignored.
type scheduler struct {
	clock  clockwork.Clock
	ttl    time.Duration
	expire func(id uint64)

	mu     sync.Mutex
	timers map[uint64]*armedTimer
}

type armedTimer struct {
	timer clockwork.Timer
	gen   uint64
}

func newScheduler(clock clockwork.Clock, ttl time.Duration, expire func(id uint64)) *scheduler {
	return &scheduler{
		clock:  clock,
		ttl:    ttl,
		expire: expire,
		timers: make(map[uint64]*armedTimer),
	}
}

// arm cancels any existing timer for id and starts a fresh idle deadline.
func (s *scheduler) arm(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var gen uint64 = 1
	if at, ok := s.timers[id]; ok {
		at.timer.Stop()
		gen = at.gen + 1
	}
	at := &armedTimer{gen: gen}
	at.timer = s.clock.AfterFunc(s.ttl, func() {
		s.fire(id, gen)
	})
	s.timers[id] = at
}

// fire runs when a deadline elapses. Stale firings (the timer was replaced
// or cancelled after scheduling) are dropped.
func (s *scheduler) fire(id, gen uint64) {
	s.mu.Lock()
	at, ok := s.timers[id]
	if !ok || at.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.mu.Unlock()

	s.expire(id)
}

// cancel stops and removes the timer for id, if any.
func (s *scheduler) cancel(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at, ok := s.timers[id]; ok {
		at.timer.Stop()
		delete(s.timers, id)
	}
}

// armed reports whether id currently has a pending deadline.
func (s *scheduler) armed(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

// stopAll cancels every pending deadline.
func (s *scheduler) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, at := range s.timers {
		at.timer.Stop()
		delete(s.timers, id)
	}
}
