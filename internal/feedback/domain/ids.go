package domain

import (
	"strconv"
	"sync"
	"time"
)

// Clock returns the current time.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// Sequence hands out time-derived ids. Successive calls always return a
// later millisecond, so ids are unique and timestamps strictly increase
// even when the clock has not moved.
type Sequence struct {
	mu    sync.Mutex
	clock Clock
	last  time.Time
}

// NewSequence creates a sequence over clock. A nil clock uses SystemClock.
func NewSequence(clock Clock) *Sequence {
	if clock == nil {
		clock = SystemClock
	}
	return &Sequence{clock: clock}
}

var processSequence = NewSequence(nil)

// ProcessSequence is shared by every board in the process.
func ProcessSequence() *Sequence { return processSequence }

// Next returns a timestamp and the id derived from it.
func (s *Sequence) Next() (time.Time, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().Truncate(time.Millisecond)
	if !now.After(s.last) {
		now = s.last.Add(time.Millisecond)
	}
	s.last = now
	return now, strconv.FormatInt(now.UnixMilli(), 10)
}
