// Package stats tracks server uptime and the number of questions served.
package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Snapshot is a point-in-time view of the server counters.
type Snapshot struct {
	Uptime        time.Duration
	TotalRequests int64
	StartedAt     time.Time
	Now           time.Time
}

// Service counts query requests since start. Safe for concurrent use.
type Service struct {
	started  time.Time
	requests atomic.Int64
	now      func() time.Time
}

// New creates a Service that starts counting now.
func New() *Service {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Service {
	return &Service{started: now(), now: now}
}

// RecordRequest counts one query request.
func (s *Service) RecordRequest() {
	s.requests.Add(1)
}

// Snapshot returns the current counters.
func (s *Service) Snapshot() Snapshot {
	now := s.now()
	return Snapshot{
		Uptime:        now.Sub(s.started),
		TotalRequests: s.requests.Load(),
		StartedAt:     s.started,
		Now:           now,
	}
}

// FormatUptime renders a duration as "H:MM:SS", prefixed with "N day(s), " past 24h.
// Sub-second precision is dropped.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	rem := total % 86400
	clock := fmt.Sprintf("%d:%02d:%02d", rem/3600, rem%3600/60, rem%60)
	switch days {
	case 0:
		return clock
	case 1:
		return "1 day, " + clock
	default:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
}
