package tracker

import (
	"sync"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

// Stats is a point-in-time copy of the aggregate counters.
type Stats struct {
	Seen     uint64
	Mined    uint64
	Reverted uint64
	Dropped  uint64
	SumDelay float64
	MaxDelay float64
}

// Done is the number of terminal outcomes recorded.
func (s Stats) Done() uint64 {
	return s.Mined + s.Reverted + s.Dropped
}

// AvgDelay averages the accumulated delay over every terminal outcome,
// including dropped ones which carry no delay.
func (s Stats) AvgDelay() float64 {
	done := s.Done()
	if done == 0 {
		return 0
	}
	return s.SumDelay / float64(done)
}

// Aggregator keeps process-wide counters. One mutex covers all fields so a
// snapshot is always internally consistent.
type Aggregator struct {
	mu    sync.Mutex
	stats Stats
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

func (a *Aggregator) RecordSeen() {
	a.mu.Lock()
	a.stats.Seen++
	a.mu.Unlock()
}

// RecordTerminal counts one terminal outcome. delay is nil when the outcome
// has no timing (DROPPED).
func (a *Aggregator) RecordTerminal(status types.Status, delay *float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch status {
	case types.Mined:
		a.stats.Mined++
	case types.Reverted:
		a.stats.Reverted++
	case types.Dropped:
		a.stats.Dropped++
	}

	if delay != nil {
		a.stats.SumDelay += *delay
		if *delay > a.stats.MaxDelay {
			a.stats.MaxDelay = *delay
		}
	}
}

func (a *Aggregator) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
