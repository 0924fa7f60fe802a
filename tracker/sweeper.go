package tracker

import (
	"context"
	"math"
	"time"
)

func (t *Tracker) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				t.logger.Info("evicted stale pending txs", "count", n, "inFlight", t.registry.Len())
			}
		}
	}
}

// Sweep drops every record older than the TTL and returns how many it removed.
// Evicted records produce no outcome and leave the aggregate untouched; a
// watcher still running for them may report later.
func (t *Tracker) Sweep() int {
	now := t.now()
	evicted := 0

	for _, entry := range t.registry.SnapshotAges(now) {
		if entry.Age <= t.ttl {
			continue
		}
		// the watcher may have won the race
		if _, ok := t.registry.RemoveIfPresent(entry.Hash, entry.Generation); !ok {
			continue
		}
		evicted++
		t.metrics.ObserveEvicted(t.registry.Len())
		t.logger.Debug("evicted", "hash", entry.Hash, "age", entry.Age)
	}

	return evicted
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
