package tracker

import (
	"sync"
	"time"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

// Registry holds the in-flight records keyed by transaction hash. A hash
// stays claimed after it leaves the registry, so a redelivered hash is never
// tracked twice in one run even when its first record was evicted.
type Registry struct {
	mu      sync.RWMutex
	records map[string]PendingRecord
	claimed map[string]struct{}
	nextGen uint64
}

// Age is one registry entry as seen by the sweeper.
type Age struct {
	Hash       string
	Generation uint64
	Age        time.Duration
}

func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]PendingRecord),
		claimed: make(map[string]struct{}),
	}
}

// InsertIfAbsent stores rec unless its hash was claimed before. The stored
// record, stamped with a fresh generation, is returned on success.
func (r *Registry) InsertIfAbsent(rec PendingRecord) (PendingRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.claimed[rec.Hash]; ok {
		return PendingRecord{}, false
	}

	r.nextGen++
	rec.State = types.Pending
	rec.Generation = r.nextGen
	r.records[rec.Hash] = rec
	r.claimed[rec.Hash] = struct{}{}
	return rec, true
}

// RemoveIfPresent atomically removes the record for hash inserted as
// generation gen. Only one caller ever observes true for a given insertion.
func (r *Registry) RemoveIfPresent(hash string, gen uint64) (PendingRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[hash]
	if !ok || rec.Generation != gen {
		return PendingRecord{}, false
	}
	delete(r.records, hash)
	rec.State = types.Resolved
	return rec, true
}

// Contains reports whether hash is currently tracked.
func (r *Registry) Contains(hash string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[hash]
	return ok
}

// Claimed reports whether hash was ever inserted.
func (r *Registry) Claimed(hash string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.claimed[hash]
	return ok
}

// SnapshotAges lists every tracked hash with its age relative to now.
func (r *Registry) SnapshotAges(now time.Time) []Age {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Age, 0, len(r.records))
	for hash, rec := range r.records {
		out = append(out, Age{Hash: hash, Generation: rec.Generation, Age: now.Sub(rec.FirstSeenAt)})
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
