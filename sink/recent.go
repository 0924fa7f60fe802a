package sink

import (
	"context"
	"sync"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

const DefaultRecentSize = 50

// Recent keeps the last rows in memory for the dashboard.
type Recent struct {
	mu   sync.RWMutex
	rows []types.Row
	next int
	full bool
}

func NewRecent(size int) *Recent {
	if size <= 0 {
		size = DefaultRecentSize
	}
	return &Recent{rows: make([]types.Row, size)}
}

func (r *Recent) WriteRow(_ context.Context, row types.Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rows[r.next] = row
	r.next = (r.next + 1) % len(r.rows)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

// Latest returns up to n rows, newest first. n <= 0 returns everything held.
func (r *Recent) Latest(n int) []types.Row {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := r.next
	if r.full {
		count = len(r.rows)
	}
	if n <= 0 || n > count {
		n = count
	}

	out := make([]types.Row, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.rows)) % len(r.rows)
		out = append(out, r.rows[idx])
	}
	return out
}
