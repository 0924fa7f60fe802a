package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lightlink-network/ll-whale-tracker/tracker"
	"github.com/lightlink-network/ll-whale-tracker/types"
)

// Retry retries a failing sink a bounded number of times with a fixed backoff.
type Retry struct {
	next     tracker.Sink
	name     string
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

type RetryOpts struct {
	Name     string
	Attempts int
	Backoff  time.Duration
	Logger   *slog.Logger
}

func NewRetry(next tracker.Sink, opts RetryOpts) *Retry {
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Retry{
		next:     next,
		name:     opts.Name,
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
		logger:   opts.Logger,
	}
}

func (r *Retry) WriteRow(ctx context.Context, row types.Row) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err = r.next.WriteRow(ctx, row); err == nil {
			return nil
		}
		if attempt == r.attempts {
			break
		}

		r.logger.Warn("sink write failed, retrying",
			"sink", r.name,
			"hash", row.Hash,
			"attempt", attempt,
			"error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", r.name, ctx.Err())
		case <-time.After(r.backoff):
		}
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", r.name, r.attempts, err)
}
