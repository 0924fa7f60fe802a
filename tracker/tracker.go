package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lightlink-network/ll-whale-tracker/metrics"
	"github.com/lightlink-network/ll-whale-tracker/types"
)

const (
	DefaultTTL           = 10 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Tracker follows large pending transfers from first sighting to a terminal
// outcome. It owns the registry and the aggregate; watchers and the sweeper
// share them by reference.
type Tracker struct {
	classifier *Classifier
	registry   *Registry
	aggregator *Aggregator
	confirmer  Confirmer
	sink       Sink
	metrics    *metrics.Metrics
	logger     *slog.Logger

	ttl            time.Duration
	sweepInterval  time.Duration
	reconnectDelay time.Duration
	onSinkError    func(types.Row, error)
	now            func() time.Time

	watchers sync.WaitGroup
}

type Opts struct {
	TokenContract string
	DecimalScale  int32
	Threshold     decimal.Decimal

	// TTL is how long an unresolved record may stay tracked.
	TTL           time.Duration
	SweepInterval time.Duration
	// ReconnectDelay is the pause before resubscribing after the candidate
	// source fails. Zero makes Run return the subscription error instead.
	ReconnectDelay time.Duration

	Decoder   Decoder
	Labels    Labeler
	Confirmer Confirmer
	Sink      Sink

	// OnSinkError is called when a row could not be persisted.
	OnSinkError func(types.Row, error)
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Clock       func() time.Time
}

func New(opts Opts) (*Tracker, error) {
	if opts.Decoder == nil {
		return nil, errors.New("tracker: decoder is required")
	}
	if opts.Confirmer == nil {
		return nil, errors.New("tracker: confirmer is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("tracker: sink is required")
	}
	if opts.TokenContract == "" {
		return nil, errors.New("tracker: token contract is required")
	}
	if opts.Threshold.IsNegative() {
		return nil, fmt.Errorf("tracker: threshold must not be negative, got %s", opts.Threshold)
	}

	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Tracker{
		classifier: NewClassifier(ClassifierOpts{
			TokenContract: opts.TokenContract,
			DecimalScale:  opts.DecimalScale,
			Threshold:     opts.Threshold,
			Decoder:       opts.Decoder,
			Labels:        opts.Labels,
		}),
		registry:       NewRegistry(),
		aggregator:     NewAggregator(),
		confirmer:      opts.Confirmer,
		sink:           opts.Sink,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		ttl:            opts.TTL,
		sweepInterval:  opts.SweepInterval,
		reconnectDelay: opts.ReconnectDelay,
		onSinkError:    opts.OnSinkError,
		now:            opts.Clock,
	}, nil
}

// Run starts the sweeper and consumes candidates from src until ctx is
// cancelled. Watchers already spawned keep running across subscription
// failures.
func (t *Tracker) Run(ctx context.Context, src Source) error {
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	sweeperDone := make(chan struct{})
	go func() {
		t.runSweeper(sweepCtx)
		close(sweeperDone)
	}()
	defer func() {
		stopSweeper()
		<-sweeperDone
	}()

	t.logger.Info("starting tracker",
		"ttl", t.ttl,
		"sweepInterval", t.sweepInterval)

	for {
		err := src.SubscribeCandidates(ctx, func(c Candidate) {
			t.HandleCandidate(ctx, c)
		})
		if ctx.Err() != nil {
			t.logger.Info("shutting down tracker", "inFlight", t.registry.Len())
			return nil
		}
		if err == nil {
			err = errors.New("subscription closed")
		}
		t.metrics.ObserveSubscriptionError()

		if t.reconnectDelay <= 0 {
			return fmt.Errorf("failed to consume candidates: %w", err)
		}

		t.logger.Error("candidate subscription failed, reconnecting",
			"error", err,
			"delay", t.reconnectDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(t.reconnectDelay):
		}
	}
}

// HandleCandidate classifies c and, when it qualifies and is not yet tracked,
// registers it and spawns its watcher. It reports whether a watcher was
// started.
func (t *Tracker) HandleCandidate(ctx context.Context, c Candidate) bool {
	t.metrics.ObserveCandidate()

	rec, reason := t.classifier.Classify(c, t.now())
	if reason != Accepted {
		t.metrics.ObserveRejection(string(reason))
		return false
	}

	rec, ok := t.registry.InsertIfAbsent(rec)
	if !ok {
		t.logger.Debug("already tracking", "hash", c.Hash)
		return false
	}
	t.aggregator.RecordSeen()
	t.metrics.ObserveTracked(t.registry.Len())

	t.logger.Info("tracking large pending tx",
		"hash", rec.Hash,
		"method", rec.Method,
		"amount", rec.Amount.String(),
		"from", rec.From,
		"to", rec.To,
		"tag", rec.Tag,
		"seen", t.aggregator.Snapshot().Seen)

	t.watchers.Add(1)
	go func() {
		defer t.watchers.Done()
		t.watch(ctx, rec)
	}()

	return true
}

// Wait blocks until every spawned watcher has returned.
func (t *Tracker) Wait() {
	t.watchers.Wait()
}

func (t *Tracker) Stats() Stats {
	return t.aggregator.Snapshot()
}

// InFlight is the number of records currently tracked.
func (t *Tracker) InFlight() int {
	return t.registry.Len()
}

// IsTracked reports whether hash was taken on at any point in this run. Sources
// use it to skip fetching redelivered hashes.
func (t *Tracker) IsTracked(hash string) bool {
	return t.registry.Claimed(hash)
}
