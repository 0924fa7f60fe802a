package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

type harness struct {
	tracker   *Tracker
	decoder   *stubDecoder
	confirmer *stubConfirmer
	sink      *memorySink
	clock     *fakeClock
}

func newHarness(t *testing.T, mutate func(*Opts)) *harness {
	t.Helper()

	h := &harness{
		decoder:   &stubDecoder{calls: map[string]Call{}},
		confirmer: newStubConfirmer(),
		sink:      &memorySink{},
		clock:     &fakeClock{now: time.Unix(1700000000, 0)},
	}
	opts := Opts{
		TokenContract: testToken,
		DecimalScale:  6,
		Threshold:     decimal.NewFromInt(10000),
		TTL:           10 * time.Minute,
		Decoder:       h.decoder,
		Confirmer:     h.confirmer,
		Sink:          h.sink,
		Clock:         h.clock.Now,
	}
	if mutate != nil {
		mutate(&opts)
	}

	tr, err := New(opts)
	require.NoError(t, err)
	h.tracker = tr
	return h
}

func (h *harness) candidate(hash string, raw int64) Candidate {
	return Candidate{
		Hash: hash,
		To:   testToken,
		From: testFrom,
		Data: transferData(h.decoder, hash, types.Transfer, raw),
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Opts{TokenContract: testToken})
	assert.Error(t, err)

	_, err = New(Opts{
		TokenContract: testToken,
		Decoder:       &stubDecoder{},
		Confirmer:     newStubConfirmer(),
		Sink:          &memorySink{},
		Threshold:     decimal.NewFromInt(-1),
	})
	assert.Error(t, err)
}

func TestTrackerMinedOutcome(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.True(t, h.tracker.HandleCandidate(ctx, h.candidate("0xaaa", 25_000_000_000)))
	assert.Equal(t, 1, h.tracker.InFlight())

	h.clock.Advance(5 * time.Second)
	h.confirmer.confirm("0xaaa", Confirmation{Success: true, BlockNumber: 100, GasUsed: "21000", EffectiveFeeRate: "12"})
	h.tracker.Wait()

	rows := h.sink.Rows()
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "0xaaa", row.Hash)
	assert.Equal(t, types.Mined, row.Status)
	assert.Equal(t, types.Transfer, row.Method)
	assert.Equal(t, "25000", row.Amount)
	assert.Equal(t, "100", row.BlockString())
	assert.Equal(t, "5.0", row.DelayString())
	assert.Equal(t, "21000", row.GasUsed)
	assert.Equal(t, "12", row.EffectiveFeeRate)

	s := h.tracker.Stats()
	assert.Equal(t, uint64(1), s.Seen)
	assert.Equal(t, uint64(1), s.Mined)
	assert.Equal(t, 5.0, s.SumDelay)
	assert.Equal(t, 5.0, s.MaxDelay)
	assert.Zero(t, h.tracker.InFlight())
}

func TestTrackerRevertedOutcome(t *testing.T) {
	h := newHarness(t, nil)

	h.tracker.HandleCandidate(context.Background(), h.candidate("0xbbb", 10_000_000_000))
	h.clock.Advance(12340 * time.Millisecond)
	h.confirmer.confirm("0xbbb", Confirmation{Success: false, BlockNumber: 7, GasUsed: "50000", EffectiveFeeRate: "3.5"})
	h.tracker.Wait()

	rows := h.sink.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, types.Reverted, rows[0].Status)
	assert.Equal(t, "12.3", rows[0].DelayString())
	assert.Equal(t, uint64(1), h.tracker.Stats().Reverted)
}

func TestTrackerDroppedOutcome(t *testing.T) {
	h := newHarness(t, nil)

	h.tracker.HandleCandidate(context.Background(), h.candidate("0xccc", 30_000_000_000))
	h.confirmer.drop("0xccc")
	h.tracker.Wait()

	rows := h.sink.Rows()
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, types.Dropped, row.Status)
	assert.Nil(t, row.Block)
	assert.Nil(t, row.DelaySeconds)
	assert.Empty(t, row.BlockString())
	assert.Empty(t, row.DelayString())
	assert.Empty(t, row.GasUsed)
	assert.Empty(t, row.EffectiveFeeRate)

	s := h.tracker.Stats()
	assert.Equal(t, uint64(1), s.Dropped)
	assert.Zero(t, s.SumDelay)
}

func TestTrackerIgnoresDuplicateHash(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.candidate("0xddd", 20_000_000_000)

	require.True(t, h.tracker.HandleCandidate(ctx, c))
	require.False(t, h.tracker.HandleCandidate(ctx, c))
	assert.True(t, h.tracker.IsTracked("0xddd"))

	h.confirmer.confirm("0xddd", Confirmation{Success: true, BlockNumber: 1})
	h.tracker.Wait()

	assert.Len(t, h.sink.Rows(), 1)
	assert.Equal(t, uint64(1), h.tracker.Stats().Seen)
}

func TestTrackerRejectsSmallTransfer(t *testing.T) {
	h := newHarness(t, nil)

	assert.False(t, h.tracker.HandleCandidate(context.Background(), h.candidate("0xeee", 9_999_999_999)))
	assert.Zero(t, h.tracker.InFlight())
	assert.Zero(t, h.tracker.Stats().Seen)
}

func TestSweepEvictsWithoutOutcome(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.tracker.HandleCandidate(ctx, h.candidate("0xfff", 20_000_000_000))

	h.clock.Advance(10 * time.Minute)
	assert.Zero(t, h.tracker.Sweep(), "age equal to TTL is kept")

	h.clock.Advance(time.Second)
	assert.Equal(t, 1, h.tracker.Sweep())
	assert.Zero(t, h.tracker.InFlight())
	assert.True(t, h.tracker.IsTracked("0xfff"), "evicted hash stays claimed")
	assert.Empty(t, h.sink.Rows())

	s := h.tracker.Stats()
	assert.Equal(t, uint64(1), s.Seen)
	assert.Zero(t, s.Done())

	cancel()
	h.tracker.Wait()
	assert.Empty(t, h.sink.Rows(), "cancelled watcher does not emit")
}

func TestLateWatcherAfterEvictionStillEmits(t *testing.T) {
	h := newHarness(t, nil)

	h.tracker.HandleCandidate(context.Background(), h.candidate("0x123", 20_000_000_000))
	h.clock.Advance(11 * time.Minute)
	require.Equal(t, 1, h.tracker.Sweep())

	h.confirmer.confirm("0x123", Confirmation{Success: true, BlockNumber: 42})
	h.tracker.Wait()

	rows := h.sink.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, types.Mined, rows[0].Status)
	assert.Equal(t, "660.0", rows[0].DelayString())
	assert.Equal(t, uint64(1), h.tracker.Stats().Mined)
}

func TestEvictedHashIsNotTrackedTwice(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.candidate("0xdup", 20_000_000_000)

	require.True(t, h.tracker.HandleCandidate(ctx, c))
	h.clock.Advance(11 * time.Minute)
	require.Equal(t, 1, h.tracker.Sweep())

	assert.False(t, h.tracker.HandleCandidate(ctx, c), "redelivered while the first watcher runs")
	assert.Zero(t, h.tracker.InFlight())
	assert.Equal(t, uint64(1), h.tracker.Stats().Seen)

	h.confirmer.confirm("0xdup", Confirmation{Success: true, BlockNumber: 8})
	h.tracker.Wait()

	rows := h.sink.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "660.0", rows[0].DelayString())
	s := h.tracker.Stats()
	assert.Equal(t, uint64(1), s.Mined)
	assert.Equal(t, 660.0, s.MaxDelay)

	assert.False(t, h.tracker.HandleCandidate(ctx, c), "redelivered after resolution")
	assert.Len(t, h.sink.Rows(), 1)
}

func TestDroppedHashIsNotTrackedAgain(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.candidate("0xagain", 20_000_000_000)

	require.True(t, h.tracker.HandleCandidate(ctx, c))
	h.confirmer.drop("0xagain")
	h.tracker.Wait()
	require.Zero(t, h.tracker.InFlight())

	assert.True(t, h.tracker.IsTracked("0xagain"))
	assert.False(t, h.tracker.HandleCandidate(ctx, c))
	h.tracker.Wait()

	rows := h.sink.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, types.Dropped, rows[0].Status)
	assert.Equal(t, uint64(1), h.tracker.Stats().Seen)
}

func TestExactlyOneOutcomePerHashUnderConcurrency(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	hashes := []string{"0x01", "0x02", "0x03", "0x04", "0x05"}
	cands := make([]Candidate, len(hashes))
	for i, hash := range hashes {
		cands[i] = h.candidate(hash, 20_000_000_000)
	}

	var started atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		for _, c := range cands {
			wg.Add(1)
			go func(c Candidate) {
				defer wg.Done()
				if h.tracker.HandleCandidate(ctx, c) {
					started.Add(1)
				}
			}(c)
		}
	}
	wg.Wait()
	require.Equal(t, int32(len(hashes)), started.Load())

	h.clock.Advance(11 * time.Minute)
	for _, hash := range hashes {
		wg.Add(2)
		go func(hash string) {
			defer wg.Done()
			h.confirmer.confirm(hash, Confirmation{Success: true, BlockNumber: 9})
		}(hash)
		go func() {
			defer wg.Done()
			h.tracker.Sweep()
		}()
	}
	wg.Wait()
	h.tracker.Wait()

	seen := map[string]int{}
	for _, row := range h.sink.Rows() {
		seen[row.Hash]++
	}
	for _, hash := range hashes {
		assert.Equal(t, 1, seen[hash], hash)
	}
	assert.Equal(t, uint64(len(hashes)), h.tracker.Stats().Mined)
	assert.Zero(t, h.tracker.InFlight())
}

func TestSinkFailureIsReported(t *testing.T) {
	var reported []types.Row
	var mu sync.Mutex
	h := newHarness(t, func(o *Opts) {
		o.OnSinkError = func(row types.Row, err error) {
			mu.Lock()
			reported = append(reported, row)
			mu.Unlock()
		}
	})
	h.sink.err = errors.New("disk full")

	h.tracker.HandleCandidate(context.Background(), h.candidate("0x999", 20_000_000_000))
	h.confirmer.confirm("0x999", Confirmation{Success: true, BlockNumber: 3})
	h.tracker.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 1)
	assert.Equal(t, "0x999", reported[0].Hash)
	assert.Equal(t, uint64(1), h.tracker.Stats().Mined, "aggregate still counts the outcome")
}

func TestRunReturnsSubscriptionError(t *testing.T) {
	h := newHarness(t, nil)
	src := &chanSource{cands: make(chan Candidate, 1), err: errors.New("socket closed")}
	src.cands <- h.candidate("0x777", 20_000_000_000)
	close(src.cands)

	err := h.tracker.Run(context.Background(), src)
	require.Error(t, err)
	assert.ErrorContains(t, err, "socket closed")
	assert.True(t, h.tracker.IsTracked("0x777"))

	h.confirmer.confirm("0x777", Confirmation{Success: true, BlockNumber: 5})
	h.tracker.Wait()
	assert.Len(t, h.sink.Rows(), 1)
}

func TestRunReconnects(t *testing.T) {
	h := newHarness(t, func(o *Opts) {
		o.ReconnectDelay = 5 * time.Millisecond
	})
	src := &chanSource{cands: make(chan Candidate), err: errors.New("socket closed")}
	close(src.cands)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.tracker.Run(ctx, src) }()

	require.Eventually(t, func() bool { return src.Calls() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
