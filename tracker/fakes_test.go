package tracker

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

const (
	testToken = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	testTo    = "0x28C6c06298d514Db089934071355E5743bf21d60"
	testFrom  = "0x1111111111111111111111111111111111111111"
)

// stubDecoder treats the call data as a lookup key.
type stubDecoder struct {
	calls map[string]Call
}

func (d *stubDecoder) DecodeCall(data []byte) (Call, bool) {
	c, ok := d.calls[hex.EncodeToString(data)]
	return c, ok
}

func transferData(d *stubDecoder, key string, method types.Method, raw int64) []byte {
	data := []byte(key)
	d.calls[hex.EncodeToString(data)] = Call{Method: method, To: testTo, Amount: big.NewInt(raw)}
	return data
}

type result struct {
	conf *Confirmation
	err  error
}

// stubConfirmer blocks each hash until the test resolves it.
type stubConfirmer struct {
	mu      sync.Mutex
	pending map[string]chan result
}

func newStubConfirmer() *stubConfirmer {
	return &stubConfirmer{pending: make(map[string]chan result)}
}

func (c *stubConfirmer) ch(hash string) chan result {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[hash]
	if !ok {
		ch = make(chan result, 1)
		c.pending[hash] = ch
	}
	return ch
}

func (c *stubConfirmer) AwaitConfirmation(ctx context.Context, hash string) (*Confirmation, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-c.ch(hash):
		return r.conf, r.err
	}
}

func (c *stubConfirmer) confirm(hash string, conf Confirmation) {
	c.ch(hash) <- result{conf: &conf}
}

func (c *stubConfirmer) drop(hash string) {
	c.ch(hash) <- result{err: errors.New("not found")}
}

type memorySink struct {
	mu   sync.Mutex
	rows []types.Row
	err  error
}

func (s *memorySink) WriteRow(_ context.Context, row types.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *memorySink) Rows() []types.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Row(nil), s.rows...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// chanSource forwards whatever is pushed on cands, then returns err.
type chanSource struct {
	cands chan Candidate
	err   error
	calls int
	mu    sync.Mutex
}

func (s *chanSource) SubscribeCandidates(ctx context.Context, handler func(Candidate)) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-s.cands:
			if !ok {
				return s.err
			}
			handler(c)
		}
	}
}

func (s *chanSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
