package ethereum

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEth serves the two eth_ methods the confirmer uses.
type fakeEth struct {
	mu       sync.Mutex
	receipts map[common.Hash]map[string]interface{}
	calls    int
}

func (f *fakeEth) GetTransactionReceipt(hash common.Hash) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.receipts[hash], nil
}

func (f *fakeEth) GetTransactionByHash(hash common.Hash) (map[string]interface{}, error) {
	return nil, nil
}

func newTestClient(t *testing.T, svc *fakeEth, opts ClientOpts) *Client {
	t.Helper()

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", svc))
	t.Cleanup(server.Stop)

	c := newClient(rpc.DialInProc(server), opts)
	t.Cleanup(c.Close)
	return c
}

func receiptJSON(hash common.Hash, status string) map[string]interface{} {
	return map[string]interface{}{
		"type":              "0x2",
		"status":            status,
		"cumulativeGasUsed": "0x5208",
		"logsBloom":         "0x" + zeros(512),
		"logs":              []interface{}{},
		"transactionHash":   hash.Hex(),
		"gasUsed":           "0x5208",
		"effectiveGasPrice": "0x2cb417800",
		"blockHash":         common.HexToHash("0x01").Hex(),
		"blockNumber":       "0x64",
		"transactionIndex":  "0x0",
	}
}

func zeros(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}

func TestAwaitConfirmationMined(t *testing.T) {
	hash := common.HexToHash("0xabc")
	svc := &fakeEth{receipts: map[common.Hash]map[string]interface{}{
		hash: receiptJSON(hash, "0x1"),
	}}
	c := newTestClient(t, svc, ClientOpts{PollInterval: time.Millisecond})

	conf, err := c.AwaitConfirmation(context.Background(), hash.Hex())
	require.NoError(t, err)
	assert.True(t, conf.Success)
	assert.Equal(t, uint64(100), conf.BlockNumber)
	assert.Equal(t, "21000", conf.GasUsed)
	assert.Equal(t, "12", conf.EffectiveFeeRate)
}

func TestAwaitConfirmationReverted(t *testing.T) {
	hash := common.HexToHash("0xdef")
	svc := &fakeEth{receipts: map[common.Hash]map[string]interface{}{
		hash: receiptJSON(hash, "0x0"),
	}}
	c := newTestClient(t, svc, ClientOpts{PollInterval: time.Millisecond})

	conf, err := c.AwaitConfirmation(context.Background(), hash.Hex())
	require.NoError(t, err)
	assert.False(t, conf.Success)
}

func TestAwaitConfirmationDropped(t *testing.T) {
	svc := &fakeEth{}
	c := newTestClient(t, svc, ClientOpts{PollInterval: time.Millisecond, DropAfterMisses: 3})

	_, err := c.AwaitConfirmation(context.Background(), common.HexToHash("0x123").Hex())
	require.ErrorIs(t, err, ErrDropped)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, 3, svc.calls)
}

func TestAwaitConfirmationCancelled(t *testing.T) {
	svc := &fakeEth{}
	c := newTestClient(t, svc, ClientOpts{PollInterval: time.Hour, DropAfterMisses: 100})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.AwaitConfirmation(ctx, common.HexToHash("0x123").Hex())
	assert.ErrorIs(t, err, context.Canceled)
}
