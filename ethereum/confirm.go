package ethereum

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lightlink-network/ll-whale-tracker/tracker"
)

var (
	// ErrDropped means the node forgot the transaction without mining it.
	ErrDropped = errors.New("transaction dropped from mempool")
	// ErrConfirmTimeout means the transaction was still pending when the
	// confirmation window closed.
	ErrConfirmTimeout = errors.New("timed out waiting for confirmation")
)

var _ tracker.Confirmer = &Client{}

// AwaitConfirmation polls for the receipt of hash until it is mined, the
// node no longer knows it, or ConfirmTimeout passes.
func (c *Client) AwaitConfirmation(ctx context.Context, hash string) (*tracker.Confirmation, error) {
	txHash := common.HexToHash(hash)
	deadline := time.Now().Add(c.Opts.ConfirmTimeout)

	ticker := time.NewTicker(c.Opts.PollInterval)
	defer ticker.Stop()

	misses := 0
	for {
		receipt, err := c.receipt(ctx, txHash)
		switch {
		case err == nil:
			return toConfirmation(receipt), nil
		case errors.Is(err, geth.NotFound):
			known, err := c.isKnown(ctx, txHash)
			if err != nil {
				c.logger.Debug("failed to look up pending tx", "hash", hash, "error", err)
			} else if known {
				misses = 0
			} else {
				misses++
				if misses >= c.Opts.DropAfterMisses {
					return nil, ErrDropped
				}
			}
		default:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Debug("failed to get receipt", "hash", hash, "error", err)
		}

		if time.Now().After(deadline) {
			return nil, ErrConfirmTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Opts.Timeout)
	defer cancel()

	receipt, err := c.client.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (c *Client) isKnown(ctx context.Context, hash common.Hash) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Opts.Timeout)
	defer cancel()

	_, _, err := c.client.TransactionByHash(ctx, hash)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, geth.NotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to get transaction: %w", err)
	}
}

func toConfirmation(receipt *types.Receipt) *tracker.Confirmation {
	conf := &tracker.Confirmation{
		Success:          receipt.Status == types.ReceiptStatusSuccessful,
		GasUsed:          strconv.FormatUint(receipt.GasUsed, 10),
		EffectiveFeeRate: FormatGwei(receipt.EffectiveGasPrice),
	}
	if receipt.BlockNumber != nil {
		conf.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return conf
}
