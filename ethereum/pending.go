package ethereum

import (
	"context"
	"errors"
	"fmt"
	"sync"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lightlink-network/ll-whale-tracker/tracker"
)

var _ tracker.Source = &Client{}

// SubscribeCandidates streams pending transaction hashes from the node,
// fetches each transaction and hands it to handler. Hashes the node can no
// longer serve are skipped. It returns when ctx is done or the subscription
// fails; handler may be called from several goroutines.
func (c *Client) SubscribeCandidates(ctx context.Context, handler func(tracker.Candidate)) error {
	hashes := make(chan common.Hash, 1024)
	sub, err := c.geth.SubscribePendingTransactions(ctx, hashes)
	if err != nil {
		return fmt.Errorf("failed to subscribe to pending transactions: %w", err)
	}
	defer sub.Unsubscribe()

	c.logger.Info("subscribed to pending transactions", "endpoint", c.Opts.Endpoint)

	work := make(chan common.Hash)
	var wg sync.WaitGroup
	for i := 0; i < c.Opts.FetchWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for hash := range work {
				if cand, ok := c.fetchCandidate(ctx, hash); ok {
					handler(cand)
				}
			}
		}()
	}
	defer func() {
		close(work)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-sub.Err():
			if !ok || err == nil {
				return errors.New("pending transaction subscription closed")
			}
			return fmt.Errorf("pending transaction subscription failed: %w", err)
		case hash := <-hashes:
			if c.Opts.Skip != nil && c.Opts.Skip(hash.Hex()) {
				continue
			}
			select {
			case work <- hash:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (c *Client) fetchCandidate(ctx context.Context, hash common.Hash) (tracker.Candidate, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.Opts.Timeout)
	defer cancel()

	tx, _, err := c.client.TransactionByHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, geth.NotFound) && ctx.Err() == nil {
			c.logger.Debug("failed to fetch pending tx", "hash", hash.Hex(), "error", err)
		}
		return tracker.Candidate{}, false
	}

	return c.toCandidate(tx), true
}

func (c *Client) toCandidate(tx *types.Transaction) tracker.Candidate {
	cand := tracker.Candidate{
		Hash: tx.Hash().Hex(),
		Data: tx.Data(),
	}
	if to := tx.To(); to != nil {
		cand.To = to.Hex()
	}
	if from, err := types.Sender(c.signer, tx); err == nil {
		cand.From = from.Hex()
	}
	return cand
}
