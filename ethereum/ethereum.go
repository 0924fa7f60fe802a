package ethereum

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	DefaultTimeout         = 10 * time.Second
	DefaultPollInterval    = 2 * time.Second
	DefaultConfirmTimeout  = 30 * time.Minute
	DefaultDropAfterMisses = 15
	DefaultFetchWorkers    = 8
)

type Client struct {
	rpc     *rpc.Client
	client  *ethclient.Client
	geth    *gethclient.Client
	chainId *big.Int
	signer  types.Signer
	logger  *slog.Logger
	Opts    *ClientOpts
}

type ClientOpts struct {
	// Endpoint must support subscriptions (ws:// or ipc).
	Endpoint string
	Logger   *slog.Logger
	// Timeout bounds every single RPC call.
	Timeout time.Duration
	// PollInterval is the receipt polling period.
	PollInterval time.Duration
	// ConfirmTimeout bounds how long a transaction is followed in total.
	ConfirmTimeout time.Duration
	// DropAfterMisses is the number of consecutive polls in which the node
	// no longer knows the transaction before it is declared dropped.
	DropAfterMisses int
	// FetchWorkers is the number of concurrent transaction lookups for
	// pending hashes.
	FetchWorkers int
	// Skip, when set, filters hashes before their transaction is fetched.
	Skip func(hash string) bool
}

// NewClient dials a subscription-capable Ethereum endpoint.
func NewClient(opts ClientOpts) (*Client, error) {
	rpcClient, err := rpc.DialContext(context.Background(), opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum: %w", err)
	}

	c := newClient(rpcClient, opts)

	ctx, cancel := context.WithTimeout(context.Background(), c.Opts.Timeout)
	defer cancel()

	chainId, err := c.client.ChainID(ctx)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("failed to get chainId: %w", err)
	}
	c.chainId = chainId
	c.signer = types.LatestSignerForChainID(chainId)

	c.logger.Info("Connected to Ethereum", "chainId", chainId)

	return c, nil
}

func newClient(rpcClient *rpc.Client, opts ClientOpts) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}
	if opts.DropAfterMisses <= 0 {
		opts.DropAfterMisses = DefaultDropAfterMisses
	}
	if opts.FetchWorkers <= 0 {
		opts.FetchWorkers = DefaultFetchWorkers
	}

	return &Client{
		rpc:     rpcClient,
		client:  ethclient.NewClient(rpcClient),
		geth:    gethclient.New(rpcClient),
		chainId: big.NewInt(1),
		signer:  types.LatestSignerForChainID(big.NewInt(1)),
		logger:  opts.Logger,
		Opts:    &opts,
	}
}

func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainId)
}

func (c *Client) Close() {
	c.rpc.Close()
}
