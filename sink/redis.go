package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

const DefaultStreamMaxLen = 100_000

// RedisStream publishes each row to a Redis stream with XADD.
type RedisStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

type RedisStreamOpts struct {
	Addr   string
	Stream string
	MaxLen int64
}

func NewRedisStream(ctx context.Context, opts RedisStreamOpts) (*RedisStream, error) {
	if opts.MaxLen <= 0 {
		opts.MaxLen = DefaultStreamMaxLen
	}

	client := redis.NewClient(&redis.Options{Addr: opts.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStream{client: client, stream: opts.Stream, maxLen: opts.MaxLen}, nil
}

func (r *RedisStream) WriteRow(ctx context.Context, row types.Row) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"hash":    row.Hash,
			"status":  string(row.Status),
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd error: %w", err)
	}
	return nil
}

func (r *RedisStream) Close() error {
	return r.client.Close()
}
