package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

// Postgres stores rows in a whale_outcomes table, one per hash.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure postgres schema: %w", err)
	}
	return p, nil
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS whale_outcomes (
  hash TEXT PRIMARY KEY,
  method TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  from_addr TEXT NOT NULL,
  to_addr TEXT NOT NULL,
  tag TEXT NOT NULL DEFAULT '',

  block_number BIGINT NULL,
  status TEXT NOT NULL,
  delay_s DOUBLE PRECISION NULL,
  gas_used TEXT NOT NULL DEFAULT '',
  effective_gas_price_gwei TEXT NOT NULL DEFAULT '',

  first_seen_at TIMESTAMPTZ NOT NULL,
  resolved_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS whale_outcomes_resolved_idx ON whale_outcomes(resolved_at DESC);
CREATE INDEX IF NOT EXISTS whale_outcomes_status_idx ON whale_outcomes(status);
`
	_, err := p.pool.Exec(ctx, ddl)
	return err
}

func (p *Postgres) WriteRow(ctx context.Context, row types.Row) error {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var (
		block any = nil
		delay any = nil
	)
	if row.Block != nil {
		block = int64(*row.Block)
	}
	if row.DelaySeconds != nil {
		delay = *row.DelaySeconds
	}

	q := `
INSERT INTO whale_outcomes(
  hash, method, amount, from_addr, to_addr, tag,
  block_number, status, delay_s, gas_used, effective_gas_price_gwei,
  first_seen_at, resolved_at
) VALUES (
  $1, $2, $3::numeric, $4, $5, $6,
  $7, $8, $9, $10, $11,
  $12, $13
)
ON CONFLICT(hash) DO NOTHING
`
	_, err := p.pool.Exec(cctx, q,
		row.Hash, string(row.Method), row.Amount, row.From, row.To, row.Tag,
		block, string(row.Status), delay, row.GasUsed, row.EffectiveFeeRate,
		row.FirstSeenAt, row.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// CountByStatus summarises the stored outcomes.
func (p *Postgres) CountByStatus(ctx context.Context) (map[types.Status]int64, error) {
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := p.pool.Query(cctx, `SELECT status, count(*) FROM whale_outcomes GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[types.Status]int64)
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[types.Status(status)] = n
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}
