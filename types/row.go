package types

import (
	"strconv"
	"time"
)

// Row is the output record emitted once per resolved transaction. It joins the
// tracked transaction with its terminal outcome.
type Row struct {
	Hash             string    `json:"hash"`
	Method           Method    `json:"method"`
	Amount           string    `json:"amount"`
	From             string    `json:"from"`
	To               string    `json:"to"`
	Tag              string    `json:"tag,omitempty"`
	Block            *uint64   `json:"block,omitempty"`
	Status           Status    `json:"status"`
	DelaySeconds     *float64  `json:"delay_s,omitempty"`
	GasUsed          string    `json:"gas_used,omitempty"`
	EffectiveFeeRate string    `json:"effective_gas_price_gwei,omitempty"`
	FirstSeenAt      time.Time `json:"first_seen_at"`
	ResolvedAt       time.Time `json:"resolved_at"`
}

// BlockString returns the block number as a decimal string, or "" when absent.
func (r Row) BlockString() string {
	if r.Block == nil {
		return ""
	}
	return strconv.FormatUint(*r.Block, 10)
}

// DelayString returns the delay with one decimal, or "" when absent.
func (r Row) DelayString() string {
	if r.DelaySeconds == nil {
		return ""
	}
	return strconv.FormatFloat(*r.DelaySeconds, 'f', 1, 64)
}
