package models

import (
	"time"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

// Outcome is a resolved large transfer as stored in the outcomes collection.
type Outcome struct {
	Hash             string       `json:"hash" bson:"hash"`
	Method           types.Method `json:"method" bson:"method"`
	Amount           string       `json:"amount" bson:"amount"`
	From             string       `json:"from" bson:"from"`
	To               string       `json:"to" bson:"to"`
	Tag              string       `json:"tag,omitempty" bson:"tag,omitempty"`
	BlockNumber      *uint64      `json:"block_number,omitempty" bson:"block_number,omitempty"`
	Status           types.Status `json:"status" bson:"status"`
	DelaySeconds     *float64     `json:"delay_s,omitempty" bson:"delay_s,omitempty"`
	GasUsed          string       `json:"gas_used,omitempty" bson:"gas_used,omitempty"`
	EffectiveFeeRate string       `json:"effective_gas_price_gwei,omitempty" bson:"effective_gas_price_gwei,omitempty"`
	FirstSeenAt      time.Time    `json:"first_seen_at" bson:"first_seen_at"`
	ResolvedAt       time.Time    `json:"resolved_at" bson:"resolved_at"`
}

func FromRow(row types.Row) Outcome {
	return Outcome{
		Hash:             row.Hash,
		Method:           row.Method,
		Amount:           row.Amount,
		From:             row.From,
		To:               row.To,
		Tag:              row.Tag,
		BlockNumber:      row.Block,
		Status:           row.Status,
		DelaySeconds:     row.DelaySeconds,
		GasUsed:          row.GasUsed,
		EffectiveFeeRate: row.EffectiveFeeRate,
		FirstSeenAt:      row.FirstSeenAt,
		ResolvedAt:       row.ResolvedAt,
	}
}
