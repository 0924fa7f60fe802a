package tracker

import (
	"context"
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

// Candidate is a pending transaction as delivered by the candidate source.
type Candidate struct {
	Hash string
	To   string // empty for contract creation
	From string
	Data []byte
}

// Call is a decoded token call.
type Call struct {
	Method types.Method
	To     string
	Amount *big.Int
}

// Confirmation is what a Confirmer reports once a transaction is included.
type Confirmation struct {
	Success          bool
	BlockNumber      uint64
	GasUsed          string
	EffectiveFeeRate string
}

// PendingRecord is an immutable snapshot of a tracked transaction.
type PendingRecord struct {
	Hash        string
	FirstSeenAt time.Time
	Amount      decimal.Decimal
	From        string
	To          string
	Method      types.Method
	Tag         string
	State       types.TrackState
	// Generation identifies one insertion of Hash into the registry.
	Generation uint64
}

// Outcome is the terminal result for one tracked transaction.
type Outcome struct {
	Status           types.Status
	BlockNumber      *uint64
	DelaySeconds     *float64
	GasUsed          string
	EffectiveFeeRate string
	ResolvedAt       time.Time
}

// Source delivers pending candidates to handler until ctx is done or the
// subscription fails. The same hash may be delivered more than once.
type Source interface {
	SubscribeCandidates(ctx context.Context, handler func(Candidate)) error
}

// Decoder recognises transfer-style call data.
type Decoder interface {
	DecodeCall(data []byte) (Call, bool)
}

// Confirmer blocks until hash is included in a block or can no longer be
// followed.
type Confirmer interface {
	AwaitConfirmation(ctx context.Context, hash string) (*Confirmation, error)
}

// Labeler maps an address to a tag, or "" when unknown.
type Labeler interface {
	Lookup(address string) string
}

// Sink persists one row per resolved transaction.
type Sink interface {
	WriteRow(ctx context.Context, row types.Row) error
}

// LabelFunc adapts a function to Labeler.
type LabelFunc func(address string) string

func (f LabelFunc) Lookup(address string) string { return f(address) }

// roundDelay rounds d to the nearest 0.1s.
func roundDelay(d time.Duration) float64 {
	return math.Round(d.Seconds()*10) / 10
}

func newRow(rec PendingRecord, out Outcome) types.Row {
	return types.Row{
		Hash:             rec.Hash,
		Method:           rec.Method,
		Amount:           rec.Amount.String(),
		From:             rec.From,
		To:               rec.To,
		Tag:              rec.Tag,
		Block:            out.BlockNumber,
		Status:           out.Status,
		DelaySeconds:     out.DelaySeconds,
		GasUsed:          out.GasUsed,
		EffectiveFeeRate: out.EffectiveFeeRate,
		FirstSeenAt:      rec.FirstSeenAt,
		ResolvedAt:       out.ResolvedAt,
	}
}
