package tracker

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

// Rejection explains why a candidate does not qualify. The zero value means
// the candidate was accepted.
type Rejection string

const (
	Accepted            Rejection = ""
	RejectNoRecipient   Rejection = "no_recipient"
	RejectOtherContract Rejection = "other_contract"
	RejectEmptyData     Rejection = "empty_data"
	RejectUndecodable   Rejection = "undecodable"
	RejectMethod        Rejection = "unsupported_method"
	RejectBelowMinimum  Rejection = "below_threshold"
)

// Classifier decides whether a candidate is a large transfer of the monitored
// token. It has no side effects and never fails.
type Classifier struct {
	contract  string
	scale     int32
	threshold decimal.Decimal
	decoder   Decoder
	labels    Labeler
}

type ClassifierOpts struct {
	TokenContract string
	DecimalScale  int32
	Threshold     decimal.Decimal
	Decoder       Decoder
	Labels        Labeler
}

func NewClassifier(opts ClassifierOpts) *Classifier {
	if opts.Labels == nil {
		opts.Labels = LabelFunc(func(string) string { return "" })
	}
	return &Classifier{
		contract:  strings.ToLower(opts.TokenContract),
		scale:     opts.DecimalScale,
		threshold: opts.Threshold,
		decoder:   opts.Decoder,
		labels:    opts.Labels,
	}
}

// Classify returns a pending record draft stamped with now, or the reason the
// candidate was rejected.
func (c *Classifier) Classify(cand Candidate, now time.Time) (PendingRecord, Rejection) {
	if cand.To == "" {
		return PendingRecord{}, RejectNoRecipient
	}
	if strings.ToLower(cand.To) != c.contract {
		return PendingRecord{}, RejectOtherContract
	}
	if len(cand.Data) == 0 {
		return PendingRecord{}, RejectEmptyData
	}

	call, ok := c.decoder.DecodeCall(cand.Data)
	if !ok || call.Amount == nil {
		return PendingRecord{}, RejectUndecodable
	}
	if call.Method != types.Transfer && call.Method != types.TransferFrom {
		return PendingRecord{}, RejectMethod
	}

	amount := decimal.NewFromBigInt(call.Amount, -c.scale)
	if amount.LessThan(c.threshold) {
		return PendingRecord{}, RejectBelowMinimum
	}

	return PendingRecord{
		Hash:        cand.Hash,
		FirstSeenAt: now,
		Amount:      amount,
		From:        cand.From,
		To:          call.To,
		Method:      call.Method,
		Tag:         c.labels.Lookup(call.To),
		State:       types.Pending,
	}, Accepted
}
