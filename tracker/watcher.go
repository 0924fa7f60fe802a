package tracker

import (
	"context"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

// watch waits for rec to resolve and delivers its outcome exactly once. The
// watcher owns its hash: a prior eviction does not suppress the outcome.
func (t *Tracker) watch(ctx context.Context, rec PendingRecord) {
	out, err := t.resolve(ctx, rec)
	if err != nil && ctx.Err() != nil {
		// shutdown, not a drop
		t.logger.Debug("abandoning watcher", "hash", rec.Hash)
		return
	}
	if err != nil {
		t.logger.Warn("tx not mined (dropped/replaced?)", "hash", rec.Hash, "tag", rec.Tag, "error", err)
	}

	if _, ok := t.registry.RemoveIfPresent(rec.Hash, rec.Generation); !ok {
		t.logger.Info("resolved after eviction", "hash", rec.Hash, "status", out.Status)
	}

	t.aggregator.RecordTerminal(out.Status, out.DelaySeconds)
	t.metrics.ObserveTerminal(out.Status, out.DelaySeconds, t.registry.Len())

	row := newRow(rec, out)
	if err := t.sink.WriteRow(context.WithoutCancel(ctx), row); err != nil {
		t.metrics.ObserveSinkError()
		t.logger.Error("failed to write row", "hash", rec.Hash, "status", out.Status, "error", err)
		if t.onSinkError != nil {
			t.onSinkError(row, err)
		}
	}

	if out.Status != types.Dropped {
		t.logger.Info("tx resolved",
			"status", out.Status,
			"hash", rec.Hash,
			"tag", rec.Tag,
			"to", rec.To,
			"block", row.BlockString(),
			"delay", row.DelayString(),
			"gasUsed", out.GasUsed,
			"effectiveGasPriceGwei", out.EffectiveFeeRate)
	}

	s := t.aggregator.Snapshot()
	t.logger.Info("stats",
		"seen", s.Seen,
		"done", s.Done(),
		"mined", s.Mined,
		"reverted", s.Reverted,
		"dropped", s.Dropped,
		"avgDelay", roundTenth(s.AvgDelay()),
		"maxDelay", roundTenth(s.MaxDelay))
}

// resolve turns the confirmer's answer into an outcome. Any failure becomes
// DROPPED; the error is returned for logging only.
func (t *Tracker) resolve(ctx context.Context, rec PendingRecord) (Outcome, error) {
	conf, err := t.confirmer.AwaitConfirmation(ctx, rec.Hash)
	now := t.now()
	if err != nil || conf == nil {
		return Outcome{Status: types.Dropped, ResolvedAt: now}, err
	}

	delay := roundDelay(now.Sub(rec.FirstSeenAt))
	block := conf.BlockNumber

	status := types.Reverted
	if conf.Success {
		status = types.Mined
	}

	return Outcome{
		Status:           status,
		BlockNumber:      &block,
		DelaySeconds:     &delay,
		GasUsed:          conf.GasUsed,
		EffectiveFeeRate: conf.EffectiveFeeRate,
		ResolvedAt:       now,
	}, nil
}
