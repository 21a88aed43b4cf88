// Package reorgdetector decides whether an incoming block extends the chain
// the monitor processed so far.
package reorgdetector

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/emperorhan/priority-fee-monitor/internal/alert"
	"github.com/emperorhan/priority-fee-monitor/internal/domain/event"
	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/metrics"
)

// Detector compares each incoming block with the last processed height and
// the stored parent block. Callers serialize Check per chain.
type Detector struct {
	chain   model.Chain
	network model.Network
	alerter alert.Alerter
	logger  *slog.Logger
	nowFn   func() time.Time
}

func New(chainID model.Chain, network model.Network, logger *slog.Logger) *Detector {
	return &Detector{
		chain:   chainID,
		network: network,
		logger:  logger.With("component", "reorg_detector", "chain", chainID, "network", network),
		nowFn:   time.Now,
	}
}

// WithAlerter sends an alert for every detected discontinuity.
func (d *Detector) WithAlerter(a alert.Alerter) *Detector {
	d.alerter = a
	return d
}

// Check returns the discontinuity ev introduces, or nil when ev is the direct
// successor of the last processed block. last is zero before the first block
// was processed; prev is the stored block at ev.Height-1, nil when absent.
func (d *Detector) Check(ctx context.Context, last int64, prev *model.Block, ev event.BlockEvent) *event.DiscontinuityEvent {
	if last == 0 {
		return nil
	}

	disc := &event.DiscontinuityEvent{
		Chain:         d.chain,
		Network:       d.network,
		PreviousBlock: last,
		IncomingBlock: ev.Height,
		ActualHash:    ev.ParentHash,
		DetectedAt:    d.nowFn(),
	}
	if prev != nil {
		disc.ExpectedHash = prev.Hash
	}

	switch {
	case ev.Height <= last:
		disc.Reason = event.ReasonRewind
	case ev.Height != last+1:
		disc.Reason = event.ReasonHeightGap
	case prev == nil || prev.Hash != ev.ParentHash:
		disc.Reason = event.ReasonParentMismatch
	default:
		return nil
	}

	d.emit(ctx, disc)
	return disc
}

func (d *Detector) emit(ctx context.Context, disc *event.DiscontinuityEvent) {
	metrics.DiscontinuitiesTotal.WithLabelValues(string(d.chain), string(d.network), string(disc.Reason)).Inc()
	d.logger.Warn("block stream discontinuity, resetting base fee confidence",
		"reason", disc.Reason,
		"previous_block", disc.PreviousBlock,
		"block_number", disc.IncomingBlock,
		"expected_parent_hash", disc.ExpectedHash,
		"parent_hash", disc.ActualHash,
	)

	if d.alerter == nil {
		return
	}
	err := d.alerter.Send(ctx, alert.Alert{
		Type:    alert.AlertTypeDiscontinuity,
		Chain:   string(d.chain),
		Network: string(d.network),
		Key:     string(disc.Reason),
		Title:   "Block stream discontinuity",
		Message: fmt.Sprintf("Block %d does not extend block %d (%s); base fee confidence reset",
			disc.IncomingBlock, disc.PreviousBlock, disc.Reason),
		Fields: map[string]string{
			"reason":               string(disc.Reason),
			"previous_block":       strconv.FormatInt(disc.PreviousBlock, 10),
			"block_number":         strconv.FormatInt(disc.IncomingBlock, 10),
			"expected_parent_hash": disc.ExpectedHash,
			"parent_hash":          disc.ActualHash,
		},
		Time: disc.DetectedAt,
	})
	if err != nil {
		d.logger.Warn("failed to send discontinuity alert", "error", err)
	}
}
