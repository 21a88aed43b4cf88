package event

import (
	"time"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
)

// DiscontinuityReason describes why the block stream stopped being a single
// linear chain.
type DiscontinuityReason string

const (
	ReasonHeightGap      DiscontinuityReason = "height_gap"
	ReasonParentMismatch DiscontinuityReason = "parent_mismatch"
	ReasonRewind         DiscontinuityReason = "rewind"
)

// DiscontinuityEvent signals that the incoming block does not extend the
// previously processed one. ExpectedHash is the last processed hash, ActualHash
// the parent hash the new block carries.
type DiscontinuityEvent struct {
	Chain         model.Chain
	Network       model.Network
	Reason        DiscontinuityReason
	PreviousBlock int64
	IncomingBlock int64
	ExpectedHash  string
	ActualHash    string
	DetectedAt    time.Time
}
