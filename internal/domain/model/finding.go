package model

import "time"

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

func (s Severity) String() string {
	return string(s)
}

// AlertClass tells whether the priority fee behind a finding was computed from
// an exactly known base fee or estimated from base fee bounds.
type AlertClass string

const (
	AlertClassConfirmed AlertClass = "CONFIRMED"
	AlertClassEstimated AlertClass = "ESTIMATED"
)

// AlertID returns the stable alert identifier published with findings of this class.
func (c AlertClass) AlertID() string {
	if c == AlertClassEstimated {
		return "PRIORITY-FEE-UNCERTAIN"
	}
	return "PRIORITY-FEE"
}

// Finding is a single priority-fee anomaly.
type Finding struct {
	ID               string
	Chain            Chain
	Network          Network
	Severity         Severity
	Class            AlertClass
	ProtocolAddress  string
	ProtocolName     string
	ExpectedUpperFee int64 // forecast upper bound, wei
	ObservedFee      int64 // exact priority fee, or its lower estimate, wei
	TxHash           string
	BlockHeight      int64
	DetectedAt       time.Time
}
