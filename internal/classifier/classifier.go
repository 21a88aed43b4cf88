// Package classifier grades a transaction's priority fee against the forecast
// for its protocol and hour.
package classifier

import (
	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/feemath"
)

// Estimate is what is known about the base fee of the block a transaction was
// included in. It is either Confident or Uncertain.
type Estimate interface {
	estimate()
}

// Confident carries an exactly known base fee.
type Confident struct {
	BaseFee int64
}

// Uncertain carries the range the base fee is known to lie in. Bounds are in
// 1/feemath.BoundsScale wei because the protocol cap is a fraction of the
// previous base fee.
type Uncertain struct {
	LowerScaled int64
	UpperScaled int64
}

// PriorityFeeRange returns the lowest and highest priority fee gasPrice can
// carry under u, in 1/feemath.BoundsScale wei.
func (u Uncertain) PriorityFeeRange(gasPrice int64) (lower, upper int64) {
	scaled := gasPrice * feemath.BoundsScale
	return scaled - u.UpperScaled, scaled - u.LowerScaled
}

func (Confident) estimate() {}
func (Uncertain) estimate() {}

func ConfidentEstimate(baseFee int64) Confident {
	return Confident{BaseFee: baseFee}
}

// UncertainEstimate bounds the base fee of the block following one with base
// fee prevBaseFee. A cheaper transaction already seen in the block (candidate)
// tightens the upper bound, and the lower bound collapses onto it when the two
// cross.
func UncertainEstimate(prevBaseFee, candidate int64, hasCandidate bool) Uncertain {
	lower, upper := feemath.BaseFeeBounds(prevBaseFee)
	if c := feemath.Scale(candidate, feemath.BoundsScale); hasCandidate && c < upper {
		upper = c
	}
	if upper < lower {
		lower = upper
	}
	return Uncertain{LowerScaled: lower, UpperScaled: upper}
}

// Policy switches individual severities on and off.
type Policy struct {
	Critical bool
	High     bool
	Medium   bool
	Low      bool
}

func DefaultPolicy() Policy {
	return Policy{Critical: true, High: true, Medium: true, Low: true}
}

func (p Policy) enabled(sev model.Severity) bool {
	switch sev {
	case model.SeverityCritical:
		return p.Critical
	case model.SeverityHigh:
		return p.High
	case model.SeverityMedium:
		return p.Medium
	case model.SeverityLow:
		return p.Low
	}
	return false
}

// Result is a graded transaction.
type Result struct {
	Severity model.Severity
	Class    model.AlertClass
	// ObservedFee is the exact priority fee, or its lower estimate when the
	// base fee is only bounded.
	ObservedFee      int64
	ExpectedUpperFee int64
}

// tier is one rung of a severity ladder. Rungs are evaluated in order and the
// first enabled rung that matches wins; a matching but disabled rung falls
// through to the next one.
type tier struct {
	severity model.Severity
	match    bool
}

// Classify grades gasPrice against fc. ok is false when no finding applies.
func Classify(est Estimate, gasPrice int64, fc model.Forecast, p Policy) (res Result, ok bool) {
	switch e := est.(type) {
	case Confident:
		return classifyConfident(e, gasPrice, fc, p)
	case Uncertain:
		return classifyUncertain(e, gasPrice, fc, p)
	default:
		return Result{}, false
	}
}

func classifyConfident(e Confident, gasPrice int64, fc model.Forecast, p Policy) (Result, bool) {
	u := fc.Uncertainty()
	fee := gasPrice - e.BaseFee
	diff := fee - fc.Point

	ladder := []tier{
		{model.SeverityCritical, diff > 2*u},
		{model.SeverityHigh, 2*diff > 3*u},
		{model.SeverityMedium, diff > u},
		{model.SeverityLow, fee > fc.Upper},
	}
	sev, ok := first(ladder, p)
	if !ok {
		return Result{}, false
	}
	return Result{
		Severity:         sev,
		Class:            model.AlertClassConfirmed,
		ObservedFee:      fee,
		ExpectedUpperFee: fc.Upper,
	}, true
}

func classifyUncertain(e Uncertain, gasPrice int64, fc model.Forecast, p Policy) (Result, bool) {
	// Everything is compared in 1/BoundsScale wei so the bounds stay exact.
	const s = feemath.BoundsScale
	u := fc.Uncertainty() * s
	point, upper := fc.Point*s, fc.Upper*s
	feeLower, feeUpper := e.PriorityFeeRange(gasPrice)

	ladder := []tier{
		{model.SeverityCritical, feeLower-point > 2*u},
		{model.SeverityHigh, feeUpper-point > 2*u},
		{model.SeverityMedium, feeLower > upper},
		{model.SeverityLow, feeUpper > upper},
	}
	sev, ok := first(ladder, p)
	if !ok {
		return Result{}, false
	}
	return Result{
		Severity:         sev,
		Class:            model.AlertClassEstimated,
		ObservedFee:      feemath.ScaledToWei(feeLower),
		ExpectedUpperFee: fc.Upper,
	}, true
}

func first(ladder []tier, p Policy) (model.Severity, bool) {
	for _, t := range ladder {
		if t.match && p.enabled(t.severity) {
			return t.severity, true
		}
	}
	return "", false
}
