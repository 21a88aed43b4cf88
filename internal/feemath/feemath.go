// Package feemath implements the EIP-1559 base fee update rule in exact
// integer arithmetic.
package feemath

import (
	"math"

	"github.com/holiman/uint256"
)

// ElasticityMultiplier is the ratio between the gas limit and the gas target.
const ElasticityMultiplier = 2

// BaseFeeChangeDenominator bounds the per-block base fee change to 1/8.
const BaseFeeChangeDenominator = 8

// NextBaseFee returns the base fee of the block following a block with base
// fee prev, gas limit gasLimit and gas usage gasUsed. Every division truncates,
// matching the on-chain rule bit for bit. Inputs are expected non-negative.
//
// A gas limit below the elasticity multiplier has no gas target; such a block
// leaves the base fee unchanged. Results that would not fit in int64 saturate.
func NextBaseFee(prev, gasLimit, gasUsed int64) int64 {
	target := gasLimit / ElasticityMultiplier
	if gasUsed == target || target <= 0 {
		return prev
	}

	base := uint256.NewInt(uint64(prev))
	tgt := uint256.NewInt(uint64(target))
	denom := uint256.NewInt(BaseFeeChangeDenominator)

	if gasUsed > target {
		delta := new(uint256.Int).Mul(base, uint256.NewInt(uint64(gasUsed-target)))
		delta.Div(delta, tgt)
		delta.Div(delta, denom)
		if delta.IsZero() {
			delta.SetOne()
		}
		next := delta.Add(delta, base)
		if !next.IsUint64() || next.Uint64() > math.MaxInt64 {
			return math.MaxInt64
		}
		return int64(next.Uint64())
	}

	delta := new(uint256.Int).Mul(base, uint256.NewInt(uint64(target-gasUsed)))
	delta.Div(delta, tgt)
	delta.Div(delta, denom)
	return prev - int64(delta.Uint64())
}

// BoundsScale is the number of BaseFeeBounds units per wei.
const BoundsScale = BaseFeeChangeDenominator

// BaseFeeBounds returns prev*7/8 and prev*9/8, the protocol cap on how far the
// next base fee can move, in units of 1/BoundsScale wei so neither bound is
// rounded. Results saturate at math.MaxInt64.
func BaseFeeBounds(prev int64) (lower, upper int64) {
	return Scale(prev, BoundsScale-1), Scale(prev, BoundsScale+1)
}

// Scale multiplies a non-negative v by k, saturating at math.MaxInt64.
func Scale(v, k int64) int64 {
	if v > math.MaxInt64/k {
		return math.MaxInt64
	}
	return v * k
}

// ScaledToWei converts an amount in 1/BoundsScale wei to wei, rounding down.
func ScaledToWei(v int64) int64 {
	q := v / BoundsScale
	if v%BoundsScale < 0 {
		q--
	}
	return q
}
