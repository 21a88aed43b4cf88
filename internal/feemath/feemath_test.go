package feemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const mainnetGasLimit = 30_000_000

func TestNextBaseFee(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		prev     int64
		gasLimit int64
		gasUsed  int64
		expected int64
	}{
		{name: "at target", prev: 100_000_000_000, gasLimit: mainnetGasLimit, gasUsed: 15_000_000, expected: 100_000_000_000},
		{name: "full block", prev: 100_000_000_000, gasLimit: mainnetGasLimit, gasUsed: 30_000_000, expected: 112_500_000_000},
		{name: "empty block", prev: 100_000_000_000, gasLimit: mainnetGasLimit, gasUsed: 0, expected: 87_500_000_000},
		{name: "minimum increase of one", prev: 7, gasLimit: mainnetGasLimit, gasUsed: 15_000_001, expected: 8},
		{name: "zero base fee above target", prev: 0, gasLimit: mainnetGasLimit, gasUsed: 20_000_000, expected: 1},
		{name: "small base fee below target", prev: 7, gasLimit: mainnetGasLimit, gasUsed: 0, expected: 7},
		{name: "odd gas limit truncates target", prev: 800, gasLimit: 15, gasUsed: 7, expected: 800},
		{name: "zero gas target", prev: 800, gasLimit: 1, gasUsed: 1, expected: 800},
		{name: "saturates", prev: math.MaxInt64, gasLimit: 2, gasUsed: 2, expected: math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NextBaseFee(tt.prev, tt.gasLimit, tt.gasUsed))
		})
	}
}

// Consecutive mainnet blocks 14744240..14744244.
func TestNextBaseFee_MainnetChain(t *testing.T) {
	t.Parallel()

	blocks := []struct {
		gasUsed int64
		baseFee int64
	}{
		{gasUsed: 6223756, baseFee: 135022850976},
		{gasUsed: 10882484, baseFee: 125147905262},
		{gasUsed: 29988124, baseFee: 120853751077},
		{gasUsed: 27143187, baseFee: 135948509468},
	}
	const following = int64(149705577575)

	fee := blocks[0].baseFee
	for i, b := range blocks {
		assert.Equal(t, b.baseFee, fee, "block %d", i)
		fee = NextBaseFee(fee, mainnetGasLimit, b.gasUsed)
	}
	assert.Equal(t, following, fee)
}

func TestNextBaseFee_LargeProductDoesNotOverflow(t *testing.T) {
	t.Parallel()

	// prev * (used - target) exceeds int64 here.
	prev := int64(1) << 50
	assert.Equal(t, prev+prev/8, NextBaseFee(prev, mainnetGasLimit, 30_000_000))
}

func TestBaseFeeBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		prev      int64
		wantLower int64
		wantUpper int64
	}{
		{name: "round gwei", prev: 100_000_000_000, wantLower: 700_000_000_000, wantUpper: 900_000_000_000},
		{name: "below eight wei", prev: 7, wantLower: 49, wantUpper: 63},
		{name: "fractional eighths", prev: 15_566_665_807, wantLower: 108_966_660_649, wantUpper: 140_099_992_263},
		{name: "zero", prev: 0, wantLower: 0, wantUpper: 0},
		{name: "saturates", prev: math.MaxInt64 / 8, wantLower: (math.MaxInt64 / 8) * 7, wantUpper: math.MaxInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lower, upper := BaseFeeBounds(tt.prev)
			assert.Equal(t, tt.wantLower, lower)
			assert.Equal(t, tt.wantUpper, upper)
		})
	}
}

func TestBaseFeeBounds_ContainNextBaseFee(t *testing.T) {
	t.Parallel()

	prev := int64(135022850976)
	lower, upper := BaseFeeBounds(prev)
	for used := int64(0); used <= mainnetGasLimit; used += 1_000_000 {
		next := NextBaseFee(prev, mainnetGasLimit, used) * BoundsScale
		assert.GreaterOrEqual(t, next, lower)
		assert.LessOrEqual(t, next, upper)
	}
}

func TestScaledToWei(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(6), ScaledToWei(49))
	assert.Equal(t, int64(7), ScaledToWei(56))
	assert.Equal(t, int64(-1), ScaledToWei(-1))
	assert.Equal(t, int64(-1), ScaledToWei(-8))
}
