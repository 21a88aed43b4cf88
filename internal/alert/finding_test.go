package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
)

func TestFromFinding(t *testing.T) {
	detected := time.Date(2022, 5, 1, 10, 0, 0, 0, time.UTC)
	f := model.Finding{
		ID:               "7f0c",
		Chain:            model.ChainEthereum,
		Network:          model.NetworkMainnet,
		Severity:         model.SeverityCritical,
		Class:            model.AlertClassConfirmed,
		ProtocolAddress:  "0x7a250d5630b4cf539739df2c5dacb4c659f2488d",
		ProtocolName:     "Uniswap",
		ExpectedUpperFee: 2_500_000_000,
		ObservedFee:      100_000_000_000,
		TxHash:           "0xfeed",
		BlockHeight:      14744241,
		DetectedAt:       detected,
	}

	a := FromFinding(f)
	assert.Equal(t, AlertTypePriorityFee, a.Type)
	assert.Equal(t, "CRITICAL", a.Severity)
	assert.Equal(t, "0xfeed", a.Key)
	assert.Equal(t, "Critical Priority Fee for Uniswap", a.Title)
	assert.Equal(t, "Priority fee for Uniswap is critically higher than expected!", a.Message)
	assert.Equal(t, "2.5", a.Fields["expected_max_fee_gwei"])
	assert.Equal(t, "100", a.Fields["real_priority_fee_gwei"])
	assert.Equal(t, "14744241", a.Fields["block_number"])
	assert.Equal(t, "PRIORITY-FEE", a.Fields["alert_id"])
	assert.Equal(t, detected, a.Time)
}

func TestFromFinding_Estimated(t *testing.T) {
	a := FromFinding(model.Finding{
		Severity:        model.SeverityLow,
		Class:           model.AlertClassEstimated,
		ProtocolAddress: "0xdead",
		ObservedFee:     1_500_000_000,
	})
	assert.Equal(t, AlertTypePriorityFeeUncertain, a.Type)
	assert.Equal(t, "PRIORITY-FEE-UNCERTAIN", a.Fields["alert_id"])
	assert.Equal(t, "1.5", a.Fields["estimated_min_priority_fee_gwei"])
	assert.NotContains(t, a.Fields, "real_priority_fee_gwei")
	// Without a known name the address identifies the protocol.
	assert.Equal(t, "Slightly Higher Than Expected Priority Fee for 0xdead", a.Title)
	assert.Contains(t, a.Message, "may be a little higher")
}

func TestFindingText(t *testing.T) {
	tests := []struct {
		sev   model.Severity
		title string
	}{
		{model.SeverityCritical, "Critical Priority Fee for X"},
		{model.SeverityHigh, "High Priority Fee for X"},
		{model.SeverityMedium, "Higher Than Expected Priority Fee for X"},
		{model.SeverityLow, "Slightly Higher Than Expected Priority Fee for X"},
	}
	for _, tt := range tests {
		t.Run(tt.sev.String(), func(t *testing.T) {
			title, msg := findingText(tt.sev, model.AlertClassConfirmed, "X")
			assert.Equal(t, tt.title, title)
			assert.Contains(t, msg, "Priority fee for X is")
		})
	}
}
