package alert

import (
	"fmt"
	"strconv"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
)

const weiPerGwei = 1e9

// FromFinding renders a priority-fee finding as an alert. Findings are keyed
// by transaction hash, so a cooldown never merges two different transactions.
func FromFinding(f model.Finding) Alert {
	name := f.ProtocolName
	if name == "" {
		name = f.ProtocolAddress
	}

	observedKey := "real_priority_fee_gwei"
	alertType := AlertTypePriorityFee
	if f.Class == model.AlertClassEstimated {
		observedKey = "estimated_min_priority_fee_gwei"
		alertType = AlertTypePriorityFeeUncertain
	}

	title, message := findingText(f.Severity, f.Class, name)
	fields := map[string]string{
		"finding_id":            f.ID,
		"protocol_address":      f.ProtocolAddress,
		"expected_max_fee_gwei": gwei(f.ExpectedUpperFee),
		observedKey:             gwei(f.ObservedFee),
		"tx_hash":               f.TxHash,
		"block_number":          strconv.FormatInt(f.BlockHeight, 10),
		"alert_id":              f.Class.AlertID(),
	}

	return Alert{
		Type:     alertType,
		Severity: f.Severity.String(),
		Chain:    string(f.Chain),
		Network:  string(f.Network),
		Key:      f.TxHash,
		Title:    title,
		Message:  message,
		Fields:   fields,
		Time:     f.DetectedAt,
	}
}

func findingText(sev model.Severity, class model.AlertClass, name string) (string, string) {
	verb := "is"
	if class == model.AlertClassEstimated && sev == model.SeverityLow {
		verb = "may be"
	}
	switch sev {
	case model.SeverityCritical:
		return "Critical Priority Fee for " + name,
			fmt.Sprintf("Priority fee for %s %s critically higher than expected!", name, verb)
	case model.SeverityHigh:
		return "High Priority Fee for " + name,
			fmt.Sprintf("Priority fee for %s %s much higher than expected!", name, verb)
	case model.SeverityMedium:
		return "Higher Than Expected Priority Fee for " + name,
			fmt.Sprintf("Priority fee for %s %s on average higher than expected!", name, verb)
	default:
		return "Slightly Higher Than Expected Priority Fee for " + name,
			fmt.Sprintf("Priority fee for %s %s a little higher than expected!", name, verb)
	}
}

func gwei(wei int64) string {
	return strconv.FormatFloat(float64(wei)/weiPerGwei, 'f', -1, 64)
}
