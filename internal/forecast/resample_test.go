package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
)

func fee(v int64) *int64 { return &v }

func TestResampleHourlyMax(t *testing.T) {
	const h0 = int64(1_650_000_000) - int64(1_650_000_000)%model.SecondsPerHour

	txs := []model.Transaction{
		{Hash: "a", Timestamp: h0 + 10, PriorityFee: fee(5)},
		{Hash: "b", Timestamp: h0 + 3599, PriorityFee: fee(9)},
		{Hash: "c", Timestamp: h0 + 20, PriorityFee: nil},
		{Hash: "d", Timestamp: h0 + 2*model.SecondsPerHour, PriorityFee: fee(3)},
		{Hash: "e", Timestamp: h0 + model.SecondsPerHour, PriorityFee: fee(7)},
		{Hash: "f", Timestamp: h0 + model.SecondsPerHour + 1, PriorityFee: fee(2)},
		{Hash: "g", Timestamp: h0 + 3*model.SecondsPerHour},
	}

	got := ResampleHourlyMax(txs)
	assert.Equal(t, []Sample{
		{Hour: h0, Value: 9},
		{Hour: h0 + model.SecondsPerHour, Value: 7},
		{Hour: h0 + 2*model.SecondsPerHour, Value: 3},
	}, got)
}

func TestResampleHourlyMax_Empty(t *testing.T) {
	assert.Empty(t, ResampleHourlyMax(nil))
	assert.Empty(t, ResampleHourlyMax([]model.Transaction{{Hash: "x", Timestamp: 100}}))
}

func TestPredictionHours(t *testing.T) {
	samples := []Sample{{Hour: 0}, {Hour: 7200}}
	assert.Equal(t, []int64{0, 7200, 10800, 14400}, predictionHours(samples, 2))
	assert.Empty(t, predictionHours(nil, 24))
}
