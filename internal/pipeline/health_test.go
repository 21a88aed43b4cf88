package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
)

func TestPipelineHealth_RecordSuccess(t *testing.T) {
	h := NewPipelineHealth(model.ChainEthereum, model.NetworkMainnet)
	assert.False(t, h.RecordSuccess(100), "first success is not a recovery")

	snap := h.Snapshot()
	assert.Equal(t, string(HealthStatusHealthy), snap.Status)
	assert.Equal(t, 0, snap.ConsecutiveFailures)
	assert.Equal(t, int64(100), snap.LastBlock)
	assert.NotNil(t, snap.LastSuccessAt)
}

func TestPipelineHealth_RecordFailure_Threshold(t *testing.T) {
	h := NewPipelineHealth(model.ChainEthereum, model.NetworkMainnet)
	for i := 0; i < DefaultUnhealthyThreshold-1; i++ {
		assert.False(t, h.RecordFailure(int64(i+1), errors.New("store down")), "should not transition before threshold")
	}

	assert.True(t, h.RecordFailure(5, errors.New("store down")), "should transition at threshold")
	snap := h.Snapshot()
	assert.Equal(t, string(HealthStatusUnhealthy), snap.Status)
	assert.Equal(t, int64(5), snap.LastBlock)
	assert.Equal(t, "store down", snap.LastError)
	assert.False(t, h.RecordFailure(6, nil), "transition is reported once")
}

func TestPipelineHealth_FailureWithoutBlockKeepsLastBlock(t *testing.T) {
	h := NewPipelineHealth(model.ChainEthereum, model.NetworkMainnet)
	h.RecordSuccess(42)
	h.RecordFailure(0, errors.New("node gone"))

	snap := h.Snapshot()
	assert.Equal(t, int64(42), snap.LastBlock)
	assert.Equal(t, "node gone", snap.LastError)
}

func TestPipelineHealth_Recovery(t *testing.T) {
	h := NewPipelineHealth(model.ChainPolygon, model.NetworkMainnet)
	for i := 0; i < DefaultUnhealthyThreshold; i++ {
		h.RecordFailure(int64(i+1), errors.New("boom"))
	}
	assert.True(t, h.RecordSuccess(10))

	snap := h.Snapshot()
	assert.Equal(t, string(HealthStatusHealthy), snap.Status)
	assert.Empty(t, snap.LastError)
	assert.False(t, h.RecordSuccess(11), "recovery is reported once")
}

func TestPipelineHealth_Latency(t *testing.T) {
	t.Run("slow blocks degrade", func(t *testing.T) {
		h := NewPipelineHealth(model.ChainEthereum, model.NetworkMainnet)
		h.RecordSuccess(1)
		for i := 0; i < latencyWindowSize; i++ {
			h.RecordLatency(10 * time.Second)
		}
		snap := h.Snapshot()
		assert.Equal(t, string(HealthStatusDegraded), snap.Status)
		assert.Equal(t, int64(10_000), snap.P95LatencyMS)

		for i := 0; i < latencyWindowSize; i++ {
			h.RecordLatency(100 * time.Millisecond)
		}
		assert.Equal(t, string(HealthStatusHealthy), h.Snapshot().Status)
	})

	t.Run("does not override unhealthy", func(t *testing.T) {
		h := NewPipelineHealth(model.ChainEthereum, model.NetworkMainnet)
		for i := 0; i < DefaultUnhealthyThreshold; i++ {
			h.RecordFailure(int64(i+1), nil)
		}
		h.RecordLatency(10 * time.Millisecond)
		assert.Equal(t, string(HealthStatusUnhealthy), h.Snapshot().Status)
	})

	t.Run("success after slow window stays degraded", func(t *testing.T) {
		h := NewPipelineHealth(model.ChainEthereum, model.NetworkMainnet)
		for i := 0; i < latencyWindowSize; i++ {
			h.RecordLatency(10 * time.Second)
		}
		h.RecordSuccess(1)
		assert.Equal(t, string(HealthStatusDegraded), h.Snapshot().Status)
	})
}

func TestPipelineHealth_Snapshot_Fields(t *testing.T) {
	snap := NewPipelineHealth(model.ChainAvalanche, model.NetworkMainnet).Snapshot()

	assert.Equal(t, "avalanche", snap.Chain)
	assert.Equal(t, "mainnet", snap.Network)
	assert.Equal(t, string(HealthStatusUnknown), snap.Status)
	assert.Zero(t, snap.P95LatencyMS)
	assert.Nil(t, snap.LastSuccessAt)
	assert.Nil(t, snap.LastFailureAt)
}

func TestHealthStatus_GaugeValue(t *testing.T) {
	assert.Equal(t, 0, HealthStatusUnknown.gaugeValue())
	assert.Equal(t, 1, HealthStatusHealthy.gaugeValue())
	assert.Equal(t, 2, HealthStatusUnhealthy.gaugeValue())
	assert.Equal(t, 3, HealthStatusDegraded.gaugeValue())
}
