package pipeline

import (
	"slices"
	"sync"
	"time"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
)

// HealthStatus represents the health state of a pipeline.
type HealthStatus string

const (
	HealthStatusUnknown   HealthStatus = "UNKNOWN"
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusDegraded  HealthStatus = "DEGRADED"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"

	// DefaultUnhealthyThreshold is the number of consecutive failed blocks
	// before a pipeline is considered unhealthy.
	DefaultUnhealthyThreshold = 5

	// DefaultDegradedLatencyThreshold is the P95 latency threshold
	// before a pipeline is considered degraded.
	DefaultDegradedLatencyThreshold = 5 * time.Second

	// latencyWindowSize is the number of recent latencies tracked.
	latencyWindowSize = 10
)

func (s HealthStatus) gaugeValue() int {
	switch s {
	case HealthStatusHealthy:
		return 1
	case HealthStatusUnhealthy:
		return 2
	case HealthStatusDegraded:
		return 3
	default:
		return 0
	}
}

// PipelineHealth tracks one pipeline's block outcomes. A block counts as
// failed when any of its events failed.
type PipelineHealth struct {
	mu                       sync.RWMutex
	chain                    model.Chain
	network                  model.Network
	status                   HealthStatus
	consecutiveFailures      int
	lastBlock                int64
	lastError                string
	lastSuccessAt            *time.Time
	lastFailureAt            *time.Time
	unhealthyThreshold       int
	recentLatencies          []time.Duration
	degradedLatencyThreshold time.Duration
	nowFn                    func() time.Time
}

func NewPipelineHealth(chain model.Chain, network model.Network) *PipelineHealth {
	return &PipelineHealth{
		chain:                    chain,
		network:                  network,
		status:                   HealthStatusUnknown,
		unhealthyThreshold:       DefaultUnhealthyThreshold,
		recentLatencies:          make([]time.Duration, 0, latencyWindowSize),
		degradedLatencyThreshold: DefaultDegradedLatencyThreshold,
		nowFn:                    time.Now,
	}
}

func (h *PipelineHealth) SetStatus(status HealthStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
}

// RecordSuccess records a block whose events were all handled. It returns
// true when the pipeline recovers from UNHEALTHY on this call.
func (h *PipelineHealth) RecordSuccess(height int64) (recovered bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.nowFn()
	recovered = h.status == HealthStatusUnhealthy
	h.consecutiveFailures = 0
	h.lastBlock = height
	h.lastError = ""
	h.lastSuccessAt = &now
	h.status = h.latencyStatus()
	return recovered
}

// RecordFailure records a block with at least one failed event. height is
// zero when the failure is not tied to a block. It returns true when the
// pipeline turns UNHEALTHY on this call.
func (h *PipelineHealth) RecordFailure(height int64, err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.nowFn()
	h.consecutiveFailures++
	if height > 0 {
		h.lastBlock = height
	}
	if err != nil {
		h.lastError = err.Error()
	}
	h.lastFailureAt = &now
	if h.consecutiveFailures >= h.unhealthyThreshold && h.status != HealthStatusUnhealthy {
		h.status = HealthStatusUnhealthy
		return true
	}
	return false
}

// RecordLatency adds a block's handling time to the window. Only HEALTHY and
// DEGRADED move with latency.
func (h *PipelineHealth) RecordLatency(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.recentLatencies) >= latencyWindowSize {
		h.recentLatencies = h.recentLatencies[1:]
	}
	h.recentLatencies = append(h.recentLatencies, d)

	switch h.status {
	case HealthStatusHealthy:
		h.status = h.latencyStatus()
	case HealthStatusDegraded:
		if h.consecutiveFailures == 0 {
			h.status = h.latencyStatus()
		}
	}
}

// latencyStatus must be called with mu held.
func (h *PipelineHealth) latencyStatus() HealthStatus {
	if len(h.recentLatencies) >= 2 && h.p95() > h.degradedLatencyThreshold {
		return HealthStatusDegraded
	}
	return HealthStatusHealthy
}

// p95 must be called with mu held.
func (h *PipelineHealth) p95() time.Duration {
	n := len(h.recentLatencies)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(h.recentLatencies)
	slices.Sort(sorted)
	idx := min(max((95*n-1)/100, 0), n-1)
	return sorted[idx]
}

func (h *PipelineHealth) Snapshot() HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HealthSnapshot{
		Chain:               string(h.chain),
		Network:             string(h.network),
		Status:              string(h.status),
		ConsecutiveFailures: h.consecutiveFailures,
		LastBlock:           h.lastBlock,
		LastError:           h.lastError,
		P95LatencyMS:        h.p95().Milliseconds(),
		LastSuccessAt:       h.lastSuccessAt,
		LastFailureAt:       h.lastFailureAt,
	}
}

// HealthSnapshot is served by the admin API.
type HealthSnapshot struct {
	Chain               string     `json:"chain"`
	Network             string     `json:"network"`
	Status              string     `json:"status"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastBlock           int64      `json:"last_block"`
	LastError           string     `json:"last_error,omitempty"`
	P95LatencyMS        int64      `json:"p95_latency_ms"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
}
