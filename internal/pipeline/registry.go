package pipeline

import (
	"sort"
	"sync"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline/coordinator"
)

// Registry maps chain/network pairs to their running Pipeline instances.
// The admin API reads status and health through it.
type Registry struct {
	mu        sync.RWMutex
	pipelines map[string]*Pipeline
}

func NewRegistry() *Registry {
	return &Registry{pipelines: make(map[string]*Pipeline)}
}

func registryKey(chain model.Chain, network model.Network) string {
	return string(chain) + ":" + string(network)
}

// Register adds a pipeline to the registry, keyed by its chain:network.
func (r *Registry) Register(p *Pipeline) {
	r.mu.Lock()
	r.pipelines[registryKey(p.cfg.Chain, p.cfg.Network)] = p
	r.mu.Unlock()
}

// Get returns the pipeline for the given chain/network, or nil if not found.
func (r *Registry) Get(chain model.Chain, network model.Network) *Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pipelines[registryKey(chain, network)]
}

// All returns every registered pipeline ordered by chain:network.
func (r *Registry) All() []*Pipeline {
	r.mu.RLock()
	keys := make([]string, 0, len(r.pipelines))
	for k := range r.pipelines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Pipeline, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.pipelines[k])
	}
	r.mu.RUnlock()
	return out
}

// Statuses returns the coordinator snapshot of every registered pipeline.
func (r *Registry) Statuses() []coordinator.Snapshot {
	all := r.All()
	out := make([]coordinator.Snapshot, 0, len(all))
	for _, p := range all {
		out = append(out, p.Status())
	}
	return out
}

// HealthSnapshots returns the health of every registered pipeline.
func (r *Registry) HealthSnapshots() []HealthSnapshot {
	all := r.All()
	out := make([]HealthSnapshot, 0, len(all))
	for _, p := range all {
		out = append(out, p.Health().Snapshot())
	}
	return out
}
