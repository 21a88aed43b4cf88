package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/store"
)

var _ store.ForecastRepository = (*ForecastStore)(nil)

type protocolKey struct {
	chainKey
	protocol string
}

// ForecastStore is an in-memory implementation of store.ForecastRepository.
type ForecastStore struct {
	mu   sync.RWMutex
	data map[protocolKey]map[int64]model.Forecast // keyed by hour bucket
}

func NewForecastStore() *ForecastStore {
	return &ForecastStore{data: make(map[protocolKey]map[int64]model.Forecast)}
}

func (s *ForecastStore) Get(_ context.Context, chain model.Chain, network model.Network, protocol string, hour int64) (*model.Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fc, ok := s.data[protocolKey{chainKey{chain, network}, protocol}][hour]
	if !ok {
		return nil, nil
	}
	return &fc, nil
}

func (s *ForecastStore) ListByProtocol(_ context.Context, chain model.Chain, network model.Network, protocol string) ([]model.Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.data[protocolKey{chainKey{chain, network}, protocol}]
	result := make([]model.Forecast, 0, len(rows))
	for _, fc := range rows {
		result = append(result, fc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Hour < result[j].Hour })
	return result, nil
}

// ReplaceForProtocol swaps the protocol's rows atomically with respect to readers.
func (s *ForecastStore) ReplaceForProtocol(_ context.Context, chain model.Chain, network model.Network, protocol string, forecasts []model.Forecast) error {
	rows := make(map[int64]model.Forecast, len(forecasts))
	for _, fc := range forecasts {
		fc.Chain, fc.Network, fc.Protocol = chain, network, protocol
		rows[fc.Hour] = fc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[protocolKey{chainKey{chain, network}, protocol}] = rows
	return nil
}
