// Package memory holds map-backed history tables. They keep the whole
// retention window in process and are meant for single-instance deployments
// and tests.
package memory

import (
	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/store"
)

type chainKey struct {
	chain   model.Chain
	network model.Network
}

// NewHistory returns empty in-memory block, transaction and forecast tables.
func NewHistory() store.History {
	return store.History{
		Blocks:       NewBlockStore(),
		Transactions: NewTransactionStore(),
		Forecasts:    NewForecastStore(),
	}
}
