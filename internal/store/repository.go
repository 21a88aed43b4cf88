package store

import (
	"context"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
)

// Lookups return (nil, nil) when the record does not exist.

// BlockRepository provides access to block history.
type BlockRepository interface {
	Insert(ctx context.Context, block *model.Block) error
	GetByHeight(ctx context.Context, chain model.Chain, network model.Network, height int64) (*model.Block, error)
	UpdateBaseFee(ctx context.Context, chain model.Chain, network model.Network, height int64, baseFee int64) error
	// DeleteFrom removes blocks at or above fromHeight.
	DeleteFrom(ctx context.Context, chain model.Chain, network model.Network, fromHeight int64) (int64, error)
	// DeleteOlderThan removes blocks strictly below height.
	DeleteOlderThan(ctx context.Context, chain model.Chain, network model.Network, height int64) (int64, error)
	Count(ctx context.Context, chain model.Chain, network model.Network) (int64, error)
}

// TransactionRepository provides access to watched-protocol transactions.
type TransactionRepository interface {
	Insert(ctx context.Context, tx *model.Transaction) error
	ListByBlock(ctx context.Context, chain model.Chain, network model.Network, height int64) ([]model.Transaction, error)
	// ListByProtocol returns the protocol's transactions ordered by timestamp.
	ListByProtocol(ctx context.Context, chain model.Chain, network model.Network, protocol string) ([]model.Transaction, error)
	UpdatePriorityFee(ctx context.Context, chain model.Chain, network model.Network, txHash string, priorityFee int64) error
	DeleteFrom(ctx context.Context, chain model.Chain, network model.Network, fromHeight int64) (int64, error)
	DeleteOlderThan(ctx context.Context, chain model.Chain, network model.Network, height int64) (int64, error)
	Count(ctx context.Context, chain model.Chain, network model.Network) (int64, error)
}

// ForecastRepository provides access to per-protocol hourly forecasts.
type ForecastRepository interface {
	Get(ctx context.Context, chain model.Chain, network model.Network, protocol string, hour int64) (*model.Forecast, error)
	// ListByProtocol returns the protocol's forecasts ordered by hour.
	ListByProtocol(ctx context.Context, chain model.Chain, network model.Network, protocol string) ([]model.Forecast, error)
	// ReplaceForProtocol discards every stored forecast of the protocol and
	// writes forecasts in their place.
	ReplaceForProtocol(ctx context.Context, chain model.Chain, network model.Network, protocol string, forecasts []model.Forecast) error
}

// History bundles the three tables the monitor works with.
type History struct {
	Blocks       BlockRepository
	Transactions TransactionRepository
	Forecasts    ForecastRepository
}
