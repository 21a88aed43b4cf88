// Package retention bounds the history tables to a sliding window of blocks.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/metrics"
	"github.com/emperorhan/priority-fee-monitor/internal/store"
)

const (
	DefaultRetentionBlocks = 6300 * 7
	DefaultIntervalBlocks  = 1000
)

type Config struct {
	Chain           model.Chain
	Network         model.Network
	RetentionBlocks int64
	IntervalBlocks  int64
}

// Sweeper prunes blocks and transactions that fell out of the retention
// window and caches the block row count used to gate forecasting.
type Sweeper struct {
	cfg      Config
	blocks   store.BlockRepository
	txs      store.TransactionRepository
	counter  int64
	capacity atomic.Int64
	logger   *slog.Logger
}

func NewSweeper(cfg Config, blocks store.BlockRepository, txs store.TransactionRepository, logger *slog.Logger) *Sweeper {
	if cfg.RetentionBlocks <= 0 {
		cfg.RetentionBlocks = DefaultRetentionBlocks
	}
	if cfg.IntervalBlocks <= 0 {
		cfg.IntervalBlocks = DefaultIntervalBlocks
	}
	return &Sweeper{
		cfg:    cfg,
		blocks: blocks,
		txs:    txs,
		logger: logger.With("component", "retention", "chain", cfg.Chain, "network", cfg.Network),
	}
}

// Threshold is the lowest height kept when head is the newest block.
func (s *Sweeper) Threshold(head int64) int64 {
	return head - s.cfg.RetentionBlocks
}

// Sweep deletes rows below the retention window ending at head and refreshes
// the cached capacity. Both tables are pruned concurrently.
func (s *Sweeper) Sweep(ctx context.Context, head int64) error {
	start := time.Now()
	threshold := s.Threshold(head)
	chain, network := string(s.cfg.Chain), string(s.cfg.Network)

	var blocksDeleted, txsDeleted int64
	if threshold > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			n, err := s.blocks.DeleteOlderThan(gctx, s.cfg.Chain, s.cfg.Network, threshold)
			if err != nil {
				return fmt.Errorf("prune blocks below %d: %w", threshold, err)
			}
			blocksDeleted = n
			return nil
		})
		g.Go(func() error {
			n, err := s.txs.DeleteOlderThan(gctx, s.cfg.Chain, s.cfg.Network, threshold)
			if err != nil {
				return fmt.Errorf("prune transactions below %d: %w", threshold, err)
			}
			txsDeleted = n
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}
	}

	if err := s.Refresh(ctx); err != nil {
		return err
	}

	metrics.RetentionSweepsTotal.WithLabelValues(chain, network).Inc()
	metrics.RetentionDeletedRows.WithLabelValues(chain, network, "blocks").Add(float64(blocksDeleted))
	metrics.RetentionDeletedRows.WithLabelValues(chain, network, "transactions").Add(float64(txsDeleted))
	s.logger.Info("retention sweep completed",
		"head", head,
		"threshold", threshold,
		"blocks_deleted", blocksDeleted,
		"transactions_deleted", txsDeleted,
		"capacity", s.capacity.Load(),
		"elapsed", time.Since(start).String(),
	)
	return nil
}

// Refresh re-reads the block row count without pruning.
func (s *Sweeper) Refresh(ctx context.Context) error {
	n, err := s.blocks.Count(ctx, s.cfg.Chain, s.cfg.Network)
	if err != nil {
		return fmt.Errorf("count blocks: %w", err)
	}
	s.capacity.Store(n)
	metrics.HistoryCapacity.WithLabelValues(string(s.cfg.Chain), string(s.cfg.Network)).Set(float64(n))
	return nil
}

// Tick counts one processed block and sweeps once more than IntervalBlocks
// blocks were counted since the last sweep. Callers serialize Tick.
func (s *Sweeper) Tick(ctx context.Context, head int64) (bool, error) {
	s.counter++
	if s.counter <= s.cfg.IntervalBlocks {
		return false, nil
	}
	if err := s.Sweep(ctx, head); err != nil {
		return false, err
	}
	s.counter = 0
	return true, nil
}

// Capacity is the block row count as of the last sweep or refresh.
func (s *Sweeper) Capacity() int64 {
	return s.capacity.Load()
}
