// Package feed polls an EVM node for new blocks and delivers them in height
// order, each block followed by its transactions.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	evmrpc "github.com/emperorhan/priority-fee-monitor/internal/chain/evm/rpc"
	"github.com/emperorhan/priority-fee-monitor/internal/domain/event"
	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/metrics"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline/retry"
	"github.com/emperorhan/priority-fee-monitor/internal/tracing"
)

const defaultPollInterval = 2 * time.Second

type Config struct {
	Chain        model.Chain
	Network      model.Network
	PollInterval time.Duration
	// StartBlock is the first height delivered. Zero starts at the head seen
	// on the first poll.
	StartBlock int64
	Retry      retry.Policy
}

// Feed is a single-consumer block source. Run must not be called twice.
type Feed struct {
	cfg    Config
	client evmrpc.RPCClient
	logger *slog.Logger
	next   int64
}

func New(cfg Config, client evmrpc.RPCClient, logger *slog.Logger) *Feed {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Feed{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "feed", "chain", cfg.Chain, "network", cfg.Network),
		next:   cfg.StartBlock,
	}
}

// Run polls until ctx is done. Poll failures are logged and retried on the
// next tick; Run only returns with ctx's error.
func (f *Feed) Run(ctx context.Context, out chan<- event.BlockEvent) error {
	f.logger.Info("feed started", "start_block", f.cfg.StartBlock, "poll_interval", f.cfg.PollInterval)
	defer f.logger.Info("feed stopped", "next_block", f.next)

	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := f.poll(ctx, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.FeedErrors.WithLabelValues(string(f.cfg.Chain), string(f.cfg.Network)).Inc()
			f.logger.Warn("poll failed", "next_block", f.next, "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll delivers every block from the cursor up to the current head.
func (f *Feed) poll(ctx context.Context, out chan<- event.BlockEvent) error {
	var head int64
	err := retry.Do(ctx, f.cfg.Retry, func(ctx context.Context) error {
		var err error
		head, err = f.client.GetBlockNumber(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("get head: %w", err)
	}
	if f.next == 0 {
		f.next = head
	}

	chain, network := string(f.cfg.Chain), string(f.cfg.Network)
	for f.next <= head {
		metrics.FeedHeadLag.WithLabelValues(chain, network).Set(float64(head - f.next))

		ev, err := f.fetch(ctx, f.next)
		if err != nil {
			return fmt.Errorf("fetch block %d: %w", f.next, err)
		}
		if ev == nil {
			// The node reported the head before serving it.
			return nil
		}

		select {
		case out <- *ev:
		case <-ctx.Done():
			return ctx.Err()
		}
		f.next++
	}
	metrics.FeedHeadLag.WithLabelValues(chain, network).Set(0)
	return nil
}

func (f *Feed) fetch(ctx context.Context, height int64) (ev *event.BlockEvent, err error) {
	ctx, span := tracing.Start(ctx, tracing.Tracer("feed"), "feed.fetch_block",
		attribute.String("chain", string(f.cfg.Chain)),
		attribute.Int64("block_number", height),
	)
	defer func() { tracing.End(span, err) }()

	chain, network := string(f.cfg.Chain), string(f.cfg.Network)
	start := time.Now()
	var block *evmrpc.Block
	err = retry.Do(ctx, f.cfg.Retry, func(ctx context.Context) error {
		var err error
		block, err = f.client.GetBlockByNumber(ctx, height)
		return err
	})
	metrics.FeedFetchLatency.WithLabelValues(chain, network).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, nil
	}
	metrics.FeedBlocksFetched.WithLabelValues(chain, network).Inc()

	converted := f.toEvent(block)
	return &converted, nil
}

func (f *Feed) toEvent(b *evmrpc.Block) event.BlockEvent {
	ev := event.BlockEvent{
		Chain:        f.cfg.Chain,
		Network:      f.cfg.Network,
		Height:       int64(b.Number),
		Hash:         b.Hash,
		ParentHash:   b.ParentHash,
		GasUsed:      int64(b.GasUsed),
		GasLimit:     int64(b.GasLimit),
		Timestamp:    int64(b.Timestamp),
		Transactions: make([]event.TransactionEvent, 0, len(b.Transactions)),
	}
	for _, tx := range b.Transactions {
		if tx.GasPrice == nil {
			continue
		}
		var to string
		if tx.To != nil {
			to = *tx.To
		}
		ev.Transactions = append(ev.Transactions, event.TransactionEvent{
			Hash:        tx.Hash,
			BlockHeight: ev.Height,
			Timestamp:   ev.Timestamp,
			To:          to,
			Gas:         int64(tx.Gas),
			GasPrice:    evmrpc.BigToInt64(tx.GasPrice),
		})
	}
	return ev
}
