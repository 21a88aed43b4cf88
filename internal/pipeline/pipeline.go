package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emperorhan/priority-fee-monitor/internal/alert"
	"github.com/emperorhan/priority-fee-monitor/internal/domain/event"
	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/metrics"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline/coordinator"
)

const defaultChannelBufferSize = 16

type Config struct {
	Chain              model.Chain
	Network            model.Network
	ChannelBufferSize  int
	UnhealthyThreshold int
}

// BlockSource delivers blocks in height order until ctx is done.
type BlockSource interface {
	Run(ctx context.Context, out chan<- event.BlockEvent) error
}

// EventHandler consumes one chain's events. Implemented by
// *coordinator.Coordinator.
type EventHandler interface {
	HandleBlock(ctx context.Context, ev event.BlockEvent) error
	HandleTransaction(ctx context.Context, ev event.TransactionEvent) (*model.Finding, error)
	Snapshot() coordinator.Snapshot
}

// Pipeline moves blocks from a source through the coordinator and publishes
// findings. Event failures are recorded against health and do not stop it.
type Pipeline struct {
	cfg     Config
	source  BlockSource
	handler EventHandler
	alerter alert.Alerter
	health  *PipelineHealth
	logger  *slog.Logger
}

func New(cfg Config, source BlockSource, handler EventHandler, alerter alert.Alerter, logger *slog.Logger) *Pipeline {
	if cfg.ChannelBufferSize <= 0 {
		cfg.ChannelBufferSize = defaultChannelBufferSize
	}
	if alerter == nil {
		alerter = &alert.NoopAlerter{}
	}
	health := NewPipelineHealth(cfg.Chain, cfg.Network)
	if cfg.UnhealthyThreshold > 0 {
		health.unhealthyThreshold = cfg.UnhealthyThreshold
	}
	return &Pipeline{
		cfg:     cfg,
		source:  source,
		handler: handler,
		alerter: alerter,
		health:  health,
		logger:  logger.With("component", "pipeline", "chain", cfg.Chain, "network", cfg.Network),
	}
}

// Chain returns the pipeline's chain.
func (p *Pipeline) Chain() model.Chain { return p.cfg.Chain }

// Network returns the pipeline's network.
func (p *Pipeline) Network() model.Network { return p.cfg.Network }

// Health returns the pipeline's health tracker.
func (p *Pipeline) Health() *PipelineHealth { return p.health }

// Status returns the coordinator's latest snapshot.
func (p *Pipeline) Status() coordinator.Snapshot { return p.handler.Snapshot() }

// Run blocks until ctx is done or the source fails.
func (p *Pipeline) Run(ctx context.Context) error {
	p.health.SetStatus(HealthStatusHealthy)
	p.publishHealth()
	p.logger.Info("pipeline starting", "channel_buffer", p.cfg.ChannelBufferSize)

	blocks := make(chan event.BlockEvent, p.cfg.ChannelBufferSize)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.source.Run(gCtx, blocks)
	})
	g.Go(func() error {
		return p.consume(gCtx, blocks)
	})

	err := g.Wait()
	p.logger.Info("pipeline stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		p.health.RecordFailure(0, err)
		p.publishHealth()
		return err
	}
	return ctx.Err()
}

func (p *Pipeline) consume(ctx context.Context, blocks <-chan event.BlockEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v\n%s", r, debug.Stack())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-blocks:
			p.process(ctx, ev)
		}
	}
}

// process hands the block and then each of its transactions to the handler.
func (p *Pipeline) process(ctx context.Context, ev event.BlockEvent) {
	start := time.Now()
	var firstErr error

	if err := p.handler.HandleBlock(ctx, ev); err != nil {
		firstErr = err
		p.logger.Error("block handling failed", "block_number", ev.Height, "error", err)
	}

	for _, tx := range ev.Transactions {
		finding, err := p.handler.HandleTransaction(ctx, tx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			p.logger.Error("transaction handling failed",
				"block_number", ev.Height,
				"tx_hash", tx.Hash,
				"error", err,
			)
			continue
		}
		if finding == nil {
			continue
		}
		p.logger.Info("priority fee finding",
			"severity", finding.Severity,
			"alert_class", finding.Class,
			"protocol", finding.ProtocolName,
			"tx_hash", finding.TxHash,
			"block_number", finding.BlockHeight,
		)
		if err := p.alerter.Send(ctx, alert.FromFinding(*finding)); err != nil {
			p.logger.Warn("finding alert failed", "tx_hash", finding.TxHash, "error", err)
		}
	}

	p.health.RecordLatency(time.Since(start))
	if firstErr != nil {
		p.recordFailure(ctx, ev.Height, firstErr)
	} else if p.health.RecordSuccess(ev.Height) {
		p.sendHealthAlert(ctx, alert.AlertTypeRecovery, ev.Height)
	}
	p.publishHealth()
}

func (p *Pipeline) recordFailure(ctx context.Context, height int64, err error) {
	if p.health.RecordFailure(height, err) {
		p.logger.Error("pipeline unhealthy", "consecutive_failures", p.health.Snapshot().ConsecutiveFailures)
		p.sendHealthAlert(ctx, alert.AlertTypeUnhealthy, height)
	}
}

func (p *Pipeline) sendHealthAlert(ctx context.Context, typ alert.AlertType, height int64) {
	snap := p.health.Snapshot()
	a := alert.Alert{
		Type:    typ,
		Chain:   string(p.cfg.Chain),
		Network: string(p.cfg.Network),
		Key:     "health",
		Fields: map[string]string{
			"status":               snap.Status,
			"consecutive_failures": strconv.Itoa(snap.ConsecutiveFailures),
			"block_number":         strconv.FormatInt(height, 10),
		},
	}
	if snap.LastError != "" && typ == alert.AlertTypeUnhealthy {
		a.Fields["last_error"] = snap.LastError
	}
	switch typ {
	case alert.AlertTypeRecovery:
		a.Title = "Pipeline recovered"
		a.Message = fmt.Sprintf("%s %s is processing blocks again", p.cfg.Chain, p.cfg.Network)
	default:
		a.Title = "Pipeline unhealthy"
		a.Message = fmt.Sprintf("%s %s failed %d consecutive blocks", p.cfg.Chain, p.cfg.Network, snap.ConsecutiveFailures)
	}
	if err := p.alerter.Send(ctx, a); err != nil {
		p.logger.Warn("health alert failed", "alert_type", typ, "error", err)
	}
}

func (p *Pipeline) publishHealth() {
	snap := p.health.Snapshot()
	chain, network := string(p.cfg.Chain), string(p.cfg.Network)
	metrics.PipelineHealthStatus.WithLabelValues(chain, network).Set(float64(HealthStatus(snap.Status).gaugeValue()))
	metrics.PipelineConsecutiveFailures.WithLabelValues(chain, network).Set(float64(snap.ConsecutiveFailures))
}
