package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/emperorhan/priority-fee-monitor/internal/cache"
	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/metrics"
	"github.com/emperorhan/priority-fee-monitor/internal/store"
	"github.com/emperorhan/priority-fee-monitor/internal/tracing"
)

const (
	defaultFillTimeout = 60 * time.Second
	defaultMemoSize    = 1024
	memoTTL            = 2 * time.Hour
)

type FillerConfig struct {
	Chain    model.Chain
	Network  model.Network
	Horizon  int
	Timeout  time.Duration
	MemoSize int
}

type attemptKey struct {
	protocol string
	hour     int64
}

// Filler keeps the forecast table filled on demand. Concurrent fills for the
// same protocol share one model fit, and each missing (protocol, hour) pair
// triggers at most one completed fill.
type Filler struct {
	cfg       FillerConfig
	txs       store.TransactionRepository
	forecasts store.ForecastRepository
	model     Forecaster
	group     singleflight.Group
	attempted *cache.LRU[attemptKey, struct{}]
	logger    *slog.Logger
}

func NewFiller(
	cfg FillerConfig,
	txs store.TransactionRepository,
	forecasts store.ForecastRepository,
	forecaster Forecaster,
	logger *slog.Logger,
) *Filler {
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizonHours
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultFillTimeout
	}
	if cfg.MemoSize <= 0 {
		cfg.MemoSize = defaultMemoSize
	}
	return &Filler{
		cfg:       cfg,
		txs:       txs,
		forecasts: forecasts,
		model:     forecaster,
		attempted: cache.NewLRU[attemptKey, struct{}](cfg.MemoSize, memoTTL),
		logger:    logger.With("component", "forecast_filler", "chain", cfg.Chain, "network", cfg.Network),
	}
}

// Lookup returns the stored forecast without triggering a fill.
func (f *Filler) Lookup(ctx context.Context, protocol string, hour int64) (*model.Forecast, error) {
	fc, err := f.forecasts.Get(ctx, f.cfg.Chain, f.cfg.Network, protocol, hour)
	if err != nil {
		return nil, fmt.Errorf("get forecast %s@%d: %w", protocol, hour, err)
	}
	return fc, nil
}

// Fill returns the forecast for (protocol, hour), regenerating the protocol's
// forecasts when it is missing. A nil forecast with nil error means the
// history is too thin to fit a model or the model did not cover the hour.
func (f *Filler) Fill(ctx context.Context, protocol string, hour int64) (*model.Forecast, error) {
	fc, err := f.Lookup(ctx, protocol, hour)
	if err != nil || fc != nil {
		return fc, err
	}

	key := attemptKey{protocol: protocol, hour: hour}
	if _, done := f.attempted.Get(key); done {
		return nil, nil
	}

	_, err, shared := f.group.Do(protocol, func() (interface{}, error) {
		return nil, f.regenerate(ctx, protocol)
	})
	if shared {
		metrics.ForecastCoalescedTotal.WithLabelValues(string(f.cfg.Chain), string(f.cfg.Network)).Inc()
	}
	switch {
	case errors.Is(err, ErrInsufficientSamples):
		return nil, nil
	case err != nil:
		return nil, err
	}
	f.attempted.Put(key, struct{}{})

	return f.Lookup(ctx, protocol, hour)
}

func (f *Filler) regenerate(ctx context.Context, protocol string) (err error) {
	ctx, span := tracing.Start(ctx, tracing.Tracer("forecast"), "forecast.fill",
		attribute.String("protocol", protocol),
		attribute.String("chain", string(f.cfg.Chain)),
	)
	start := time.Now()
	chain, network := string(f.cfg.Chain), string(f.cfg.Network)
	defer func() {
		metrics.ForecastFillLatency.WithLabelValues(chain, network).Observe(time.Since(start).Seconds())
		switch {
		case errors.Is(err, ErrInsufficientSamples):
			metrics.ForecastFillsTotal.WithLabelValues(chain, network, "insufficient").Inc()
			tracing.End(span, nil)
		case err != nil:
			metrics.ForecastFillsTotal.WithLabelValues(chain, network, "error").Inc()
			tracing.End(span, err)
		default:
			metrics.ForecastFillsTotal.WithLabelValues(chain, network, "ok").Inc()
			tracing.End(span, nil)
		}
	}()

	history, err := f.txs.ListByProtocol(ctx, f.cfg.Chain, f.cfg.Network, protocol)
	if err != nil {
		return fmt.Errorf("list transactions for %s: %w", protocol, err)
	}
	if len(history) < MinSamples {
		return ErrInsufficientSamples
	}
	samples := ResampleHourlyMax(history)
	if len(samples) < MinSamples {
		return ErrInsufficientSamples
	}

	predictCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()
	preds, err := f.model.Predict(predictCtx, samples, f.cfg.Horizon)
	if err != nil {
		return fmt.Errorf("predict %s: %w", protocol, err)
	}

	rows := make([]model.Forecast, 0, len(preds))
	for _, p := range preds {
		rows = append(rows, model.Forecast{
			Chain:    f.cfg.Chain,
			Network:  f.cfg.Network,
			Protocol: protocol,
			Hour:     p.Hour,
			Point:    p.Point,
			Lower:    p.Lower,
			Upper:    p.Upper,
		})
	}
	if err := f.forecasts.ReplaceForProtocol(ctx, f.cfg.Chain, f.cfg.Network, protocol, rows); err != nil {
		return fmt.Errorf("replace forecasts for %s: %w", protocol, err)
	}

	f.logger.Info("forecast regenerated",
		"protocol", protocol,
		"transactions", len(history),
		"samples", len(samples),
		"forecasts", len(rows),
		"elapsed", time.Since(start).String(),
	)
	// A refit covers every hour again; forget earlier misses for this protocol.
	f.attempted.RemoveFunc(func(k attemptKey) bool { return k.protocol == protocol })
	return nil
}

