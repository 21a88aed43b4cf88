package forecast

import (
	"context"
	"fmt"

	"github.com/emperorhan/priority-fee-monitor/internal/circuitbreaker"
	"github.com/emperorhan/priority-fee-monitor/internal/metrics"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline/retry"
)

// Guarded wraps a Forecaster with a circuit breaker. Only transient backend
// errors count against the breaker.
type Guarded struct {
	inner   Forecaster
	breaker *circuitbreaker.Breaker
}

func NewGuarded(inner Forecaster, backend string, cfg circuitbreaker.Config) *Guarded {
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return retry.Classify(err).IsTransient() }
	}
	onChange := cfg.OnStateChange
	cfg.OnStateChange = func(from, to circuitbreaker.State) {
		metrics.ForecastBreakerState.WithLabelValues(backend).Set(float64(to))
		if onChange != nil {
			onChange(from, to)
		}
	}
	metrics.ForecastBreakerState.WithLabelValues(backend).Set(float64(circuitbreaker.StateClosed))
	return &Guarded{inner: inner, breaker: circuitbreaker.New(cfg)}
}

func (g *Guarded) Predict(ctx context.Context, samples []Sample, horizon int) ([]Prediction, error) {
	var preds []Prediction
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		preds, err = g.inner.Predict(ctx, samples, horizon)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("guarded predict: %w", err)
	}
	return preds, nil
}

func (g *Guarded) State() circuitbreaker.State {
	return g.breaker.GetState()
}
