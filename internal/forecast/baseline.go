package forecast

import (
	"context"
	"math"
)

// intervalZ is the normal quantile of an 80% prediction interval.
const intervalZ = 1.2815515655446004

const hoursPerDay = 24

// Baseline is an in-process Forecaster that models a daily cycle. Each hour of
// the day is predicted by the mean and spread of the samples that fell on that
// hour of the day; hours seen fewer than MinSamples times fall back to the
// whole history.
type Baseline struct{}

func NewBaseline() *Baseline { return &Baseline{} }

type moments struct {
	n        int
	mean, m2 float64
}

// add folds x in with Welford's update.
func (m *moments) add(x float64) {
	m.n++
	d := x - m.mean
	m.mean += d / float64(m.n)
	m.m2 += d * (x - m.mean)
}

func (m moments) stddev() float64 {
	if m.n < 2 {
		return 0
	}
	return math.Sqrt(m.m2 / float64(m.n-1))
}

func (b *Baseline) Predict(ctx context.Context, samples []Sample, horizon int) ([]Prediction, error) {
	if len(samples) < MinSamples {
		return nil, ErrInsufficientSamples
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var global moments
	var byHourOfDay [hoursPerDay]moments
	for _, s := range samples {
		v := float64(s.Value)
		global.add(v)
		byHourOfDay[hourOfDay(s.Hour)].add(v)
	}

	hours := predictionHours(samples, horizon)
	out := make([]Prediction, 0, len(hours))
	for _, h := range hours {
		m := byHourOfDay[hourOfDay(h)]
		if m.n < MinSamples {
			m = global
		}
		spread := intervalZ * m.stddev()
		out = append(out, Prediction{
			Hour:  h,
			Point: toWei(m.mean),
			Lower: toWei(m.mean - spread),
			Upper: toWei(m.mean + spread),
		})
	}
	return out, nil
}

func hourOfDay(hour int64) int {
	return int((hour / 3600) % hoursPerDay)
}

func toWei(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(math.Round(v))
	}
}
