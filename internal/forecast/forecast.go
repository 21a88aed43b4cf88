// Package forecast predicts hourly priority fees per protocol and keeps the
// forecast table filled on demand.
package forecast

import (
	"context"
	"errors"
)

// DefaultHorizonHours is how far past the newest sample forecasts reach.
const DefaultHorizonHours = 24

// MinSamples is the smallest history a forecast is fitted on.
const MinSamples = 2

var ErrInsufficientSamples = errors.New("forecast: insufficient samples")

// Sample is the training signal for one hour bucket.
type Sample struct {
	Hour  int64 `json:"hour"`  // unix seconds, floored to the hour
	Value int64 `json:"value"` // wei
}

// Prediction is the forecast for one hour bucket.
type Prediction struct {
	Hour  int64 `json:"hour"`
	Point int64 `json:"point"`
	Lower int64 `json:"lower"`
	Upper int64 `json:"upper"`
}

// Forecaster fits a model on samples, ordered by hour, and predicts every
// sampled hour plus horizon hours after the newest one.
type Forecaster interface {
	Predict(ctx context.Context, samples []Sample, horizon int) ([]Prediction, error)
}
