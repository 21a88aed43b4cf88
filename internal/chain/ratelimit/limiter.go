// Package ratelimit throttles node calls and labels their outcomes.
package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/emperorhan/priority-fee-monitor/internal/metrics"
)

// Call outcome labels for the rpc_calls_total metric.
const (
	OutcomeOK          = "ok"
	OutcomeTimeout     = "timeout"
	OutcomeRateLimited = "rate_limited"
	OutcomeServerError = "server_error"
	OutcomeNetwork     = "network_error"
	OutcomeClientError = "client_error"
)

// Limiter is a per-node token bucket. Waits are counted per chain.
type Limiter struct {
	limiter *rate.Limiter
	chain   string
}

// NewLimiter allows rps calls per second with the given burst, at least one.
func NewLimiter(rps float64, burst int, chain string) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), max(burst, 1)),
		chain:   chain,
	}
}

// Wait takes one token, blocking until it is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	res := l.limiter.Reserve()
	if !res.OK() {
		return errors.New("rpc limiter: burst too small to reserve a token")
	}
	delay := res.Delay()
	if delay <= 0 {
		return nil
	}

	metrics.RPCRateLimitWaits.WithLabelValues(l.chain).Inc()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		res.Cancel()
		return ctx.Err()
	}
}

// StatusCoder is implemented by transport errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

func RecordRPCCall(chain, method string, err error) {
	metrics.RPCCallsTotal.WithLabelValues(chain, method, ClassifyRPCError(err)).Inc()
}

// messageOutcomes is checked in order against the lower-cased error text.
var messageOutcomes = []struct {
	outcome string
	tokens  []string
}{
	{OutcomeTimeout, []string{"timeout", "deadline exceeded"}},
	{OutcomeRateLimited, []string{"rate limit", "429", "too many requests"}},
	{OutcomeServerError, []string{"internal server error", "bad gateway", "service unavailable"}},
	{OutcomeNetwork, []string{"connection refused", "connection reset", "network is unreachable", "no such host", "broken pipe", "eof"}},
}

// ClassifyRPCError maps a call error to an outcome label.
func ClassifyRPCError(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimeout
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return statusOutcome(sc.HTTPStatus())
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range messageOutcomes {
		for _, token := range rule.tokens {
			if strings.Contains(msg, token) {
				return rule.outcome
			}
		}
	}
	return OutcomeClientError
}

func statusOutcome(code int) string {
	switch {
	case code == http.StatusTooManyRequests:
		return OutcomeRateLimited
	case code >= http.StatusInternalServerError:
		return OutcomeServerError
	default:
		return OutcomeClientError
	}
}
