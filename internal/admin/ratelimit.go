package admin

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	staleLimiterTTL = 10 * time.Minute
	cleanupInterval = time.Minute
)

// routeClass groups endpoints sharing a budget.
type routeClass uint8

const (
	routeDefault routeClass = iota
	routeForecasts
)

func classify(r *http.Request) routeClass {
	if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/admin/v1/forecasts") {
		return routeForecasts
	}
	return routeDefault
}

type budget struct {
	limit rate.Limit
	burst int
}

type limiterKey struct {
	class routeClass
	ip    string
}

type clientLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware throttles admin requests per client IP. Forecast reads
// hit the store and get half the budget of the other endpoints.
type RateLimitMiddleware struct {
	mu       sync.Mutex
	clients  map[limiterKey]*clientLimiter
	budgets  map[routeClass]budget
	logger   *slog.Logger
	nowFunc  func() time.Time
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimitMiddleware allows rps requests per second per client with a
// burst of twice that. Call Stop to end the background eviction.
func NewRateLimitMiddleware(rps float64, logger *slog.Logger) *RateLimitMiddleware {
	if rps <= 0 {
		rps = 1
	}
	burst := max(1, int(2*rps))
	rl := &RateLimitMiddleware{
		clients: make(map[limiterKey]*clientLimiter),
		budgets: map[routeClass]budget{
			routeDefault:   {limit: rate.Limit(rps), burst: burst},
			routeForecasts: {limit: rate.Limit(rps / 2), burst: max(1, burst/2)},
		},
		logger:  logger,
		nowFunc: time.Now,
		stopCh:  make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimitMiddleware) evictLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.evictStale()
		}
	}
}

func (rl *RateLimitMiddleware) evictStale() {
	cutoff := rl.nowFunc().Add(-staleLimiterTTL)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// LimiterCount reports how many client limiters are live.
func (rl *RateLimitMiddleware) LimiterCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimitMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := limiterKey{class: classify(r), ip: extractClientIP(r)}
		if !rl.limiter(key).Allow() {
			rl.logger.Warn("admin request throttled",
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", key.ip,
			)
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimitMiddleware) limiter(key limiterKey) *rate.Limiter {
	now := rl.nowFunc()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[key]
	if !ok {
		b := rl.budgets[key.class]
		c = &clientLimiter{Limiter: rate.NewLimiter(b.limit, b.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.Limiter
}

// extractClientIP prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the connection address.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
