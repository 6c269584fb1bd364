package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"resumepilot/internal/errors"

	"golang.org/x/time/rate"
)

const (
	sweepInterval = 10 * time.Minute
	idleTimeout   = 10 * time.Minute
)

// RateLimiter hands out one token bucket per client key (IP or API key)
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateClient
	limit   rate.Limit
	burst   int

	rejected atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
	logger   *errors.Logger
}

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requestsPerMin per key with bursts of up to
// burstCapacity. Idle keys are swept in the background until Close.
func NewRateLimiter(requestsPerMin int, burstCapacity int, logger *errors.Logger) *RateLimiter {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	rl := &RateLimiter{
		clients: make(map[string]*rateClient),
		limit:   rate.Limit(float64(requestsPerMin) / 60.0),
		burst:   burstCapacity,
		stop:    make(chan struct{}),
		logger:  logger,
	}
	go rl.sweepLoop(sweepInterval)
	return rl
}

// Allow takes a token from key's bucket without blocking
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	c, ok := rl.clients[key]
	if !ok {
		c = &rateClient{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = time.Now()
	rl.mu.Unlock()

	if c.limiter.Allow() {
		return true
	}
	rl.rejected.Add(1)
	return false
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	active := len(rl.clients)
	rl.mu.Unlock()

	return map[string]any{
		"active_limiters": active,
		"rate_per_second": float64(rl.limit),
		"rate_per_minute": float64(rl.limit) * 60.0,
		"burst_capacity":  rl.burst,
		"rejected_total":  rl.rejected.Load(),
	}
}

func (rl *RateLimiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := rl.sweep(idleTimeout); n > 0 {
				rl.logger.Debug("Evicted idle rate limiters", "evicted", n)
			}
		case <-rl.stop:
			return
		}
	}
}

// sweep drops keys not seen for longer than idle and returns how many went
func (rl *RateLimiter) sweep(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	evicted := 0
	for key, c := range rl.clients {
		if !c.lastSeen.After(cutoff) {
			delete(rl.clients, key)
			evicted++
		}
	}
	return evicted
}

// Close stops the background sweep; it is safe to call more than once
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// rateLimitMiddleware creates rate limiting middleware using golang.org/x/time/rate.
// Rejections are counted in the rate limit hits metric.
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rateLimitKey := getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if rateLimitKey == "" {
				next(w, r)
				return
			}

			if !s.RateLimiter.Allow(rateLimitKey) {
				s.Logger.Info("Rate limit exceeded",
					"key", rateLimitKey,
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r))
				s.Observability.RecordRateLimitHit(r.Context(), r.URL.Path)
				w.Header().Set("Retry-After", retryAfterSeconds(s.RateLimiter.limit))
				writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// retryAfterSeconds is the time until one token refills, rounded up
func retryAfterSeconds(r rate.Limit) string {
	if r <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Ceil(1 / float64(r))))
}

// getRateLimitKey picks the bucket for a request; an API key wins over
// the client IP when both are enabled
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := apiKeyFromRequest(r); apiKey != "" {
			return "api:" + apiKey
		}
	}

	if byIP {
		return "ip:" + getClientIP(r)
	}

	return ""
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (for proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP in the list
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return xri
		}
	}

	// Fall back to RemoteAddr
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseFirstIP parses the first valid IP from a comma-separated list
func parseFirstIP(ips string) string {
	// Split by comma and check each IP
	for ip := range strings.SplitSeq(ips, ",") {
		ip = strings.TrimSpace(ip)
		if parsed := net.ParseIP(ip); parsed != nil {
			return ip
		}
	}
	return ""
}
