package middleware

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client and limit class
type RateLimiter struct {
	config *RateLimitConfig

	limiters   map[string]*limiterEntry
	limitersMu sync.Mutex

	// OnReject is called with the limit type whenever a request is refused
	OnReject func(limitType string)

	cleanupTicker *time.Ticker
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	IPRequestsPerSecond float64       `toml:"ip_requests_per_second"`
	IPBurst             int           `toml:"ip_burst"`
	WritesPerSecond     float64       `toml:"writes_per_second"` // state-changing requests per IP
	WriteBurst          int           `toml:"write_burst"`
	CleanupInterval     time.Duration `toml:"cleanup_interval"`
	LimiterTTL          time.Duration `toml:"limiter_ttl"` // idle time before a limiter is dropped
}

// DefaultRateLimitConfig returns default configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		IPRequestsPerSecond: 100,
		IPBurst:             200,
		WritesPerSecond:     10,
		WriteBurst:          20,
		CleanupInterval:     5 * time.Minute,
		LimiterTTL:          time.Hour,
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	interval := config.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	rl := &RateLimiter{
		config:        config,
		limiters:      make(map[string]*limiterEntry),
		cleanupTicker: time.NewTicker(interval),
		stopCh:        make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop stops the cleanup loop
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
		rl.cleanupTicker.Stop()
	})
}

func (rl *RateLimiter) cleanupLoop() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	threshold := now.Add(-rl.config.LimiterTTL)

	rl.limitersMu.Lock()
	defer rl.limitersMu.Unlock()
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(threshold) {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) getLimiter(key string, perSecond float64, burst int) *rate.Limiter {
	rl.limitersMu.Lock()
	defer rl.limitersMu.Unlock()

	if entry, ok := rl.limiters[key]; ok {
		entry.lastSeen = time.Now()
		return entry.limiter
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	entry := &limiterEntry{limiter: rate.NewLimiter(limit, burst), lastSeen: time.Now()}
	rl.limiters[key] = entry
	return entry.limiter
}

// AllowIP checks if a request from an IP is allowed
func (rl *RateLimiter) AllowIP(ip string) (bool, *RateLimitInfo) {
	return rl.allow(rl.getLimiter("ip:"+ip, rl.config.IPRequestsPerSecond, rl.config.IPBurst), "ip")
}

// AllowWrite checks if a state-changing request from an IP is allowed
func (rl *RateLimiter) AllowWrite(ip string) (bool, *RateLimitInfo) {
	return rl.allow(rl.getLimiter("write:"+ip, rl.config.WritesPerSecond, rl.config.WriteBurst), "write")
}

func (rl *RateLimiter) allow(limiter *rate.Limiter, limitType string) (bool, *RateLimitInfo) {
	now := time.Now()
	info := &RateLimitInfo{
		Limit:     limiter.Burst(),
		LimitType: limitType,
	}
	if limiter.AllowN(now, 1) {
		info.Allowed = true
		info.Remaining = int(math.Max(0, limiter.TokensAt(now)))
		return true, info
	}

	if limiter.Limit() > 0 {
		missing := 1 - limiter.TokensAt(now)
		info.RetryAfter = int(math.Ceil(missing / float64(limiter.Limit())))
	}
	if info.RetryAfter < 1 {
		info.RetryAfter = 1
	}
	if rl.OnReject != nil {
		rl.OnReject(limitType)
	}
	return false, info
}

// RateLimitInfo contains rate limit information
type RateLimitInfo struct {
	Allowed    bool   `json:"allowed"`
	Remaining  int    `json:"remaining"`
	Limit      int    `json:"limit"`
	RetryAfter int    `json:"retry_after,omitempty"`
	LimitType  string `json:"limit_type"`
}

// ============ HTTP Middleware ============

// RateLimitMiddleware limits every request by client IP
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, info := rl.AllowIP(getClientIP(r))
			setLimitHeaders(w, info)
			if !allowed {
				writeLimited(w, info, "Too many requests, please slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteRateLimitMiddleware applies the stricter write limit to non-GET requests
func WriteRateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			allowed, info := rl.AllowWrite(getClientIP(r))
			if !allowed {
				setLimitHeaders(w, info)
				writeLimited(w, info, "Write limit exceeded")
				return
			}
			w.Header().Set("X-RateLimit-Write-Remaining", fmt.Sprintf("%d", info.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

func setLimitHeaders(w http.ResponseWriter, info *RateLimitInfo) {
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
}

func writeLimited(w http.ResponseWriter, info *RateLimitInfo, message string) {
	w.Header().Set("Content-Type", "application/json")
	if info.RetryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", info.RetryAfter))
	}
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":       "rate_limit_exceeded",
		"message":     message,
		"retry_after": info.RetryAfter,
		"limit_type":  info.LimitType,
	})
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Stats returns rate limiter statistics
type Stats struct {
	Limiters int `json:"limiters"`
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() *Stats {
	rl.limitersMu.Lock()
	defer rl.limitersMu.Unlock()
	return &Stats{Limiters: len(rl.limiters)}
}
