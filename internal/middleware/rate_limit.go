package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"gemsmith/internal/config"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// clientEntry holds one client's limiter and its last activity time.
type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a per-client-IP request budget. Generation calls are
// expensive upstream, so this gate runs before any orchestration work.
type RateLimiter struct {
	mu      sync.RWMutex
	clients map[string]*clientEntry
	rate    rate.Limit
	burst   int
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewRateLimiter creates a limiter allowing rps requests per second per IP.
func NewRateLimiter(rps int) *RateLimiter {
	ctx, cancel := context.WithCancel(context.Background())
	rl := &RateLimiter{
		clients: make(map[string]*clientEntry),
		rate:    rate.Limit(rps),
		burst:   rps,
		ctx:     ctx,
		cancel:  cancel,
	}

	go rl.cleanupClients()

	return rl
}

// GetLimiter returns the limiter for a client IP, creating it if needed.
func (rl *RateLimiter) GetLimiter(clientIP string) *rate.Limiter {
	rl.mu.RLock()
	entry, exists := rl.clients[clientIP]
	if exists {
		entry.lastSeen = time.Now()
		rl.mu.RUnlock()
		return entry.limiter
	}
	rl.mu.RUnlock()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring the write lock.
	if entry, exists := rl.clients[clientIP]; exists {
		entry.lastSeen = time.Now()
		return entry.limiter
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.clients[clientIP] = &clientEntry{
		limiter:  limiter,
		lastSeen: time.Now(),
	}

	return limiter
}

// cleanupClients periodically drops limiters for inactive clients.
func (rl *RateLimiter) cleanupClients() {
	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.ctx.Done():
			return
		case <-ticker.C:
			rl.cleanupInactiveClients()
		}
	}
}

func (rl *RateLimiter) cleanupInactiveClients() {
	now := time.Now()
	threshold := 10 * time.Minute

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, entry := range rl.clients {
		if now.Sub(entry.lastSeen) > threshold {
			delete(rl.clients, ip)
		}
	}
}

// Close stops the cleanup goroutine.
func (rl *RateLimiter) Close() {
	rl.cancel()
}

// getClientIP extracts the client IP, preferring proxy headers.
func getClientIP(c echo.Context) string {
	if ip := c.Request().Header.Get("X-Real-IP"); ip != "" {
		if parsedIP := net.ParseIP(ip); parsedIP != nil {
			return ip
		}
	}

	if ip := c.Request().Header.Get("X-Forwarded-For"); ip != "" {
		if firstIP := getFirstIP(ip); firstIP != "" {
			if parsedIP := net.ParseIP(firstIP); parsedIP != nil {
				return firstIP
			}
		}
	}

	if ip, _, err := net.SplitHostPort(c.Request().RemoteAddr); err == nil {
		return ip
	}

	return c.Request().RemoteAddr
}

// getFirstIP returns the first entry of a comma-separated IP list.
func getFirstIP(ips string) string {
	for i, char := range ips {
		if char == ',' {
			return ips[:i]
		}
	}
	return ips
}

var globalRateLimiter *RateLimiter
var rateLimiterOnce sync.Once

// RateLimit creates the rate-limit middleware; a no-op when disabled.
func RateLimit(cfg *config.Config) echo.MiddlewareFunc {
	if !cfg.Security.RateLimitEnabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	rateLimiterOnce.Do(func() {
		globalRateLimiter = NewRateLimiter(cfg.Security.RateLimitRPS)
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clientIP := getClientIP(c)

			limiter := globalRateLimiter.GetLimiter(clientIP)

			if !limiter.Allow() {
				return echo.NewHTTPError(http.StatusTooManyRequests, map[string]any{
					"error": map[string]any{
						"code":        "rate_limit_exceeded",
						"message":     "too many generation requests, slow down",
						"limit":       cfg.Security.RateLimitRPS,
						"retry_after": "1s",
					},
				})
			}

			return next(c)
		}
	}
}
