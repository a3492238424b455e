package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/metrics"
)

const (
	// blockAfter violations within violationWindow block an IP for blockFor.
	blockAfter      = 10
	violationWindow = time.Hour
	blockFor        = 24 * time.Hour
)

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	Whitelist        []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled bool     // Enable auto-blocking after repeated violations

	// JoinsPerMinute caps join-document frames on one websocket. Zero
	// disables the cap.
	JoinsPerMinute int
}

// RateLimiter counts hits in Redis sorted sets over a sliding window.
// Without a Redis client every request passes.
type RateLimiter struct {
	client    *redis.Client
	logger    zerolog.Logger
	cfg       RateLimiterConfig
	whitelist []*net.IPNet
	now       func() time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger, cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		client: client,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}

	for _, entry := range cfg.Whitelist {
		if !strings.Contains(entry, "/") {
			if strings.Contains(entry, ":") {
				entry += "/128"
			} else {
				entry += "/32"
			}
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Warn().Str("entry", entry).Err(err).Msg("invalid whitelist entry")
			continue
		}
		rl.whitelist = append(rl.whitelist, ipNet)
	}
	if len(rl.whitelist) > 0 {
		logger.Info().Int("entries", len(rl.whitelist)).Msg("rate limit whitelist configured")
	}

	return rl
}

func (rl *RateLimiter) isWhitelisted(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, ipNet := range rl.whitelist {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// RealIP returns the client address. chi's RealIP middleware runs earlier in
// the chain and has already applied X-Forwarded-For and X-Real-IP.
func RealIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// allow records one hit on key and reports whether the hits inside the
// last window, this one included, stay within limit.
func (rl *RateLimiter) allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int) {
	now := rl.now()
	defer func(start time.Time) {
		metrics.RedisLatency.Observe(time.Since(start).Seconds())
	}(time.Now())

	pipe := rl.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(now.Add(-window).UnixMicro(), 10))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMicro()),
		Member: strconv.FormatInt(now.UnixNano(), 36),
	})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open: Redis trouble must not take editing down.
		rl.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
		return true, limit
	}

	n := int(count.Val())
	return n <= limit, max(limit-n, 0)
}

// Limit returns middleware allowing each client IP requests per window on
// the routes it wraps. name keeps separate routes in separate counters.
func (rl *RateLimiter) Limit(name string, requests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := RealIP(r)
			if rl.client == nil || rl.isWhitelisted(ip) {
				next.ServeHTTP(w, r)
				return
			}

			if rl.isBlocked(r.Context(), ip) {
				rl.logger.Warn().
					Str("type", "security").
					Str("event", "blocked_request").
					Str("ip", ip).
					Str("limit", name).
					Msg("blocked IP attempted request")
				metrics.BlockedRequests.WithLabelValues("ip_blocked").Inc()
				writeError(w, http.StatusForbidden, "temporarily blocked")
				return
			}

			allowed, remaining := rl.allow(r.Context(), "ratelimit:"+name+":"+ip, requests, window)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				rl.trackViolation(r.Context(), ip)
				metrics.RateLimitHits.WithLabelValues(name).Inc()
				rl.logger.Warn().
					Str("type", "security").
					Str("event", "rate_limit_exceeded").
					Str("ip", ip).
					Str("limit", name).
					Msg("rate limit exceeded")

				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AllowJoin reports whether connection connID may join another document.
// Every join sends a full snapshot, so room hopping is capped per socket.
func (rl *RateLimiter) AllowJoin(ctx context.Context, connID string) bool {
	if rl.client == nil || rl.cfg.JoinsPerMinute <= 0 {
		return true
	}
	allowed, _ := rl.allow(ctx, "ratelimit:join:"+connID, rl.cfg.JoinsPerMinute, time.Minute)
	if !allowed {
		metrics.RateLimitHits.WithLabelValues("join").Inc()
	}
	return allowed
}

// trackViolation counts rate limit violations and blocks repeat offenders.
func (rl *RateLimiter) trackViolation(ctx context.Context, ip string) {
	if !rl.cfg.AutoBlockEnabled {
		return
	}

	key := "violations:ip:" + ip
	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return
	}
	rl.client.Expire(ctx, key, violationWindow)

	if count >= blockAfter {
		rl.client.Set(ctx, "blocked:ip:"+ip, "repeated rate limit violations", blockFor)
		rl.logger.Warn().
			Str("type", "security").
			Str("event", "ip_auto_blocked").
			Str("ip", ip).
			Int64("violations", count).
			Msg("IP auto-blocked for repeated violations")
	}
}

func (rl *RateLimiter) isBlocked(ctx context.Context, ip string) bool {
	n, _ := rl.client.Exists(ctx, "blocked:ip:"+ip).Result()
	return n > 0
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
