package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"weconnect-crm/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ipEntry is the token bucket of one client IP.
type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter hands each client IP a token bucket refilled at limit per
// window, with a burst of limit. One instance backs each limited route group.
type ipLimiter struct {
	name   string
	every  rate.Limit
	burst  int
	window time.Duration
	msg    string

	mu      sync.Mutex
	entries map[string]*ipEntry
}

var (
	limiters   []*ipLimiter
	limitersMu sync.Mutex
	purgeOnce  sync.Once
)

func newIPLimiter(name string, limit int, window time.Duration, msg string) *ipLimiter {
	if limit < 1 {
		limit = 1
	}
	l := &ipLimiter{
		name:    name,
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		window:  window,
		msg:     msg,
		entries: make(map[string]*ipEntry),
	}
	limitersMu.Lock()
	limiters = append(limiters, l)
	limitersMu.Unlock()
	purgeOnce.Do(func() { go purgeIdleEntries() })
	return l
}

// allow takes one token for ip at now. When the bucket is empty it returns
// false and how long until a token is available.
func (l *ipLimiter) allow(ip string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[ip]
	if !ok {
		entry = &ipEntry{limiter: rate.NewLimiter(l.every, l.burst)}
		l.entries[ip] = entry
	}
	entry.lastSeen = now

	res := entry.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *ipLimiter) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := l.allow(c.ClientIP(), time.Now())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(l.msg))
			return
		}
		c.Next()
	}
}

// retryAfterSeconds rounds wait to whole seconds, at least 1.
func retryAfterSeconds(wait time.Duration) int {
	return max(1, int(wait.Round(time.Second)/time.Second))
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return newIPLimiter("login", 20, time.Minute, "too many login attempts, try again in a minute").handler()
}

// RateLimiter allows limit requests per window per IP, refilled evenly.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newIPLimiter("api", limit, window, "too many requests, try again shortly").handler()
}

// ── Purge goroutine ───────────────────────────────────────────────────────────
// Buckets idle for a full window are full again, so dropping them loses
// nothing and IPs that never return do not accumulate.

const purgeInterval = 5 * time.Minute

func purgeIdleEntries() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		limitersMu.Lock()
		current := append([]*ipLimiter(nil), limiters...)
		limitersMu.Unlock()

		for _, l := range current {
			if n, left := l.purge(time.Now()); n > 0 {
				log.Debug().Str("limiter", l.name).Int("purged", n).Int("remaining", left).Msg("rate limiter entries purged")
			}
		}
	}
}

func (l *ipLimiter) purge(now time.Time) (purged, remaining int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, entry := range l.entries {
		if now.Sub(entry.lastSeen) > l.window {
			delete(l.entries, ip)
			purged++
		}
	}
	return purged, len(l.entries)
}
