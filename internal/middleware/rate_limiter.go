package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"restopos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Contador counts hits for a key inside a fixed window.
type Contador interface {
	Incrementar(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimiter caps requests per client in each window. The shared counter is
// Redis; when it fails the process-local counter takes over so an outage never
// blocks the floor.
func RateLimiter(shared Contador, limit int, window time.Duration) gin.HandlerFunc {
	local := NewContadorLocal()
	return func(c *gin.Context) {
		key := clientKey(c)

		count, ttl, err := shared.Incrementar(c.Request.Context(), key, window)
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter: shared counter unavailable, using local")
			count, ttl, _ = local.Incrementar(c.Request.Context(), key, window)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if count > int64(limit) {
			secs := int(ttl.Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}

// clientKey prefers the authenticated user over the client IP; tablets behind
// the same NAT would otherwise share one budget.
func clientKey(c *gin.Context) string {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*JWTClaims); ok {
			return "u:" + claims.UserID
		}
	}
	return "ip:" + c.ClientIP()
}

// ── Local counter ─────────────────────────────────────────────────────────────

type ventana struct {
	count int64
	fin   time.Time
}

// ContadorLocal is an in-process fixed-window counter.
type ContadorLocal struct {
	mu      sync.Mutex
	entries map[string]*ventana
	now     func() time.Time
}

func NewContadorLocal() *ContadorLocal {
	return &ContadorLocal{entries: make(map[string]*ventana), now: time.Now}
}

func (l *ContadorLocal) Incrementar(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || now.After(e.fin) {
		e = &ventana{fin: now.Add(window)}
		l.entries[key] = e
	}
	e.count++

	if len(l.entries) > 10000 {
		l.purgar(now)
	}
	return e.count, e.fin.Sub(now), nil
}

// purgar removes expired windows. Caller holds mu.
func (l *ContadorLocal) purgar(now time.Time) {
	purged := 0
	for k, e := range l.entries {
		if now.After(e.fin) {
			delete(l.entries, k)
			purged++
		}
	}
	log.Debug().
		Int("entries_purged", purged).
		Int("entries_remaining", len(l.entries)).
		Msg("rate limiter map purged")
}
