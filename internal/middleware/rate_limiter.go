package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"minimarket/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const purgeInterval = 5 * time.Minute

type visitante struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP. Idle buckets are
// purged lazily on the request path, so no background goroutine is needed.
type IPRateLimiter struct {
	mu        sync.Mutex
	visitas   map[string]*visitante
	limit     rate.Limit
	burst     int
	nextPurge time.Time
	now       func() time.Time
}

func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		visitas: make(map[string]*visitante),
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *IPRateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.nextPurge) {
		l.purge(now)
		l.nextPurge = now.Add(purgeInterval)
	}

	v, ok := l.visitas[ip]
	if !ok {
		v = &visitante{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitas[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// purge must be called with l.mu held.
func (l *IPRateLimiter) purge(now time.Time) {
	purged := 0
	for ip, v := range l.visitas {
		if now.Sub(v.lastSeen) > purgeInterval {
			delete(l.visitas, ip)
			purged++
		}
	}
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(l.visitas)).Msg("rate limiter purged")
	}
}

// Middleware rejects requests over the per-IP rate with 429.
func (l *IPRateLimiter) Middleware(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		lim := l.limiterFor(c.ClientIP())
		if !lim.Allow() {
			retry := 1
			if l.limit > 0 {
				retry = int(math.Ceil(1 / float64(l.limit)))
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// RateLimiter is the general API limiter.
func RateLimiter(rps float64, burst int) gin.HandlerFunc {
	return NewIPRateLimiter(rps, burst).Middleware("Demasiadas solicitudes. Intente nuevamente en un momento.")
}

// LoginRateLimiter allows 20 login attempts per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return NewIPRateLimiter(20.0/60.0, 20).Middleware("Demasiados intentos de login. Intente en 1 minuto.")
}
