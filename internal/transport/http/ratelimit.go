package httptransport

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter hands out one token bucket per client IP. Buckets idle for
// longer than limiterIdleTTL are forgotten.
type IPRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	now     func() time.Time
	lastGC  time.Time

	exemptLoopback bool
}

func NewIPRateLimiter(perSecond float64, burst int) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
	}
}

// WithLoopbackExempt lets requests from 127.0.0.0/8 and ::1 through
// unlimited. Agents on the same host all share the loopback address, so one
// busy agent would otherwise throttle the rest.
func (l *IPRateLimiter) WithLoopbackExempt(enabled bool) *IPRateLimiter {
	l.exemptLoopback = enabled
	return l
}

// Allow consumes one token for ip.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastGC) > limiterIdleTTL {
		for key, cl := range l.clients {
			if now.Sub(cl.lastSeen) > limiterIdleTTL {
				delete(l.clients, key)
			}
		}
		l.lastGC = now
	}

	cl, ok := l.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the limit with 429. A non-positive rate
// disables limiting.
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.limit <= 0 {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if l.exemptLoopback {
			if parsed := net.ParseIP(ip); parsed != nil && parsed.IsLoopback() {
				c.Next()
				return
			}
		}
		if !l.Allow(ip) {
			c.Header("Retry-After", "1")
			AbortWithError(c, http.StatusTooManyRequests, "too many requests", nil)
			return
		}
		c.Next()
	}
}
