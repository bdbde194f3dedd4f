package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

// IPRateLimiter keeps a token bucket per client IP. Buckets idle longer than
// ttl are dropped on the next sweep.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	rps      rate.Limit
	burst    int
	ttl      time.Duration
	lastGC   time.Time
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		limiters: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		ttl:      10 * time.Minute,
		now:      time.Now,
	}
}

func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastGC) > l.ttl {
		for k, v := range l.limiters {
			if now.Sub(v.lastSeen) > l.ttl {
				delete(l.limiters, k)
			}
		}
		l.lastGC = now
	}
	v, ok := l.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// LimitAnonymous throttles requests that carry no authenticated user. Must be
// mounted after OptionalAuth.
func LimitAnonymous(l *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l != nil && GetUserID(r.Context()) == "" && !l.Allow(ClientIP(r)) {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusTooManyRequests, models.NewErrorResponse("Too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HumanVerifier is satisfied by the reCAPTCHA verifier.
type HumanVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) (bool, string, error)
}

// RecaptchaHeader carries the reCAPTCHA token on anonymous requests.
const RecaptchaHeader = "X-Recaptcha-Token"

// RequireHumanIfAnonymous demands a verified reCAPTCHA token from anonymous
// callers when a verifier is enabled.
func RequireHumanIfAnonymous(v HumanVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil || !v.Enabled() || GetUserID(r.Context()) != "" {
				next.ServeHTTP(w, r)
				return
			}
			ok, reason, err := v.Verify(r.Context(), r.Header.Get(RecaptchaHeader), ClientIP(r))
			if err != nil {
				writeJSON(w, http.StatusBadGateway, models.NewErrorResponse("Captcha verification unavailable"))
				return
			}
			if !ok {
				writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Captcha verification failed: "+reason))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP prefers the address chi's RealIP middleware wrote into
// RemoteAddr, stripping the port.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
