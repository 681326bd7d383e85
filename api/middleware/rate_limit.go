package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/angelmondragon/user-management/api/responses"
	pkgerrors "github.com/angelmondragon/user-management/pkg/errors"
	"github.com/angelmondragon/user-management/pkg/logger"
)

const (
	idleLimiterTTL   = 10 * time.Minute
	sweepThreshold   = 10000
	defaultPolicyTag = "api"
)

// RateLimitStore keeps fixed-window counters shared across instances.
type RateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy describes how many requests one client may issue per window.
type RateLimitPolicy struct {
	Name     string
	Requests int
	Window   time.Duration
	Burst    int
}

func (p RateLimitPolicy) enabled() bool {
	return p.Requests > 0 && p.Window > 0
}

func (p RateLimitPolicy) name() string {
	if n := strings.ToLower(strings.TrimSpace(p.Name)); n != "" {
		return n
	}
	return defaultPolicyTag
}

func (p RateLimitPolicy) burst() int {
	if p.Burst > 0 {
		return p.Burst
	}
	return p.Requests
}

type localLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters holds one token bucket per client address.
type ipLimiters struct {
	mu      sync.Mutex
	policy  RateLimitPolicy
	clients map[string]*localLimiter
	now     func() time.Time
}

func newIPLimiters(policy RateLimitPolicy) *ipLimiters {
	return &ipLimiters{
		policy:  policy,
		clients: make(map[string]*localLimiter),
		now:     time.Now,
	}
}

func (l *ipLimiters) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.clients) >= sweepThreshold {
		for key, entry := range l.clients {
			if now.Sub(entry.lastSeen) > idleLimiterTTL {
				delete(l.clients, key)
			}
		}
	}

	entry, ok := l.clients[ip]
	if !ok {
		every := l.policy.Window / time.Duration(l.policy.Requests)
		entry = &localLimiter{limiter: rate.NewLimiter(rate.Every(every), l.policy.burst())}
		l.clients[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// RateLimit throttles per client IP. With a shared store the counters live
// in Redis; without one, or when Redis errors, an in-process token bucket
// applies.
func RateLimit(policy RateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() {
			return next
		}
		local := newIPLimiters(policy)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)

			allowed := true
			shared := false
			if store != nil {
				ok, _, err := store.FixedWindowAllow(ctx, policy.name()+":"+ip, int64(policy.Requests), policy.Window)
				if err == nil {
					allowed, shared = ok, true
				} else if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "rate_limit.store_unavailable")
				}
			}
			if !shared {
				allowed = local.allow(ip)
			}

			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"policy":         policy.name(),
						"ip":             ip,
						"limit":          policy.Requests,
						"window_seconds": policy.Window.Seconds(),
					})
					logg.Warn(logCtx, "rate_limit.blocked")
				}
				w.Header().Set("Retry-After", retryAfter(policy.Window))
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(window time.Duration) string {
	secs := int(window.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
