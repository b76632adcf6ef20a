/*
Package limiter provides per-IP rate limiting.

It uses the token bucket algorithm (rate.Limiter) to control the request
frequency of each client IP and runs a cleanup goroutine that removes
idle limiters so the map does not grow without bound.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/resp"
)

// cleanupInterval controls how often idle limiters are swept from the map.
const cleanupInterval = 3 * time.Minute

// IPRateLimiter tracks one token bucket per client IP address.
type IPRateLimiter struct {
	// mu protects concurrent access to the visitors map.
	mu sync.RWMutex

	// visitors maps a client IP address to its *rate.Limiter instance.
	visitors map[string]*rate.Limiter

	// r is the sustained rate, in events per second.
	r rate.Limit

	// b is the burst size (token bucket capacity).
	b int
}

// NewIPRateLimiter creates an IPRateLimiter with rate r and burst b and starts
// the background cleanup goroutine.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		visitors: make(map[string]*rate.Limiter),
		r:        r,
		b:        b,
	}

	go i.cleanUpVisitors()

	return i
}

// GetLimiter returns the limiter for the given IP, creating one on first use.
// Creation uses double-checked locking so concurrent callers share a single limiter.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.visitors[ip]
	i.mu.RUnlock()

	if !exists {
		i.mu.Lock()
		limiter, exists = i.visitors[ip]
		if !exists {
			limiter = rate.NewLimiter(i.r, i.b)
			i.visitors[ip] = limiter
		}
		i.mu.Unlock()
	}

	return limiter
}

// cleanUpVisitors periodically removes limiters whose bucket has refilled
// completely, meaning the IP has been idle long enough to forget.
func (i *IPRateLimiter) cleanUpVisitors() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		i.mu.Lock()
		removed := 0
		for ip, limiter := range i.visitors {
			if limiter.TokensAt(time.Now()) >= float64(limiter.Burst()) {
				delete(i.visitors, ip)
				removed++
			}
		}
		remaining := len(i.visitors)
		i.mu.Unlock()

		logx.Info("Rate limiter cleanup finished.", "removed", removed, "remaining", remaining)
	}
}

// ClientIP extracts the host part of the request's remote address,
// falling back to the raw value when it has no port.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if ip == "" {
		ip = "unknown_ip"
	}

	return ip
}

// Middleware returns an HTTP middleware enforcing the rate limit.
// Requests over the limit receive a 429 Too Many Requests response.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := i.GetLimiter(ClientIP(r))

		if !limiter.Allow() {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}
