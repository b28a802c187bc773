package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// WithRateLimit throttles requests per client IP. rps <= 0 disables the
// limiter. Burst is twice the sustained rate so short spikes pass.
func WithRateLimit(next http.Handler, rps float64) http.Handler {
	if rps <= 0 {
		return next
	}

	burst := int(rps * 2)
	if burst < 1 {
		burst = 1
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}

		mu.Lock()
		limiter, ok := limiters[host]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[host] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
