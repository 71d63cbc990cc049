package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

type clientWindow struct {
	hits    int
	resetAt time.Time
}

// RateLimiter caps requests per client IP within a fixed window. It
// guards session creation, which is the only unauthenticated endpoint.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	limit   int
	window  time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		window:  window,
	}
	go rl.prune()
	return rl
}

func (rl *RateLimiter) prune() {
	for {
		time.Sleep(rl.window)
		now := time.Now()
		rl.mu.Lock()
		for ip, c := range rl.clients {
			if now.After(c.resetAt) {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()

		rl.mu.Lock()
		c, ok := rl.clients[r.RemoteAddr]
		if !ok || now.After(c.resetAt) {
			c = &clientWindow{resetAt: now.Add(rl.window)}
			rl.clients[r.RemoteAddr] = c
		}
		c.hits++
		hits := c.hits
		retryAfter := time.Until(c.resetAt)
		rl.mu.Unlock()

		if hits > rl.limit {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
