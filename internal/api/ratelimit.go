package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// IPRateLimiter hands out one token bucket per client address. Idle
// clients are forgotten after limiterTTL.
type IPRateLimiter struct {
	mu  sync.Mutex
	ips *expirable.LRU[string, *rate.Limiter]
	r   rate.Limit
	b   int
}

const (
	maxLimiters = 1024
	limiterTTL  = 10 * time.Minute
)

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	if b < 1 {
		b = 1
	}
	return &IPRateLimiter{
		ips: expirable.NewLRU[string, *rate.Limiter](maxLimiters, nil, limiterTTL),
		r:   r,
		b:   b,
	}
}

func (l *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.ips.Get(ip)
	if !exists {
		limiter = rate.NewLimiter(l.r, l.b)
		l.ips.Add(ip, limiter)
	}
	return limiter
}

// Allow reports whether the client behind r may send another input now.
func (l *IPRateLimiter) Allow(r *http.Request) bool {
	if l == nil {
		return true
	}
	return l.GetLimiter(clientIP(r)).Allow()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
