package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterStore holds one token bucket per client IP. It never grows past
// maxClients and forgets clients idle for longer than idleTTL.
type RateLimiterStore struct {
	mu         sync.Mutex
	limiters   map[string]*limiterEntry
	perMinute  int
	maxClients int
	idleTTL    time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

func NewRateLimiterStore(perMinute, maxClients int, idleTTL time.Duration) *RateLimiterStore {
	if perMinute <= 0 {
		perMinute = 200
	}
	if maxClients <= 0 {
		maxClients = 10000
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &RateLimiterStore{
		limiters:   make(map[string]*limiterEntry),
		perMinute:  perMinute,
		maxClients: maxClients,
		idleTTL:    idleTTL,
		now:        time.Now,
	}
}

// getLimiter returns the limiter for ip, creating one if it doesn't exist.
func (s *RateLimiterStore) getLimiter(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idleTTL {
		s.evictIdle(now)
		s.lastSweep = now
	}

	if e, ok := s.limiters[ip]; ok {
		e.lastSeen = now
		return e.limiter
	}
	if len(s.limiters) >= s.maxClients {
		s.evictIdle(now)
		if len(s.limiters) >= s.maxClients {
			s.evictOldest()
		}
	}
	e := &limiterEntry{
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMinute)), s.perMinute),
		lastSeen: now,
	}
	s.limiters[ip] = e
	return e.limiter
}

func (s *RateLimiterStore) evictIdle(now time.Time) {
	for ip, e := range s.limiters {
		if now.Sub(e.lastSeen) > s.idleTTL {
			delete(s.limiters, ip)
		}
	}
}

func (s *RateLimiterStore) evictOldest() {
	var oldestIP string
	var oldest time.Time
	for ip, e := range s.limiters {
		if oldestIP == "" || e.lastSeen.Before(oldest) {
			oldestIP, oldest = ip, e.lastSeen
		}
	}
	delete(s.limiters, oldestIP)
}

// Len reports how many clients are tracked.
func (s *RateLimiterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RateLimitMiddleware limits requests per IP address.
func RateLimitMiddleware(store *RateLimiterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := clientIP(c)
		if !store.getLimiter(ip).Allow() {
			zap.L().Warn("Rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"code": "rate_limited", "message": "Rate limit exceeded. Try again later."})
			return
		}
		c.Next()
	}
}
