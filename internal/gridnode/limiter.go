package gridnode

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiter hands out one token bucket per session.
type limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// newLimiter allows requestsPerHour per session with the given burst.
func newLimiter(requestsPerHour int, burst int) *limiter {
	return &limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(float64(requestsPerHour) / 3600.0),
		burst:    burst,
	}
}

func (l *limiter) get(sessionID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[sessionID]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[sessionID] = lim
	}
	return lim
}

func (l *limiter) allow(sessionID string) bool {
	return l.get(sessionID).Allow()
}

func (l *limiter) tokens(sessionID string) float64 {
	return l.get(sessionID).Tokens()
}

// forget drops the bucket of an ended session.
func (l *limiter) forget(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, sessionID)
}
