// Package ratelimit throttles MCP tool calls with one token bucket per key.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out a golang.org/x/time/rate bucket per key, created full on
// first use. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rate    rate.Limit
	burst   int
	nowFunc func() time.Time
}

// NewLimiter creates a limiter refilling perSecond tokens per second up to
// burst.
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rate:    rate.Limit(perSecond),
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow takes one token from key's bucket and reports whether one was there.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.rate, l.burst)
		l.buckets[key] = b
	}
	now := l.nowFunc()
	l.mu.Unlock()

	return b.AllowN(now, 1)
}

// ToolLimiters maps tool names to their limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters returns the limits for the stuckpick tools. Reads are
// cheap; writes rewrite list files, and restore rewrites all of them.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"stuckpick_lists":    NewLimiter(1.0, 10),      // 60/minute
		"stuckpick_pick":     NewLimiter(1.0, 10),      // 60/minute
		"stuckpick_feedback": NewLimiter(30.0/60.0, 5), // 30/minute
		"stuckpick_rate":     NewLimiter(30.0/60.0, 5), // 30/minute
		"stuckpick_backup":   NewLimiter(5.0/60.0, 2),  // 5/minute
		"stuckpick_restore":  NewLimiter(5.0/60.0, 1),  // 5/minute
	}
}

// CheckLimit returns an error when toolName is over its limit. Tools
// without a limiter always pass.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if !limiter.Allow(toolName) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}
	return nil
}
