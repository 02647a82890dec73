// Package ratelimit implements the fixed-window throttle applied to contact
// form submissions.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// hitScript increments the window counter and starts the window on the first
// hit. The TTL is never refreshed by later hits, so the window stays fixed.
var hitScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
if ttl < 0 then
  redis.call('EXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// Decision is the result of one Admit call.
type Decision struct {
	Allowed           bool
	Attempts          int64
	RetryAfterSeconds int
}

// Limiter admits at most maxAttempts hits per key inside a fixed window.
type Limiter struct {
	client      redis.Scripter
	maxAttempts int64
	window      time.Duration
	logger      *zap.Logger
}

// NewLimiter builds a limiter on top of a Redis scripter.
func NewLimiter(client redis.Scripter, maxAttempts int, window time.Duration, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		client:      client,
		maxAttempts: int64(maxAttempts),
		window:      window,
		logger:      logger,
	}
}

// Key derives the counter key for a client address within namespace.
func Key(namespace, clientAddr string) string {
	clientAddr = strings.TrimSpace(clientAddr)
	if clientAddr == "" {
		clientAddr = "unknown"
	}
	return fmt.Sprintf("%s:%s", namespace, clientAddr)
}

// Admit counts one attempt for key and reports whether it fits in the window.
// Every call counts, including rejected ones. When the counter store cannot be
// reached the attempt is admitted and the failure is logged.
func (l *Limiter) Admit(ctx context.Context, key string) Decision {
	windowSeconds := int64(l.window / time.Second)
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	res, err := hitScript.Run(ctx, l.client, []string{key}, windowSeconds).Int64Slice()
	if err != nil || len(res) != 2 {
		l.logger.Warn("rate limit store unavailable; admitting request",
			zap.String("key", key), zap.Error(err))
		return Decision{Allowed: true}
	}

	attempts, ttl := res[0], res[1]
	if attempts <= l.maxAttempts {
		return Decision{Allowed: true, Attempts: attempts}
	}
	if ttl < 1 {
		ttl = 1
	}
	return Decision{Allowed: false, Attempts: attempts, RetryAfterSeconds: int(ttl)}
}
