package limiter

import (
	"time"
)

// TokenBucket is a rate limiter using integer nanosecond arithmetic.
// Avoids float64 accumulation drift over long runs. Not safe for concurrent use.
type TokenBucket struct {
	rateNsPerToken int64 // Nanoseconds per token (1e9 / rate)
	bucketSize     int64 // Maximum tokens
	tokens         int64
	lastCheck      int64 // UnixNano; advanced only by whole tokens

	now func() time.Time
}

// NewTokenBucket creates a limiter with the given rate (tokens/s) and burst size.
// The bucket starts full.
func NewTokenBucket(rate float64, burst float64) *TokenBucket {
	return newTokenBucket(rate, burst, time.Now)
}

func newTokenBucket(rate, burst float64, now func() time.Time) *TokenBucket {
	nsPerToken := int64(1e9 / rate)
	if nsPerToken < 1 {
		nsPerToken = 1
	}
	burstInt := int64(burst)
	if burstInt < 1 {
		burstInt = 1
	}
	return &TokenBucket{
		rateNsPerToken: nsPerToken,
		bucketSize:     burstInt,
		tokens:         burstInt,
		lastCheck:      now().UnixNano(),
		now:            now,
	}
}

func (tb *TokenBucket) refill() int64 {
	now := tb.now().UnixNano()
	earned := (now - tb.lastCheck) / tb.rateNsPerToken
	if earned <= 0 {
		return now
	}
	tb.tokens += earned
	tb.lastCheck += earned * tb.rateNsPerToken
	// Overflow restarts the clock. Landing exactly on full keeps the
	// partial interval, or every slightly late caller would lose rate.
	if tb.tokens > tb.bucketSize {
		tb.tokens = tb.bucketSize
		tb.lastCheck = now
	}
	return now
}

// TryTake consumes one token if available. It never blocks.
func (tb *TokenBucket) TryTake() bool {
	tb.refill()
	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}

// Delay returns how long until TryTake can succeed, or zero if it can now.
func (tb *TokenBucket) Delay() time.Duration {
	now := tb.refill()
	if tb.tokens >= 1 {
		return 0
	}
	return time.Duration(tb.lastCheck + tb.rateNsPerToken - now)
}
