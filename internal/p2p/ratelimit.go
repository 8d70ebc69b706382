package p2p

import (
	"math"
	"sync"
	"time"

	"github.com/goodnatureofminers/btpc-node/internal/clock"
	"github.com/goodnatureofminers/btpc-node/pkg/safe"
)

// RateLimiterConfig bounds the messages and bytes one peer may send per window.
type RateLimiterConfig struct {
	MessagesPerWindow uint32
	BytesPerWindow    uint64
	Window            time.Duration
}

func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MessagesPerWindow: 100,
		BytesPerWindow:    5_000_000,
		Window:            time.Second,
	}
}

// RateLimiterStats is a point-in-time view of the current window.
type RateLimiterStats struct {
	Messages      uint32
	Bytes         uint64
	WindowElapsed time.Duration
}

// RateLimiter enforces two independent budgets over a resetting window.
// Counts are cleared when a full window has elapsed rather than carried
// over, so a burst at the boundary cannot double the budget.
type RateLimiter struct {
	cfg   RateLimiterConfig
	clock clock.Clock

	mu          sync.Mutex
	messages    uint32
	bytes       uint64
	windowStart time.Time
	lastSeen    time.Time
}

func NewRateLimiter(cfg RateLimiterConfig, clk clock.Clock) *RateLimiter {
	now := clk.Now()
	return &RateLimiter{cfg: cfg, clock: clk, windowStart: now, lastSeen: now}
}

// CheckAndRecord admits a message of size bytes and charges it to the window.
func (r *RateLimiter) CheckAndRecord(size uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.lastSeen = now
	if r.expired(now) {
		r.messages, r.bytes, r.windowStart = 0, 0, now
	}
	if err := r.check(r.messages, r.bytes, size); err != nil {
		return err
	}
	r.messages++
	r.bytes = saturatingAdd(r.bytes, size)
	return nil
}

// CheckOnly returns the verdict CheckAndRecord would give without charging anything.
func (r *RateLimiter) CheckOnly(size uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages, bytes := r.messages, r.bytes
	if r.expired(r.clock.Now()) {
		messages, bytes = 0, 0
	}
	return r.check(messages, bytes, size)
}

func (r *RateLimiter) check(messages uint32, bytes, size uint64) error {
	if messages >= r.cfg.MessagesPerWindow {
		return &MessageRateExceededError{Current: messages, Limit: r.cfg.MessagesPerWindow}
	}
	if saturatingAdd(bytes, size) > r.cfg.BytesPerWindow {
		return &BandwidthExceededError{Current: bytes, Additional: size, Limit: r.cfg.BytesPerWindow}
	}
	return nil
}

func (r *RateLimiter) expired(now time.Time) bool {
	return now.Sub(r.windowStart) >= r.cfg.Window
}

func (r *RateLimiter) Stats() RateLimiterStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RateLimiterStats{
		Messages:      r.messages,
		Bytes:         r.bytes,
		WindowElapsed: r.clock.Now().Sub(r.windowStart),
	}
}

// Reset clears the counts and starts a new window.
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages, r.bytes, r.windowStart = 0, 0, r.clock.Now()
}

// idleSince reports when the limiter last saw a message.
func (r *RateLimiter) idleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeen
}

func saturatingAdd(a, b uint64) uint64 {
	sum, err := safe.AddUint64(a, b)
	if err != nil {
		return math.MaxUint64
	}
	return sum
}
