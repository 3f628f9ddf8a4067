package ratelimit

import (
    "math"
    "sync"
    "time"
)

type bucket struct {
    tokens     float64
    capacity   float64
    refillRate float64 // tokens per second
    last       time.Time
}

// Limiter is a keyed token bucket used to throttle on-demand narrative generation.
type Limiter struct {
    mu  sync.Mutex
    m   map[string]*bucket
    now func() time.Time
}

func New() *Limiter { return &Limiter{m: make(map[string]*bucket), now: time.Now} }

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
    ok, _ := l.Reserve(key, capacity, refillPerSec)
    return ok
}

// Reserve consumes one token for key. When none is available it returns the
// wait until the next token without consuming anything.
func (l *Limiter) Reserve(key string, capacity, refillPerSec float64) (bool, time.Duration) {
    if capacity < 1 {
        capacity = 1
    }
    now := l.now()
    l.mu.Lock()
    defer l.mu.Unlock()

    b, ok := l.m[key]
    if !ok {
        b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
        l.m[key] = b
    }
    b.capacity, b.refillRate = capacity, refillPerSec

    elapsed := now.Sub(b.last).Seconds()
    if elapsed > 0 {
        b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillRate)
        b.last = now
    }
    if b.tokens >= 1 {
        b.tokens--
        return true, 0
    }
    if b.refillRate <= 0 {
        return false, time.Duration(math.MaxInt64)
    }
    wait := (1 - b.tokens) / b.refillRate
    return false, time.Duration(wait * float64(time.Second))
}

// Forget drops the bucket for key.
func (l *Limiter) Forget(key string) {
    l.mu.Lock()
    delete(l.m, key)
    l.mu.Unlock()
}
