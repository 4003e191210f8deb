// Package ratelimit throttles recognition calls per client.
//
// The limiter counts calls inside a fixed window that resets lazily when a
// client's window has elapsed. Within one window exactly Max calls are
// admitted and every further call is refused with a hint of how long to wait,
// which is the boundary behavior the recognition quota contract requires.
// The limiter is meant to be constructed once and injected wherever calls
// are gated; it owns a small janitor goroutine and must be closed.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Config holds the limiter settings.
type Config struct {
	Window time.Duration // length of the counting window
	Max    int           // calls admitted per client per window
}

// DefaultConfig returns the standard 100 calls per 60 seconds.
func DefaultConfig() Config {
	return Config{Window: time.Minute, Max: 100}
}

type window struct {
	start time.Time
	count int
}

// Limiter tracks one counting window per client id. All methods are safe
// for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	clients map[string]*window
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a limiter and starts its janitor, which drops windows that
// have been idle for a full period so the per-client map cannot grow without
// bound. Call Close when the limiter is no longer needed.
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultConfig().Max
	}
	l := &Limiter{
		cfg:     cfg,
		clients: make(map[string]*window),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Allow consumes one call slot for the client. When the slot is granted it
// returns (true, 0). When the client has exhausted its window it returns
// false plus the whole number of seconds until the window rolls over, never
// more than the window length.
func (l *Limiter) Allow(clientID string) (ok bool, retryAfter int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.clients[clientID]
	if w == nil || now.Sub(w.start) >= l.cfg.Window {
		w = &window{start: now}
		l.clients[clientID] = w
	}

	if w.count >= l.cfg.Max {
		remaining := l.cfg.Window - now.Sub(w.start)
		secs := int(math.Ceil(remaining.Seconds()))
		if secs < 1 {
			secs = 1
		}
		return false, secs
	}

	w.count++
	return true, 0
}

// Reset forgets the client's current window.
func (l *Limiter) Reset(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, clientID)
}

// Close stops the janitor. The limiter keeps answering Allow afterwards, but
// idle windows are no longer swept.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
}

func (l *Limiter) janitor() {
	ticker := time.NewTicker(l.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for id, w := range l.clients {
		if now.Sub(w.start) >= l.cfg.Window {
			delete(l.clients, id)
		}
	}
}
