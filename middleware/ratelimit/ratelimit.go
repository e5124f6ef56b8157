// Package ratelimit provides a per-client token-bucket throttle for the
// forge server: like middleware/accesslog, it is a plain hook rather than
// a chained middleware, since forge has no middleware chain. The server
// calls the hook once before dispatch; a non-nil return rejects the
// request with 429 before the route tree or handler ever sees it.
package ratelimit

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/forgehttp/forge"
)

// Config holds the token-bucket parameters: Requests tokens are granted
// every Duration, up to Burst tokens banked at once. ExpiresIn bounds how
// long an idle client's bucket is kept before CleanupVisitors reclaims it.
type Config struct {
	Requests  int
	Burst     int
	Duration  time.Duration
	ExpiresIn time.Duration
}

// DefaultConfig allows one request per minute per client, with no burst.
func DefaultConfig() Config {
	return Config{
		Requests:  1,
		Burst:     1,
		Duration:  time.Minute,
		ExpiresIn: time.Hour,
	}
}

// ErrLimited is returned by Hook when a client has exhausted its bucket.
var ErrLimited = forge.NewHttpError(forge.StatusTooManyRequests, "rate limit exceeded")

// visitor pairs a client's limiter with its last-seen time, so
// CleanupVisitors can evict buckets nobody is using anymore.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Hook is called once per request, before dispatch. A non-nil error
// rejects the request; middleware/ratelimit built the error as an
// *forge.HttpError so the server can recover its status code.
type Hook func(req *forge.Request) error

// Limiter buckets requests per client host and can be shared across
// multiple Hook values returned from the same New call (New's closure
// already returns one bound to a single Limiter).
type Limiter struct {
	cfg Config

	mu       sync.Mutex
	visitors map[string]*visitor

	stop chan struct{}
}

// New builds a rate-limiting Hook from an optional Config (the first one
// wins; DefaultConfig() is used if none is given). It starts a background
// janitor goroutine that evicts idle visitor buckets; call Close on the
// returned Limiter during shutdown to stop it.
func New(config ...Config) (Hook, *Limiter) {
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	l := &Limiter{
		cfg:      cfg,
		visitors: make(map[string]*visitor),
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop()

	return l.Allow, l
}

// Allow is the Hook: it reports ErrLimited if req's client host has
// exhausted its token bucket, nil otherwise. The port of the client
// address is ignored, so every connection from one host shares a bucket.
func (l *Limiter) Allow(req *forge.Request) error {
	key := req.ClientAddr
	if host, _, err := net.SplitHostPort(key); err == nil {
		key = host
	}
	if !l.visitorFor(key).Allow() {
		return ErrLimited
	}
	return nil
}

// visitorFor returns the existing limiter for ip, creating one (seeded
// per Config) on first sight.
func (l *Limiter) visitorFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		every := l.cfg.Duration
		if l.cfg.Requests > 0 {
			every = l.cfg.Duration / time.Duration(l.cfg.Requests)
		}
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), l.cfg.Burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupLoop evicts visitor buckets idle past Config.ExpiresIn, once a
// minute, until Close is called.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if time.Since(v.lastSeen) > l.cfg.ExpiresIn {
			delete(l.visitors, ip)
		}
	}
}

// Close stops the janitor goroutine. Safe to call once; a second call
// panics on the closed channel, matching sync.Once-less teardown code
// elsewhere in this codebase.
func (l *Limiter) Close() {
	close(l.stop)
}
