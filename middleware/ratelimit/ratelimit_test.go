package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgehttp/forge"
)

func newTestRequest(clientAddr string) *forge.Request {
	return forge.NewRequest(forge.MethodGet, "/", "HTTP/1.1", forge.NewHeader(), nil, clientAddr, nil)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1, cfg.Requests)
	assert.Equal(t, time.Minute, cfg.Duration)
}

func TestNewAllowsFirstRequestThenRejects(t *testing.T) {
	hook, limiter := New(Config{Requests: 1, Burst: 1, Duration: time.Minute, ExpiresIn: time.Hour})
	defer limiter.Close()

	req := newTestRequest("10.0.0.1:1234")
	require.NoError(t, hook(req))

	err := hook(req)
	require.Error(t, err)
	var httpErr *forge.HttpError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, forge.StatusTooManyRequests, httpErr.Code)
}

func TestNewTracksClientsSeparately(t *testing.T) {
	hook, limiter := New(Config{Requests: 1, Burst: 1, Duration: time.Minute, ExpiresIn: time.Hour})
	defer limiter.Close()

	require.NoError(t, hook(newTestRequest("10.0.0.1:1")))
	require.NoError(t, hook(newTestRequest("10.0.0.2:1")))
	require.Error(t, hook(newTestRequest("10.0.0.1:1")))
}

func TestLimiterSweepEvictsIdleVisitors(t *testing.T) {
	l := &Limiter{
		cfg:      Config{Requests: 1, Burst: 1, Duration: time.Minute, ExpiresIn: time.Millisecond},
		visitors: make(map[string]*visitor),
		stop:     make(chan struct{}),
	}
	l.visitorFor("10.0.0.1:1")
	time.Sleep(5 * time.Millisecond)
	l.sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.visitors)
}
