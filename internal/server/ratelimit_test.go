package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllow(t *testing.T) {
	m := NewRateLimiter(60, 2, nil)
	defer m.Close()

	assert.True(t, m.Allow("ip:10.0.0.1"))
	assert.True(t, m.Allow("ip:10.0.0.1"))
	assert.False(t, m.Allow("ip:10.0.0.1"))

	// Keys have independent buckets
	assert.True(t, m.Allow("ip:10.0.0.2"))

	stats := m.GetStats()
	assert.Equal(t, 2, stats["active_limiters"])
	assert.Equal(t, int64(1), stats["rejected_total"])
	assert.InDelta(t, 60.0, stats["rate_per_minute"], 1e-9)

	// Close is safe to repeat
	m.Close()
}

func TestRateLimiterSweep(t *testing.T) {
	m := NewRateLimiter(60, 1, nil)
	defer m.Close()

	m.Allow("api:abc")
	assert.Equal(t, 0, m.sweep(time.Hour))
	assert.Equal(t, 1, m.sweep(0))
	assert.Equal(t, 0, m.GetStats()["active_limiters"])
}

func TestGetRateLimitKey(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		byAPIKey bool
		byIP     bool
		want     string
	}{
		{"api key header", map[string]string{"X-API-Key": "k1"}, true, true, "api:k1"},
		{"bearer token", map[string]string{"Authorization": "Bearer k2"}, true, false, "api:k2"},
		{"falls back to ip", nil, true, true, "ip:192.0.2.1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "bogus, 203.0.113.7, 10.0.0.1"}, false, true, "ip:203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, false, true, "ip:198.51.100.2"},
		{"disabled", map[string]string{"X-API-Key": "k1"}, false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getRateLimitKey(r, tt.byAPIKey, tt.byIP))
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "60", retryAfterSeconds(0))
	assert.Equal(t, "1", retryAfterSeconds(rate.Limit(2)))
	assert.Equal(t, "2", retryAfterSeconds(rate.Limit(0.5)))
}
