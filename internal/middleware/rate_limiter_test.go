package middleware

import (
	"testing"
	"time"
)

func TestIPRateLimiterAllowsBurstThenDenies(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Minute, 2, time.Hour)

	if !limiter.Allow("1.2.3.4") {
		t.Fatal("first request should be allowed")
	}
	if !limiter.Allow("1.2.3.4") {
		t.Fatal("burst request should be allowed")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("request beyond the burst should be denied")
	}
}

func TestIPRateLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Minute, 1, time.Hour)

	if !limiter.Allow("1.2.3.4") {
		t.Fatal("first key should be allowed")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("first key should now be limited")
	}
	if !limiter.Allow("5.6.7.8") {
		t.Fatal("a different key must not be affected")
	}
}

func TestIPRateLimiterEmptyKey(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Minute, 1, time.Hour)

	if !limiter.Allow("") {
		t.Fatal("empty keys share the unknown bucket and start allowed")
	}
	if limiter.Allow("") {
		t.Fatal("the unknown bucket should be limited like any other")
	}
}

func TestIPRateLimiterExpiresVisitors(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Minute, 1, time.Minute).(*ipRateLimiter)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter.WithNowFunc(func() time.Time { return base })

	limiter.Allow("1.2.3.4")

	limiter.WithNowFunc(func() time.Time { return base.Add(2 * time.Minute) })
	limiter.Allow("5.6.7.8")

	limiter.mu.Lock()
	_, exists := limiter.visitors["1.2.3.4"]
	limiter.mu.Unlock()
	if exists {
		t.Fatal("idle visitors should be garbage collected after the ttl")
	}
}
