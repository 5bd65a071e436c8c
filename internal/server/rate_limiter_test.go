package server

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	limiter := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("request over the limit should be rejected")
	}

	// Other keys have their own window.
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("distinct key should be allowed")
	}
}

func TestRateLimiterRejectsEmptyKey(t *testing.T) {
	limiter := newRateLimiter(3, time.Minute)
	if limiter.Allow("") {
		t.Fatal("empty key should be rejected")
	}
}
