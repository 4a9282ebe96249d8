package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !rl.allow("k") {
			t.Fatalf("request %d denied under the limit", i+1)
		}
	}
	if rl.allow("k") {
		t.Fatal("request over the limit allowed")
	}
	// Other keys are independent.
	if !rl.allow("other") {
		t.Fatal("unrelated key denied")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := newRateLimiter(1, 10*time.Millisecond)
	if !rl.allow("k") {
		t.Fatal("first request denied")
	}
	if rl.allow("k") {
		t.Fatal("second immediate request allowed")
	}
	time.Sleep(15 * time.Millisecond)
	if !rl.allow("k") {
		t.Fatal("request after window denied")
	}
}
