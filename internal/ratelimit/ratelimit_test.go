package ratelimit

import (
	"errors"
	"testing"
)

func TestLimiter_Unlimited(t *testing.T) {
	l := NewLimiter(Config{})
	for i := 0; i < 1000; i++ {
		if err := l.Allow("caller"); err != nil {
			t.Fatalf("unlimited limiter rejected request %d: %v", i, err)
		}
	}
}

func TestLimiter_BurstExhaustion(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 60, BurstSize: 3})

	for i := 0; i < 3; i++ {
		if err := l.Allow("caller"); err != nil {
			t.Fatalf("request %d within burst rejected: %v", i, err)
		}
	}
	if err := l.Allow("caller"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestLimiter_CallersIndependent(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 60, BurstSize: 1})

	if err := l.Allow("a"); err != nil {
		t.Fatalf("caller a: %v", err)
	}
	if err := l.Allow("a"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("caller a second request: %v", err)
	}
	// Caller b has its own bucket.
	if err := l.Allow("b"); err != nil {
		t.Fatalf("caller b: %v", err)
	}
}

func TestLimiter_BurstDefaultsToRate(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 2})

	if err := l.Allow("c"); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := l.Allow("c"); err != nil {
		t.Fatalf("second: %v", err)
	}
	if err := l.Allow("c"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third should exceed default burst: %v", err)
	}
}
