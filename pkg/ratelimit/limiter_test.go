package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketAllowsUpToCapacity(t *testing.T) {
	tb := NewTokenBucket(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if tb.Allow() {
		t.Error("request beyond capacity should be denied")
	}
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)

	if !tb.Allow() {
		t.Fatal("first request should be allowed")
	}
	if tb.Allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(30 * time.Millisecond)
	if !tb.Allow() {
		t.Error("bucket should have refilled")
	}
}

func TestTokenBucketWaitHonorsContext(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	tb.Allow() // drain

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	if err == nil {
		t.Error("expected context deadline error")
	}
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(2, time.Hour)
	tb.Allow()
	tb.Allow()

	tb.Reset()
	if !tb.Allow() {
		t.Error("reset should restore capacity")
	}
}
