package ratelimit

import (
	"testing"
	"time"
)

func TestStore_AllowBurst(t *testing.T) {
	store := NewStore(1, 3, 0)
	defer store.Stop()

	for i := 0; i < 3; i++ {
		if !store.Allow("10.0.0.1") {
			t.Errorf("request %d should be allowed (within burst)", i)
		}
	}
	if store.Allow("10.0.0.1") {
		t.Error("request after burst should be denied")
	}
	if !store.Allow("10.0.0.2") {
		t.Error("other keys must have their own bucket")
	}
	if got := store.Retry("10.0.0.1"); got <= 0 {
		t.Errorf("expected a positive retry delay, got %v", got)
	}
}

func TestStore_Replenish(t *testing.T) {
	store := NewStore(20, 1, 0)
	defer store.Stop()

	if !store.Allow("k") {
		t.Fatal("first request should be allowed")
	}
	if store.Allow("k") {
		t.Fatal("second request should be denied")
	}
	time.Sleep(100 * time.Millisecond)
	if !store.Allow("k") {
		t.Error("request after wait should be allowed")
	}
}

func TestStore_Reset(t *testing.T) {
	store := NewStore(1, 1, 0)
	defer store.Stop()

	store.Allow("k")
	if store.Allow("k") {
		t.Fatal("expected bucket to be exhausted")
	}
	store.Reset("k")
	if !store.Allow("k") {
		t.Error("request should be allowed after reset")
	}
	if store.Retry("missing") != 0 {
		t.Error("unknown keys never wait")
	}
}

func TestStore_CleanupExpired(t *testing.T) {
	store := NewStore(1, 1, 0)
	defer store.Stop()

	current := time.Now()
	store.now = func() time.Time { return current }

	store.Allow("old")
	current = current.Add(idleThreshold + time.Second)
	store.Allow("fresh")

	store.cleanupExpired()
	if got := store.Count(); got != 1 {
		t.Fatalf("expected 1 tracked key, got %d", got)
	}
}
