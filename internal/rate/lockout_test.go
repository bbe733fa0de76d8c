package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/stockroomlabs/credcore/kv"
)

func testLockout() (*Lockout, *kv.Memory, *time.Time) {
	store := kv.NewMemory()
	now := time.Now()
	store.SetClock(func() time.Time { return now })

	guard := NewLockout(store, LockoutConfig{
		MaxAttempts:     5,
		LockoutDuration: 15 * time.Minute,
	})
	return guard, store, &now
}

func TestLockoutEngagesAtThreshold(t *testing.T) {
	guard, _, _ := testLockout()
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		count, lockedNow, err := guard.RecordFailure(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("RecordFailure %d failed: %v", i, err)
		}
		if count != i || lockedNow {
			t.Fatalf("failure %d: count=%d lockedNow=%v", i, count, lockedNow)
		}
	}

	count, lockedNow, err := guard.RecordFailure(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	if count != 5 || !lockedNow {
		t.Fatalf("fifth failure: count=%d lockedNow=%v, want 5/true", count, lockedNow)
	}

	status, err := guard.Status(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Locked {
		t.Fatal("expected locked")
	}
	if status.RetryAfter != 15*time.Minute {
		t.Fatalf("RetryAfter = %v, want 15m", status.RetryAfter)
	}
}

func TestLockoutExpiresByTTL(t *testing.T) {
	guard, _, now := testLockout()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, _ = guard.RecordFailure(ctx, "alice@example.com")
	}

	*now = now.Add(16 * time.Minute)

	status, err := guard.Status(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Locked {
		t.Fatal("lock must expire with its TTL")
	}
	if status.Attempts != 0 {
		t.Fatalf("attempts = %d, want 0 after expiry", status.Attempts)
	}
}

func TestLockoutResetClearsState(t *testing.T) {
	guard, _, _ := testLockout()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, _ = guard.RecordFailure(ctx, "alice@example.com")
	}
	if err := guard.Reset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	status, err := guard.Status(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Locked || status.Attempts != 0 {
		t.Fatalf("state after reset: %+v", status)
	}
}

// An identity with no failure history must read unlocked on the Redis
// backend too; its TTL probe for the lock key must report absence, not a
// lock with no expiry.
func TestLockoutFreshIdentityUnlockedOnRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	guard := NewLockout(kv.NewRedis(client, "t"), LockoutConfig{
		MaxAttempts:     5,
		LockoutDuration: 15 * time.Minute,
	})

	status, err := guard.Status(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Locked || status.Attempts != 0 || status.RetryAfter != 0 {
		t.Fatalf("fresh identity reads locked: %+v", status)
	}
}

func TestLockoutKeysAreIndependent(t *testing.T) {
	guard, _, _ := testLockout()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, _ = guard.RecordFailure(ctx, "alice@example.com")
	}

	status, err := guard.Status(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Locked || status.Attempts != 0 {
		t.Fatalf("unrelated key affected: %+v", status)
	}
}

func TestWindowAllowsUpToBudget(t *testing.T) {
	store := kv.NewMemory()
	now := time.Now()
	store.SetClock(func() time.Time { return now })

	window := NewWindow(store, WindowConfig{MaxRequests: 3, Window: time.Hour})
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		ok, err := window.Allow(ctx, "a@b.com")
		if err != nil {
			t.Fatalf("Allow %d failed: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	ok, err := window.Allow(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if ok {
		t.Fatal("fourth request in the window must be rejected")
	}

	now = now.Add(61 * time.Minute)

	ok, err = window.Allow(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !ok {
		t.Fatal("a new window must open after expiry")
	}
}
