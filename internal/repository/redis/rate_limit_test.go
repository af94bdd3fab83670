package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestRateLimitRepository_RecordAndCount(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rl", TTL: 2 * time.Hour})

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := time.Hour

	for _, offset := range []time.Duration{0, 10 * time.Minute, 20 * time.Minute} {
		if err := repo.RecordAttempt(ctx, "reset:user@example.com", base.Add(offset)); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	count, err := repo.CountAttempts(ctx, "reset:user@example.com", window, base.Add(20*time.Minute))
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 attempts, got %d", count)
	}

	remaining := server.TTL("rl:reset:user@example.com")
	if remaining <= 0 || remaining > 2*time.Hour {
		t.Fatalf("expected ttl within (0, 2h], got %v", remaining)
	}
}

func TestRateLimitRepository_CountExcludesOutsideWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rl"})

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := time.Hour

	if err := repo.RecordAttempt(ctx, "id", base.Add(-2*time.Hour)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "id", base.Add(-10*time.Minute)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	count, err := repo.CountAttempts(ctx, "id", window, base)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 attempt inside window, got %d", count)
	}
}

func TestRateLimitRepository_TrimWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rl"})

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := 30 * time.Minute

	for _, offset := range []time.Duration{-2 * time.Hour, -time.Hour, -5 * time.Minute} {
		if err := repo.RecordAttempt(ctx, "id", base.Add(offset)); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	if err := repo.TrimWindow(ctx, "id", window, base); err != nil {
		t.Fatalf("TrimWindow returned error: %v", err)
	}

	// A wide count after the trim sees only the survivor.
	count, err := repo.CountAttempts(ctx, "id", 24*time.Hour, base)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 attempt after trim, got %d", count)
	}
}

func TestRateLimitRepository_OldestAttempt(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rl"})

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := time.Hour

	oldest, found, err := repo.OldestAttempt(ctx, "id", window, base)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if found {
		t.Fatalf("expected no attempt, got %v", oldest)
	}

	first := base.Add(-40 * time.Minute)
	for _, at := range []time.Time{base.Add(-10 * time.Minute), first, base.Add(-2 * time.Hour)} {
		if err := repo.RecordAttempt(ctx, "id", at); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	oldest, found, err = repo.OldestAttempt(ctx, "id", window, base)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if !found {
		t.Fatal("expected an attempt inside the window")
	}
	if !oldest.Equal(first) {
		t.Fatalf("expected oldest %v, got %v", first, oldest)
	}
}

func TestRateLimitRepository_InvalidWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{})

	ctx := context.Background()

	if _, err := repo.CountAttempts(ctx, "id", 0, time.Now()); err == nil {
		t.Fatal("expected error for non-positive window in CountAttempts")
	}
	if err := repo.TrimWindow(ctx, "id", 0, time.Now()); err == nil {
		t.Fatal("expected error for non-positive window in TrimWindow")
	}
	if _, _, err := repo.OldestAttempt(ctx, "id", 0, time.Now()); err == nil {
		t.Fatal("expected error for non-positive window in OldestAttempt")
	}
}

func TestRateLimitRepository_KeysAreIsolated(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rl"})

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.RecordAttempt(ctx, "alpha", base); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	count, err := repo.CountAttempts(ctx, "beta", time.Hour, base)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected isolated identifiers, got %d", count)
	}
}
