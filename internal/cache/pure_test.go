package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestHashKey_Deterministic(t *testing.T) {
	t.Parallel()

	id := "0b8f7f9e-6c1e-4f55-9c3a-1f1d2b3c4d5e"
	if hashKey(id) != hashKey(id) {
		t.Error("Same session id should produce same hash")
	}
}

func TestHashKey_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   string
	}{
		{"uuid", "0b8f7f9e-6c1e-4f55-9c3a-1f1d2b3c4d5e"},
		{"short", "a"},
		{"empty", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := len(hashKey(tt.id)); got != 16 {
				t.Errorf("hashKey(%q) length = %d, want 16", tt.id, got)
			}
		})
	}
}

func TestHashKey_Different(t *testing.T) {
	t.Parallel()

	if hashKey("session-a") == hashKey("session-b") {
		t.Error("Different session ids should produce different hashes")
	}
}

func TestCheckMutationRateLimit_Unlimited(t *testing.T) {
	t.Parallel()

	c := NewFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	defer c.Close()

	res, err := c.CheckMutationRateLimit(context.Background(), "sid", 0, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed || res.Remaining != 7 {
		t.Errorf("result = %+v, want allowed with full burst", res)
	}
}

func TestCheckMutationRateLimit_FailsOpen(t *testing.T) {
	t.Parallel()

	c := NewFromClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}))
	defer c.Close()

	res, err := c.CheckMutationRateLimit(context.Background(), "sid", 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed {
		t.Error("request denied while Redis is unreachable")
	}
}
