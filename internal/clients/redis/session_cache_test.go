package redis

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
)

func TestKeyHashesToken(t *testing.T) {
	k := Key(defaultKeyPrefix, "eyJhbGciOi.secret.token")
	if !strings.HasPrefix(k, defaultKeyPrefix) {
		t.Fatalf("missing prefix: %q", k)
	}
	if strings.Contains(k, "secret") {
		t.Fatalf("raw token leaked into key: %q", k)
	}
	if len(k) != len(defaultKeyPrefix)+64 {
		t.Fatalf("unexpected key length %d", len(k))
	}
	if Key(defaultKeyPrefix, "a") == Key(defaultKeyPrefix, "b") {
		t.Fatalf("distinct tokens share a key")
	}
}

func TestNewSessionCacheRequiresAddr(t *testing.T) {
	if _, err := NewSessionCache(logger.NewNop(), Options{}); err == nil {
		t.Fatalf("expected error for empty address")
	}
	if _, err := NewSessionCache(nil, Options{Addr: "localhost:6379"}); err == nil {
		t.Fatalf("expected error for nil logger")
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *sessionCache
	ctx := context.Background()
	if _, ok, err := c.Get(ctx, "tok"); ok || err != nil {
		t.Fatalf("nil Get: ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, "tok", CachedSession{}, time.Minute); err != nil {
		t.Fatalf("nil Set: %v", err)
	}
	if err := c.Delete(ctx, "tok"); err != nil {
		t.Fatalf("nil Delete: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

// Runs against a real server when TEST_REDIS_ADDR is set.
func TestSessionCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c, err := NewSessionCache(logger.NewNop(), Options{Addr: addr, KeyPrefix: "tenx:test:" + uuid.NewString() + ":"})
	if err != nil {
		t.Fatalf("NewSessionCache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	want := CachedSession{UserID: uuid.New(), Email: "u@example.com", ExpiresAt: time.Now().UTC().Truncate(time.Second)}
	if err := c.Set(ctx, "access", want, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx, "access")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.UserID != want.UserID || got.Email != want.Email || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("Get: got %+v want %+v", got, want)
	}
	if err := c.Delete(ctx, "access"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "access"); ok {
		t.Fatalf("entry survived Delete")
	}
}
