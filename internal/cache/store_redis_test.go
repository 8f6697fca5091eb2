package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	s := NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestPutGetExpire(t *testing.T) {
	s, mr := newTestStore(t, time.Minute)
	ctx := context.Background()
	key := Key([]byte("png bytes"), "white")

	got, err := s.Get(ctx, key)
	if err != nil || got != nil {
		t.Fatalf("expected miss, got %v, %v", got, err)
	}

	want := &Entry{FEN: "8/8/8/8/8/8/8/8", ID: "abc", Orientation: "white", CreatedAt: time.Unix(1700000000, 0).UTC()}
	if err := s.Put(ctx, key, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err = s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.FEN != want.FEN || got.ID != want.ID || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("unexpected entry %+v", got)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if got, _ := s.Get(ctx, key); got != nil {
		t.Fatalf("entry should have expired")
	}
}

func TestPutSkipsEmpty(t *testing.T) {
	s, mr := newTestStore(t, 0)
	if err := s.Put(context.Background(), "k", &Entry{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if mr.Exists("k") {
		t.Fatalf("empty entry should not be stored")
	}
}

func TestKeyDependsOnOrientation(t *testing.T) {
	data := []byte{1, 2, 3}
	if Key(data, "white") == Key(data, "black") {
		t.Fatalf("orientation must be part of the key")
	}
	if Key(data, "white") != Key([]byte{1, 2, 3}, "white") {
		t.Fatalf("key must be deterministic")
	}
}

func TestOpenAndParseURL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	s, err := Open(context.Background(), fmt.Sprintf("redis://%s/2", mr.Addr()), 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = s.Close()

	opts, err := ParseRedisURL("rediss://:secret@cache.internal/3")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.Addr != "cache.internal:6379" || opts.Password != "secret" || opts.DB != 3 || opts.TLSConfig == nil {
		t.Fatalf("unexpected options %+v", opts)
	}
	if _, err := ParseRedisURL("http://x"); err == nil {
		t.Fatalf("expected scheme error")
	}
	if _, err := Open(context.Background(), "", 0); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
