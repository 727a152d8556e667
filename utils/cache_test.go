package utils

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cppla/yatube/config"
)

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok := s.Get(ctx, "missing"); ok {
		t.Fatalf("missing key reported present")
	}
	s.Set(ctx, "index_page", []byte("page one"), time.Minute)
	s.Set(ctx, "index_page:page=2", []byte("page two"), time.Minute)
	s.Set(ctx, "other", []byte("keep"), time.Minute)

	if b, ok := s.Get(ctx, "index_page"); !ok || string(b) != "page one" {
		t.Fatalf("get after set = %q, %v", b, ok)
	}
	if !s.Exists(ctx, "index_page:page=2") {
		t.Fatalf("exists false for stored key")
	}

	s.DeletePrefix(ctx, "index_page")
	if s.Exists(ctx, "index_page") || s.Exists(ctx, "index_page:page=2") {
		t.Fatalf("prefix delete left keys behind")
	}
	if !s.Exists(ctx, "other") {
		t.Fatalf("prefix delete removed an unrelated key")
	}

	s.Delete(ctx, "other")
	if s.Exists(ctx, "other") {
		t.Fatalf("delete kept the key")
	}

	s.Set(ctx, "a", []byte("1"), 0)
	s.Flush(ctx)
	if s.Exists(ctx, "a") {
		t.Fatalf("flush kept keys")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.Set(ctx, "index_page", []byte("cached"), 20*time.Second)
	now = now.Add(19 * time.Second)
	if !s.Exists(ctx, "index_page") {
		t.Fatalf("entry expired early")
	}
	now = now.Add(time.Second)
	if s.Exists(ctx, "index_page") {
		t.Fatalf("entry outlived its ttl")
	}
}

func TestMemoryStoreSweepsUnreadEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		s.Set(ctx, "index_page:page="+strconv.Itoa(i), []byte("page"), time.Second)
	}
	if s.Len() != 1000 {
		t.Fatalf("expected 1000 entries, got %d", s.Len())
	}
	now = now.Add(time.Hour)
	s.Set(ctx, "index_page", []byte("fresh"), time.Minute)
	if s.Len() != 1 {
		t.Fatalf("expired entries kept: %d", s.Len())
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	buf := []byte("abc")
	s.Set(ctx, "k", buf, time.Minute)
	buf[0] = 'x'
	if b, _ := s.Get(ctx, "k"); string(b) != "abc" {
		t.Fatalf("stored value aliased the caller's slice: %q", b)
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	exerciseStore(t, NewRedisStore(rc))
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	s := NewRedisStore(rc)
	ctx := context.Background()

	s.Set(ctx, "index_page", []byte("cached"), 20*time.Second)
	mr.FastForward(21 * time.Second)
	if s.Exists(ctx, "index_page") {
		t.Fatalf("entry outlived its ttl")
	}
}

func TestNewStoreFallsBackToMemory(t *testing.T) {
	cfg := config.AppConfig{CacheBackend: "redis", RedisHost: "127.0.0.1", RedisPort: 1}
	if _, ok := NewStore(cfg).(*MemoryStore); !ok {
		t.Fatalf("expected memory store when redis is unreachable")
	}

	mr := miniredis.RunT(t)
	port, _ := strconv.Atoi(mr.Port())
	cfg = config.AppConfig{CacheBackend: "redis", RedisHost: mr.Host(), RedisPort: port}
	if _, ok := NewStore(cfg).(*RedisStore); !ok {
		t.Fatalf("expected redis store when redis answers")
	}

	if _, ok := NewStore(config.AppConfig{CacheBackend: "memory"}).(*MemoryStore); !ok {
		t.Fatalf("expected memory store by default")
	}
}

func TestTokenBlacklist(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if IsTokenBlacklisted(ctx, s, "tok") {
		t.Fatalf("fresh token reported revoked")
	}
	BlacklistToken(ctx, s, "tok", time.Now().Add(time.Hour))
	if !IsTokenBlacklisted(ctx, s, "tok") {
		t.Fatalf("revoked token accepted")
	}
	BlacklistToken(ctx, s, "old", time.Now().Add(-time.Hour))
	if IsTokenBlacklisted(ctx, s, "old") {
		t.Fatalf("already expired token should not be stored")
	}
}
