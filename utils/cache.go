package utils

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/yatube/config"
)

// defaultCacheTTL applies when Set is called with a non-positive ttl.
const defaultCacheTTL = time.Hour

// Store is the key-value cache shared by the page cache and the token blacklist.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Exists(ctx context.Context, key string) bool
	Delete(ctx context.Context, key string)
	DeletePrefix(ctx context.Context, prefix string)
	Flush(ctx context.Context)
}

// NewStore returns a Redis backed store when configured and reachable, an in-memory one otherwise.
func NewStore(cfg config.AppConfig) Store {
	if strings.EqualFold(cfg.CacheBackend, "redis") {
		rc, err := NewRedisClient(cfg)
		if err == nil {
			return NewRedisStore(rc)
		}
		Sugar.Warnf("cache: falling back to memory store: %v", err)
	}
	return NewMemoryStore()
}

// RedisStore keeps entries in Redis.
type RedisStore struct {
	rc *redis.Client
}

func NewRedisStore(rc *redis.Client) *RedisStore {
	return &RedisStore{rc: rc}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := s.rc.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			Sugar.Warnf("cache get failed key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.rc.Set(ctx, key, value, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

func (s *RedisStore) Exists(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := s.rc.Exists(ctx, key).Result()
	return err == nil && n > 0
}

func (s *RedisStore) Delete(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = s.rc.Del(ctx, key).Err()
}

// DeletePrefix deletes keys that match the given prefix using SCAN.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for {
		keys, cur, err := s.rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			Sugar.Warnf("cache scan failed prefix=%s err=%v", prefix, err)
			return
		}
		if len(keys) > 0 {
			pipe := s.rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		cursor = cur
		if cursor == 0 {
			return
		}
	}
}

func (s *RedisStore) Flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.rc.FlushDB(ctx).Err(); err != nil {
		Sugar.Warnf("cache flush failed: %v", err)
	}
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// memorySweepInterval is how often Set drops expired entries nobody reads anymore.
const memorySweepInterval = time.Minute

// MemoryStore is a process-local store for single-instance deployments and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]memEntry
	now       func() time.Time
	nextSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock is NewMemoryStore reading the time from now.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{entries: map[string]memEntry{}, now: now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	now := s.now()
	s.mu.Lock()
	if !now.Before(s.nextSweep) {
		for k, e := range s.entries {
			if !now.Before(e.expiresAt) {
				delete(s.entries, k)
			}
		}
		s.nextSweep = now.Add(memorySweepInterval)
	}
	s.entries[key] = memEntry{value: cp, expiresAt: now.Add(ttl)}
	s.mu.Unlock()
}

// Len counts stored entries, expired ones not yet swept included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Exists(ctx context.Context, key string) bool {
	_, ok := s.Get(ctx, key)
	return ok
}

func (s *MemoryStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) {
	s.mu.Lock()
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()
}

func (s *MemoryStore) Flush(_ context.Context) {
	s.mu.Lock()
	s.entries = map[string]memEntry{}
	s.mu.Unlock()
}
