package idempotency

import (
	"context"
	"time"

	"fxledger/internal/cache"
)

// CacheStore keeps idempotency state in process. Replays only work against
// the process that served the original request.
type CacheStore struct {
	responses *cache.LRUCache[Response]
	locks     *cache.LRUCache[struct{}]
}

// NewCacheStore keeps at most maxEntries responses for ttl each.
func NewCacheStore(maxEntries int, ttl time.Duration) *CacheStore {
	return &CacheStore{
		responses: cache.NewLRUCache[Response](maxEntries, ttl),
		locks:     cache.NewLRUCache[struct{}](maxEntries, LockTimeout),
	}
}

func (s *CacheStore) Get(_ context.Context, key string) (Response, bool, error) {
	resp, ok := s.responses.Get(key)
	return resp, ok, nil
}

func (s *CacheStore) Acquire(_ context.Context, key string) (bool, error) {
	return s.locks.SetIfAbsent(key, struct{}{}), nil
}

func (s *CacheStore) Release(_ context.Context, key string) error {
	s.locks.Delete(key)
	return nil
}

func (s *CacheStore) Save(_ context.Context, key string, resp Response) error {
	s.responses.Set(key, resp)
	return nil
}

// Cleaners exposes the backing caches for a cache.Manager.
func (s *CacheStore) Cleaners() []cache.Cleaner {
	return []cache.Cleaner{s.responses, s.locks}
}
