// Package memory: кеш в памяти процесса поверх go-cache.
// Для локального запуска и тестов, между процессами не разделяется.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/logx"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

type Cache struct {
	// mu сериализует read-modify-write над списками
	mu     sync.Mutex
	c      *gocache.Cache
	logger zerolog.Logger
}

var _ domain.Cache = (*Cache)(nil)

func New(logger zerolog.Logger) *Cache {
	return &Cache{
		c:      gocache.New(gocache.NoExpiration, time.Minute),
		logger: logger,
	}
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (c *Cache) Ping(context.Context) error { return nil }

func (c *Cache) Close() {
	c.c.Flush()
	logx.Info(c.logger, "", "memory.Close", "flushed")
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("get %q: key holds a list", key)
	}
	return append([]byte(nil), b...), true, nil
}

func (c *Cache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.c.Set(key, append([]byte(nil), val...), expiration(ttl))
	return nil
}

func (c *Cache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.c.Delete(k)
	}
	return nil
}

func (c *Cache) list(key string) ([]domain.CacheEntry, bool, error) {
	v, ok := c.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	es, ok := v.([]domain.CacheEntry)
	if !ok {
		return nil, false, fmt.Errorf("list %q: key holds bytes", key)
	}
	return es, true, nil
}

// newer задаёт порядок списка: created_at по убыванию, при равенстве больший id первым.
func newer(a, b domain.CacheEntry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.PostID > b.PostID
}

func (c *Cache) PushCapped(_ context.Context, key string, e domain.CacheEntry, limit int, ttl time.Duration) (bool, error) {
	if limit < 1 {
		return false, fmt.Errorf("push %q: limit must be positive, got %d", key, limit)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	es, ok, err := c.list(key)
	if err != nil || !ok {
		return false, err
	}

	next := make([]domain.CacheEntry, 0, len(es)+1)
	for _, x := range es {
		if x.PostID != e.PostID {
			next = append(next, x)
		}
	}
	i := sort.Search(len(next), func(i int) bool { return newer(e, next[i]) })
	next = append(next, domain.CacheEntry{})
	copy(next[i+1:], next[i:])
	next[i] = e
	if len(next) > limit {
		next = next[:limit]
	}

	c.c.Set(key, next, expiration(ttl))
	logx.Debug(c.logger, "", "memory.PushCapped", "push done", "key", key, "post_id", e.PostID, "len", len(next))
	return true, nil
}

func (c *Cache) Replace(_ context.Context, key string, entries []domain.CacheEntry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(entries) == 0 {
		c.c.Delete(key)
		return nil
	}
	seen := make(map[domain.PostID]struct{}, len(entries))
	es := make([]domain.CacheEntry, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.PostID]; dup {
			continue
		}
		seen[e.PostID] = struct{}{}
		es = append(es, e)
	}
	sort.SliceStable(es, func(i, j int) bool { return newer(es[i], es[j]) })
	c.c.Set(key, es, expiration(ttl))
	return nil
}

func (c *Cache) Range(_ context.Context, key string, start, stop int64) ([]domain.CacheEntry, error) {
	c.mu.Lock()
	es, ok, err := c.list(key)
	c.mu.Unlock()
	if err != nil || !ok {
		return nil, err
	}

	n := int64(len(es))
	// индексы как у ZREVRANGE
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		return nil, nil
	}
	return append([]domain.CacheEntry(nil), es[start:stop+1]...), nil
}
