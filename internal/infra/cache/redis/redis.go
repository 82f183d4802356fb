package redisx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Списки лежат в ZSET: member это id поста, score это created_at в микросекундах.
// Повторный ZADD того же member не создаёт дубль, порядок задаёт score.
var pushCappedScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[2])
redis.call('ZREMRANGEBYRANK', KEYS[1], 0, ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

type Cache struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

type Config struct {
	Addr     string
	DB       int
	Password string
}

var _ domain.Cache = (*Cache)(nil)

func New(cfg Config, logger zerolog.Logger) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	return &Cache{rdb: rdb, logger: logger}
}

func (c *Cache) Ping(ctx context.Context) error {
	err := c.rdb.Ping(ctx).Err()
	if err != nil {
		logx.Error(c.logger, "", "redis.Ping", "PING failed", err)
	} else {
		logx.Debug(c.logger, "", "redis.Ping", "PING ok")
	}
	return err
}

func (c *Cache) Close() {
	if c.rdb == nil {
		logx.Info(c.logger, "", "redis.Close", "nothing to close")
		return
	}

	if err := c.rdb.Close(); err != nil {
		logx.Error(c.logger, "", "redis.Close", "error while closing", err)
		return
	}

	logx.Info(c.logger, "", "redis.Close", "closed")
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		logx.Debug(c.logger, "", "redis.Get", "miss", "key", key)
		return nil, false, nil
	}
	if err != nil {
		logx.Error(c.logger, "", "redis.Get", "GET failed", err, "key", key)
		return nil, false, err
	}
	logx.Debug(c.logger, "", "redis.Get", "hit", "key", key, "bytes", len(b), "took", time.Since(start))
	return b, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	err := c.rdb.Set(ctx, key, val, ttl).Err()
	if err != nil {
		logx.Error(c.logger, "", "redis.Set", "SET failed", err, "key", key)
	} else {
		logx.Debug(c.logger, "", "redis.Set", "SET ok", "key", key, "ttl", ttl)
	}
	return err
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		logx.Error(c.logger, "", "redis.Del", "DEL failed", err, "keys", keys)
	} else {
		logx.Debug(c.logger, "", "redis.Del", "DEL ok", "keys", keys, "deleted", n)
	}
	return err
}

func (c *Cache) PushCapped(ctx context.Context, key string, e domain.CacheEntry, limit int, ttl time.Duration) (bool, error) {
	if limit < 1 {
		return false, fmt.Errorf("push %q: limit must be positive, got %d", key, limit)
	}
	start := time.Now()
	// ранги ZSET по возрастанию score: всё, кроме limit последних, уходит
	stop := -(limit + 1)
	n, err := pushCappedScript.Run(ctx, c.rdb, []string{key},
		score(e.CreatedAt), member(e.PostID), stop, ttl.Milliseconds()).Int()
	if err != nil {
		logx.Error(c.logger, "", "redis.PushCapped", "push failed", err, "key", key, "post_id", e.PostID)
		return false, err
	}
	logx.Debug(c.logger, "", "redis.PushCapped", "push done",
		"key", key, "post_id", e.PostID, "pushed", n == 1, "took", time.Since(start))
	return n == 1, nil
}

func (c *Cache) Replace(ctx context.Context, key string, entries []domain.CacheEntry, ttl time.Duration) error {
	start := time.Now()
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(entries) > 0 {
		zs := make([]redis.Z, 0, len(entries))
		for _, e := range entries {
			zs = append(zs, redis.Z{Score: score(e.CreatedAt), Member: member(e.PostID)})
		}
		pipe.ZAdd(ctx, key, zs...)
		pipe.PExpire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logx.Error(c.logger, "", "redis.Replace", "fill failed", err, "key", key)
		return err
	}
	logx.Debug(c.logger, "", "redis.Replace", "filled", "key", key, "count", len(entries), "took", time.Since(start))
	return nil
}

func (c *Cache) Range(ctx context.Context, key string, start, stop int64) ([]domain.CacheEntry, error) {
	zs, err := c.rdb.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		logx.Error(c.logger, "", "redis.Range", "range failed", err, "key", key)
		return nil, err
	}
	out := make([]domain.CacheEntry, 0, len(zs))
	for _, z := range zs {
		s, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("range %q: unexpected member type %T", key, z.Member)
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: bad member %q: %w", key, s, err)
		}
		out = append(out, domain.CacheEntry{
			PostID:    id,
			CreatedAt: time.UnixMicro(int64(math.Round(z.Score))).UTC(),
		})
	}
	logx.Debug(c.logger, "", "redis.Range", "range done", "key", key, "count", len(out))
	return out, nil
}

func score(t time.Time) float64 { return float64(t.UnixMicro()) }

// Фиксированная ширина: при равном score лексикографический порядок совпадает с числовым.
func member(id domain.PostID) string { return fmt.Sprintf("%020d", id) }
