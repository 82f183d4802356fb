// Package postcache ведёт ограниченные списки id постов в FastCache:
// собственные посты автора (posts:{id}) и домашнюю ленту (feed:{id}).
//
// Список по ключу всегда является префиксом newest-first выборки из БД длиной до Limit.
// Создаётся он только чтением (Load), запись (Push) лишь дополняет уже существующий.
package postcache

import (
	"context"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Filler достаёт из БД limit самых свежих записей для заполнения ключа.
type Filler func(ctx context.Context, limit int) ([]domain.CacheEntry, error)

type Options struct {
	Limit int
	TTL   time.Duration
}

type Service struct {
	cache  domain.Cache
	limit  int
	ttl    time.Duration
	group  singleflight.Group
	logger zerolog.Logger
}

func New(cache domain.Cache, opts Options, logger zerolog.Logger) *Service {
	if opts.Limit < 1 {
		opts.Limit = 1
	}
	return &Service{cache: cache, limit: opts.Limit, ttl: opts.TTL, logger: logger}
}

// Limit — L, ёмкость каждого списка.
func (s *Service) Limit() int { return s.limit }

// Cached отдаёт содержимое ключа без заполнения. Пусто, если ключа нет или он истёк.
func (s *Service) Cached(ctx context.Context, key string) ([]domain.CacheEntry, error) {
	return s.cache.Range(ctx, key, 0, int64(s.limit-1))
}

// Load — read-through: на промахе один Filler на ключ в пределах процесса.
// Результат — полный newest-first префикс; len < Limit означает, что записей больше нет.
func (s *Service) Load(ctx context.Context, key string, fill Filler) ([]domain.CacheEntry, error) {
	es, err := s.Cached(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(es) > 0 {
		return es, nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		start := time.Now()
		fresh, err := fill(ctx, s.limit)
		if err != nil {
			return nil, err
		}
		if len(fresh) > s.limit {
			fresh = fresh[:s.limit]
		}
		// ошибка записи не мешает отдать свежие данные
		if err := s.cache.Replace(ctx, key, fresh, s.ttl); err != nil {
			logx.Warn(s.logger, "", "postcache.Load", "fill write failed", err, "key", key)
		}
		logx.Debug(s.logger, "", "postcache.Load", "filled", "key", key, "count", len(fresh), "took", time.Since(start))
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logx.Debug(s.logger, "", "postcache.Load", "fill shared", "key", key)
	}
	fresh := v.([]domain.CacheEntry)
	return append([]domain.CacheEntry(nil), fresh...), nil
}

// Push добавляет пост в существующий список. Отсутствующий ключ не трогается:
// его соберёт ближайший Load.
func (s *Service) Push(ctx context.Context, key string, e domain.CacheEntry) error {
	pushed, err := s.cache.PushCapped(ctx, key, e, s.limit, s.ttl)
	if err != nil {
		return err
	}
	if !pushed {
		logx.Debug(s.logger, "", "postcache.Push", "key absent, skipped", "key", key, "post_id", e.PostID)
	}
	return nil
}

// Invalidate удаляет списки, в которые не удалось дописать пост.
// Без ключа следующее чтение пересоберёт список из БД, короткий устаревший список
// иначе выглядел бы полной историей.
func (s *Service) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		logx.Error(s.logger, "", "postcache.Invalidate", "invalidation failed", err, "keys", keys)
		return err
	}
	logx.Debug(s.logger, "", "postcache.Invalidate", "invalidated", "keys", keys)
	return nil
}

// Entry — элемент списка для поста.
func Entry(p domain.Post) domain.CacheEntry {
	return domain.CacheEntry{PostID: p.ID, CreatedAt: p.CreatedAt}
}

// Entries переводит выборку из БД в элементы списка, порядок сохраняется.
func Entries(ps []domain.Post) []domain.CacheEntry {
	out := make([]domain.CacheEntry, 0, len(ps))
	for _, p := range ps {
		out = append(out, Entry(p))
	}
	return out
}
