package domain

import (
	"context"
	"strconv"
	"time"
)

// Ключи кеша: единое место, чтобы не расползались по коду.
func CacheKeyUserPosts(id UserID) string  { return "posts:" + strconv.FormatInt(id, 10) }
func CacheKeyFeed(id UserID) string       { return "feed:" + strconv.FormatInt(id, 10) }
func CacheKeyFollowings(id UserID) string { return "followings:" + strconv.FormatInt(id, 10) }

// Элемент упорядоченного списка в кеше. Порядок задаёт CreatedAt, а не порядок вставки.
type CacheEntry struct {
	PostID    PostID
	CreatedAt time.Time
}

// FastCache хранит k/v с TTL плюс ограниченные упорядоченные списки (newest-first).
// Кеш советующий: любая ошибка или промах означает "иди в БД".
type Cache interface {
	// Get возвращает ok=false на промах.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	// PushCapped вставляет элемент в существующий список, оставляет limit самых свежих и продлевает TTL.
	// Отсутствующий ключ не создаётся (pushed=false): неполный список сломал бы префикс.
	// Повторная вставка того же PostID ничего не меняет.
	PushCapped(ctx context.Context, key string, e CacheEntry, limit int, ttl time.Duration) (pushed bool, err error)
	// Replace целиком перезаписывает список. Пустой список удаляет ключ.
	Replace(ctx context.Context, key string, entries []CacheEntry, ttl time.Duration) error
	// Range отдаёт элементы [start, stop] newest-first, индексы как в redis (-1: последний).
	// Отсутствующий ключ: пустой результат без ошибки.
	Range(ctx context.Context, key string, start, stop int64) ([]CacheEntry, error)

	Ping(context.Context) error
	Close()
}
