// Package fanout разносит новый пост по лентам подписчиков (fanout-on-write).
//
// Доставка at-least-once: задача может выполниться повторно, а PushCapped
// по тому же id поста ничего не меняет. Кому доставка не удалась,
// тот увидит пост при следующем чтении из БД после истечения ключа.
package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	TypePost  = "fanout:post"
	TypeBatch = "fanout:batch"
	QueueName = "newsfeeds"
)

// ErrBadPayload означает, что задача не будет повторяться
var ErrBadPayload = errors.New("fanout: bad payload")

// Task описывает полезную нагрузку обеих задач. FollowerIDs есть только у батча.
type Task struct {
	PostID      domain.PostID   `json:"post_id"`
	AuthorID    domain.UserID   `json:"author_id"`
	CreatedAt   time.Time       `json:"created_at"`
	FollowerIDs []domain.UserID `json:"follower_ids,omitempty"`
}

func (t Task) entry() domain.CacheEntry {
	return domain.CacheEntry{PostID: t.PostID, CreatedAt: t.CreatedAt}
}

// Queue доставляет задачи, asynq или локальная очередь.
type Queue interface {
	Enqueue(ctx context.Context, typ string, payload []byte) error
}

type Followers interface {
	FollowerIDs(ctx context.Context, userID domain.UserID) ([]domain.UserID, error)
}

// Feeds пишет в ленты (postcache.Service).
type Feeds interface {
	Push(ctx context.Context, key string, e domain.CacheEntry) error
	// Invalidate сбрасывает ленту, пропустившую пост: её соберёт следующее чтение.
	Invalidate(ctx context.Context, keys ...string) error
}

type Options struct {
	BatchSize   int
	Concurrency int
}

type Service struct {
	queue     Queue
	followers Followers
	feeds     Feeds
	opts      Options
	logger    zerolog.Logger
}

func New(q Queue, followers Followers, feeds Feeds, opts Options, logger zerolog.Logger) *Service {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1000
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Service{queue: q, followers: followers, feeds: feeds, opts: opts, logger: logger}
}

// Dispatch ставит задачу разноски. Ждать её выполнения не нужно.
func (s *Service) Dispatch(ctx context.Context, p domain.Post) error {
	payload, err := json.Marshal(Task{PostID: p.ID, AuthorID: p.AuthorID, CreatedAt: p.CreatedAt})
	if err != nil {
		return fmt.Errorf("marshal fanout task: %w", err)
	}
	if err := s.queue.Enqueue(ctx, TypePost, payload); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypePost, err)
	}
	logx.Debug(s.logger, "", "fanout.Dispatch", "enqueued", "post_id", p.ID)
	return nil
}

func decode(payload []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(payload, &t); err != nil {
		return Task{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if t.PostID == 0 || t.AuthorID == 0 || t.CreatedAt.IsZero() {
		return Task{}, fmt.Errorf("%w: missing fields", ErrBadPayload)
	}
	return t, nil
}

// HandlePost обрабатывает основную задачу: автор плюс все подписчики.
// Небольшой список разносится сразу, большой режется на батчи.
func (s *Service) HandlePost(ctx context.Context, payload []byte) error {
	t, err := decode(payload)
	if err != nil {
		return err
	}
	start := time.Now()

	followers, err := s.followers.FollowerIDs(ctx, t.AuthorID)
	if err != nil {
		return fmt.Errorf("followers of %d: %w", t.AuthorID, err)
	}
	recipients := make([]domain.UserID, 0, len(followers)+1)
	recipients = append(recipients, t.AuthorID)
	for _, f := range followers {
		if f != t.AuthorID {
			recipients = append(recipients, f)
		}
	}

	if len(recipients) <= s.opts.BatchSize {
		err := s.deliver(ctx, t, recipients)
		logx.Info(s.logger, "", "fanout.HandlePost", "delivered inline",
			"post_id", t.PostID, "recipients", len(recipients), "took", time.Since(start))
		return err
	}

	batches := 0
	for from := 0; from < len(recipients); from += s.opts.BatchSize {
		to := min(from+s.opts.BatchSize, len(recipients))
		bt := t
		bt.FollowerIDs = recipients[from:to]
		body, err := json.Marshal(bt)
		if err != nil {
			return fmt.Errorf("marshal batch: %w", err)
		}
		// повтор основной задачи поставит батчи заново, это безопасно
		if err := s.queue.Enqueue(ctx, TypeBatch, body); err != nil {
			return fmt.Errorf("enqueue %s: %w", TypeBatch, err)
		}
		batches++
	}
	logx.Info(s.logger, "", "fanout.HandlePost", "batches enqueued",
		"post_id", t.PostID, "recipients", len(recipients), "batches", batches)
	return nil
}

func (s *Service) HandleBatch(ctx context.Context, payload []byte) error {
	t, err := decode(payload)
	if err != nil {
		return err
	}
	start := time.Now()
	err = s.deliver(ctx, t, t.FollowerIDs)
	logx.Info(s.logger, "", "fanout.HandleBatch", "batch delivered",
		"post_id", t.PostID, "recipients", len(t.FollowerIDs), "took", time.Since(start))
	return err
}

// deliver пишет пост в ленты получателей с ограниченным параллелизмом.
// Ошибка возвращается, только если не удалось никому: частичный сбой не повторяем целиком.
func (s *Service) deliver(ctx context.Context, t Task, recipients []domain.UserID) error {
	if len(recipients) == 0 {
		return nil
	}
	var (
		g       errgroup.Group
		failed  atomic.Int64
		mu      sync.Mutex
		lastErr error
	)
	g.SetLimit(s.opts.Concurrency)
	e := t.entry()
	for _, uid := range recipients {
		g.Go(func() error {
			if err := s.feeds.Push(ctx, domain.CacheKeyFeed(uid), e); err != nil {
				failed.Add(1)
				mu.Lock()
				lastErr = err
				mu.Unlock()
				logx.Warn(s.logger, "", "fanout.deliver", "push failed", err, "post_id", t.PostID, "user_id", uid)
				if ierr := s.feeds.Invalidate(ctx, domain.CacheKeyFeed(uid)); ierr != nil {
					logx.Error(s.logger, "", "fanout.deliver", "stale feed left in cache", ierr, "post_id", t.PostID, "user_id", uid)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	n := failed.Load()
	if n == 0 {
		return nil
	}
	if n == int64(len(recipients)) {
		return fmt.Errorf("fanout post %d: all %d pushes failed: %w", t.PostID, n, lastErr)
	}
	logx.Warn(s.logger, "", "fanout.deliver", "partial delivery", nil,
		"post_id", t.PostID, "failed", n, "total", len(recipients))
	return nil
}
