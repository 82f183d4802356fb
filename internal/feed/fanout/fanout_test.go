package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/feed/postcache"
	"github.com/EgorLis/my-feed/internal/infra/cache/memory"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/EgorLis/my-feed/internal/testutil"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	store     *testutil.Store
	feeds     *postcache.Service
	queue     *LocalQueue
	svc       *Service
	author    domain.User
	followers []domain.User
}

func newEnv(t *testing.T, nFollowers, batch int) *env {
	t.Helper()
	ctx := context.Background()
	e := &env{store: testutil.NewStore()}

	var err error
	e.author, err = e.store.CreateUser(ctx, "author")
	require.NoError(t, err)
	for i := 0; i < nFollowers; i++ {
		u, err := e.store.CreateUser(ctx, "follower"+string(rune('a'+i)))
		require.NoError(t, err)
		_, err = e.store.CreateFollow(ctx, u.ID, e.author.ID)
		require.NoError(t, err)
		e.followers = append(e.followers, u)
	}

	e.feeds = postcache.New(memory.New(logx.Nop()), postcache.Options{Limit: 10, TTL: time.Hour}, logx.Nop())
	e.queue = NewLocalQueue(2, logx.Nop())
	e.svc = New(e.queue, e.store, e.feeds, Options{BatchSize: batch, Concurrency: 3}, logx.Nop())
	e.svc.RegisterLocal(e.queue)

	qctx, cancel := context.WithCancel(ctx)
	e.queue.Start(qctx, 2)
	t.Cleanup(func() {
		cancel()
		e.queue.Close()
	})
	return e
}

// warm создаёт ключ ленты, как это сделал бы первый Load.
func (e *env) warm(t *testing.T, uid domain.UserID) {
	t.Helper()
	_, err := e.feeds.Load(context.Background(), domain.CacheKeyFeed(uid), func(context.Context, int) ([]domain.CacheEntry, error) {
		return []domain.CacheEntry{{PostID: 1_000_000, CreatedAt: testutil.Base}}, nil
	})
	require.NoError(t, err)
}

func (e *env) feed(t *testing.T, uid domain.UserID) []domain.PostID {
	t.Helper()
	es, err := e.feeds.Cached(context.Background(), domain.CacheKeyFeed(uid))
	require.NoError(t, err)
	var out []domain.PostID
	for _, x := range es {
		out = append(out, x.PostID)
	}
	return out
}

func (e *env) post(t *testing.T) domain.Post {
	t.Helper()
	p, err := e.store.CreatePost(context.Background(), e.author.ID, "fresh news")
	require.NoError(t, err)
	return p
}

func TestDispatchInline(t *testing.T) {
	e := newEnv(t, 3, 100)
	e.warm(t, e.author.ID)
	for _, f := range e.followers {
		e.warm(t, f.ID)
	}

	p := e.post(t)
	require.NoError(t, e.svc.Dispatch(context.Background(), p))
	e.queue.Wait()

	assert.Equal(t, []domain.PostID{p.ID, 1_000_000}, e.feed(t, e.author.ID))
	for _, f := range e.followers {
		assert.Equal(t, []domain.PostID{p.ID, 1_000_000}, e.feed(t, f.ID))
	}
}

func TestDispatchBatches(t *testing.T) {
	e := newEnv(t, 7, 3)
	for _, f := range e.followers {
		e.warm(t, f.ID)
	}

	p := e.post(t)
	require.NoError(t, e.svc.Dispatch(context.Background(), p))
	e.queue.Wait()

	for _, f := range e.followers {
		assert.Contains(t, e.feed(t, f.ID), p.ID, "follower %d", f.ID)
	}
}

func TestColdFeedsStayCold(t *testing.T) {
	e := newEnv(t, 2, 100)
	e.warm(t, e.followers[0].ID)

	p := e.post(t)
	require.NoError(t, e.svc.Dispatch(context.Background(), p))
	e.queue.Wait()

	assert.Equal(t, []domain.PostID{p.ID, 1_000_000}, e.feed(t, e.followers[0].ID))
	assert.Empty(t, e.feed(t, e.followers[1].ID), "absent key is built by the next read")
}

func TestRedeliveryIsIdempotent(t *testing.T) {
	e := newEnv(t, 2, 100)
	for _, f := range e.followers {
		e.warm(t, f.ID)
	}
	p := e.post(t)
	payload, err := json.Marshal(Task{PostID: p.ID, AuthorID: p.AuthorID, CreatedAt: p.CreatedAt})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.svc.HandlePost(context.Background(), payload))
	}
	for _, f := range e.followers {
		assert.Equal(t, []domain.PostID{p.ID, 1_000_000}, e.feed(t, f.ID))
	}
}

func TestBadPayload(t *testing.T) {
	e := newEnv(t, 0, 100)
	assert.ErrorIs(t, e.svc.HandlePost(context.Background(), []byte("{")), ErrBadPayload)
	assert.ErrorIs(t, e.svc.HandleBatch(context.Background(), []byte(`{"post_id":1}`)), ErrBadPayload)
}

func TestFollowerLookupFailureRetried(t *testing.T) {
	e := newEnv(t, 1, 100)
	e.store.Fail("FollowerIDs", errors.New("db down"))

	require.NoError(t, e.svc.Dispatch(context.Background(), e.post(t)))
	e.queue.Wait()
	// первый запуск и два повтора
	assert.Equal(t, 3, e.store.Calls("FollowerIDs"))
}

type flakyFeeds struct {
	mu      sync.Mutex
	fail    map[string]bool
	ok      []string
	dropped []string
}

func (f *flakyFeeds) Invalidate(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, keys...)
	return nil
}

func (f *flakyFeeds) Push(_ context.Context, key string, _ domain.CacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail == nil || f.fail[key] {
		return errors.New("redis down")
	}
	f.ok = append(f.ok, key)
	return nil
}

func TestPartialFailureNotRetried(t *testing.T) {
	e := newEnv(t, 3, 100)
	ff := &flakyFeeds{fail: map[string]bool{domain.CacheKeyFeed(e.followers[1].ID): true}}
	svc := New(e.queue, e.store, ff, Options{BatchSize: 100, Concurrency: 2}, logx.Nop())

	p := e.post(t)
	payload, _ := json.Marshal(Task{PostID: p.ID, AuthorID: p.AuthorID, CreatedAt: p.CreatedAt})
	require.NoError(t, svc.HandlePost(context.Background(), payload))
	assert.Len(t, ff.ok, 3)
	// пропустившая пост лента сброшена, остальные целы
	assert.Equal(t, []string{domain.CacheKeyFeed(e.followers[1].ID)}, ff.dropped)
}

func TestTotalFailureReturnsError(t *testing.T) {
	e := newEnv(t, 3, 100)
	svc := New(e.queue, e.store, &flakyFeeds{}, Options{BatchSize: 100, Concurrency: 2}, logx.Nop())

	p := e.post(t)
	payload, _ := json.Marshal(Task{PostID: p.ID, AuthorID: p.AuthorID, CreatedAt: p.CreatedAt})
	assert.Error(t, svc.HandlePost(context.Background(), payload))
}

func TestAsynqMuxRouting(t *testing.T) {
	e := newEnv(t, 1, 100)
	e.warm(t, e.followers[0].ID)

	mux := asynq.NewServeMux()
	e.svc.Register(mux)

	p := e.post(t)
	payload, _ := json.Marshal(Task{PostID: p.ID, AuthorID: p.AuthorID, CreatedAt: p.CreatedAt})
	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(TypePost, payload)))
	assert.Contains(t, e.feed(t, e.followers[0].ID), p.ID)

	err := mux.ProcessTask(context.Background(), asynq.NewTask(TypeBatch, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestLocalQueueClosed(t *testing.T) {
	q := NewLocalQueue(0, logx.Nop())
	q.Close()
	assert.ErrorIs(t, q.Enqueue(context.Background(), TypePost, nil), ErrQueueClosed)
}
