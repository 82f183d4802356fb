package postcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/infra/cache/memory"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func entries(n int) []domain.CacheEntry {
	out := make([]domain.CacheEntry, 0, n)
	for i := n; i >= 1; i-- {
		out = append(out, domain.CacheEntry{PostID: int64(i), CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}
	return out
}

func newService(limit int) *Service {
	return New(memory.New(logx.Nop()), Options{Limit: limit, TTL: time.Hour}, logx.Nop())
}

func TestLoadFillsOnce(t *testing.T) {
	s := newService(5)
	ctx := context.Background()

	var calls int
	fill := func(_ context.Context, limit int) ([]domain.CacheEntry, error) {
		calls++
		assert.Equal(t, 5, limit)
		return entries(3), nil
	}

	got, err := s.Load(ctx, "posts:1", fill)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = s.Load(ctx, "posts:1", fill)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 1, calls)
}

func TestLoadTrimsToLimit(t *testing.T) {
	s := newService(2)
	got, err := s.Load(context.Background(), "posts:1", func(context.Context, int) ([]domain.CacheEntry, error) {
		return entries(4), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3}, []int64{got[0].PostID, got[1].PostID})
}

func TestLoadFillError(t *testing.T) {
	s := newService(5)
	boom := errors.New("db down")
	_, err := s.Load(context.Background(), "posts:1", func(context.Context, int) ([]domain.CacheEntry, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	cached, err := s.Cached(context.Background(), "posts:1")
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestLoadSingleFlight(t *testing.T) {
	s := newService(5)
	ctx := context.Background()

	var calls atomic.Int32
	fill := func(context.Context, int) ([]domain.CacheEntry, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return entries(2), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.Load(ctx, "feed:1", fill)
			assert.NoError(t, err)
			assert.Len(t, got, 2)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestPushNeedsExistingKey(t *testing.T) {
	s := newService(3)
	ctx := context.Background()
	e := domain.CacheEntry{PostID: 9, CreatedAt: base.Add(time.Hour)}

	require.NoError(t, s.Push(ctx, "feed:1", e))
	cached, err := s.Cached(ctx, "feed:1")
	require.NoError(t, err)
	assert.Empty(t, cached, "push does not create a partial list")

	_, err = s.Load(ctx, "feed:1", func(context.Context, int) ([]domain.CacheEntry, error) { return entries(3), nil })
	require.NoError(t, err)
	require.NoError(t, s.Push(ctx, "feed:1", e))
	require.NoError(t, s.Push(ctx, "feed:1", e))

	cached, err = s.Cached(ctx, "feed:1")
	require.NoError(t, err)
	require.Len(t, cached, 3)
	assert.Equal(t, int64(9), cached[0].PostID)
	assert.Equal(t, int64(3), cached[1].PostID)
	assert.Equal(t, int64(2), cached[2].PostID)
}

func TestInvalidateForcesRefill(t *testing.T) {
	s := newService(5)
	ctx := context.Background()

	var calls int
	fill := func(context.Context, int) ([]domain.CacheEntry, error) {
		calls++
		return entries(calls + 1), nil
	}
	_, err := s.Load(ctx, "feed:1", fill)
	require.NoError(t, err)

	require.NoError(t, s.Invalidate(ctx, "feed:1", "feed:2"))
	require.NoError(t, s.Invalidate(ctx))

	got, err := s.Load(ctx, "feed:1", fill)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, got, 3)
}

func TestEntries(t *testing.T) {
	ps := []domain.Post{{ID: 2, CreatedAt: base.Add(time.Second)}, {ID: 1, CreatedAt: base}}
	es := Entries(ps)
	assert.Equal(t, []domain.CacheEntry{{PostID: 2, CreatedAt: base.Add(time.Second)}, {PostID: 1, CreatedAt: base}}, es)
}
