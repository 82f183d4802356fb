package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(Config{Addr: mr.Addr()}, logx.Nop())
	t.Cleanup(c.Close)
	return c, mr
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func entry(id int64, offset time.Duration) domain.CacheEntry {
	return domain.CacheEntry{PostID: id, CreatedAt: base.Add(offset)}
}

func ids(es []domain.CacheEntry) []int64 {
	out := make([]int64, 0, len(es))
	for _, e := range es {
		out = append(out, e.PostID)
	}
	return out
}

func TestGetSetDel(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	b, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(b))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Del(ctx, "k"))
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestPushCappedSkipsAbsentKey(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	pushed, err := c.PushCapped(ctx, "feed:1", entry(1, 0), 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, pushed)
	assert.False(t, mr.Exists("feed:1"))
}

func TestPushCappedKeepsNewest(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Replace(ctx, "feed:1", []domain.CacheEntry{entry(1, 0)}, time.Hour))
	for i := int64(2); i <= 6; i++ {
		pushed, err := c.PushCapped(ctx, "feed:1", entry(i, time.Duration(i)*time.Second), 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, pushed)
	}

	got, err := c.Range(ctx, "feed:1", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 5, 4}, ids(got))
	assert.Equal(t, base.Add(6*time.Second), got[0].CreatedAt)
	assert.Equal(t, time.Hour, mr.TTL("feed:1"))
}

func TestPushCappedOrdersByCreatedAt(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Replace(ctx, "posts:1", []domain.CacheEntry{entry(10, 10*time.Second)}, time.Hour))

	// запоздавшая доставка старого поста встаёт на своё место, а не в голову
	_, err := c.PushCapped(ctx, "posts:1", entry(5, 5*time.Second), 10, time.Hour)
	require.NoError(t, err)
	_, err = c.PushCapped(ctx, "posts:1", entry(20, 20*time.Second), 10, time.Hour)
	require.NoError(t, err)

	got, err := c.Range(ctx, "posts:1", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 10, 5}, ids(got))
}

func TestPushCappedDuplicate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Replace(ctx, "feed:1", []domain.CacheEntry{entry(1, 0)}, time.Hour))
	for i := 0; i < 3; i++ {
		_, err := c.PushCapped(ctx, "feed:1", entry(2, time.Second), 10, time.Hour)
		require.NoError(t, err)
	}

	got, err := c.Range(ctx, "feed:1", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(got))
}

func TestPushCappedRefreshesTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Replace(ctx, "feed:1", []domain.CacheEntry{entry(1, 0)}, time.Hour))
	mr.FastForward(50 * time.Minute)
	_, err := c.PushCapped(ctx, "feed:1", entry(2, time.Second), 10, time.Hour)
	require.NoError(t, err)
	mr.FastForward(50 * time.Minute)

	got, err := c.Range(ctx, "feed:1", 0, -1)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPushCappedRejectsZeroLimit(t *testing.T) {
	c, _ := newTestCache(t)
	_, err := c.PushCapped(context.Background(), "feed:1", entry(1, 0), 0, time.Hour)
	require.Error(t, err)
}

func TestReplaceAndRange(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Replace(ctx, "posts:7", []domain.CacheEntry{
		entry(1, 1*time.Second), entry(3, 3*time.Second), entry(2, 2*time.Second),
	}, time.Hour))

	got, err := c.Range(ctx, "posts:7", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids(got))

	// перезапись целиком
	require.NoError(t, c.Replace(ctx, "posts:7", []domain.CacheEntry{entry(9, 9*time.Second)}, time.Hour))
	got, err = c.Range(ctx, "posts:7", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, ids(got))

	require.NoError(t, c.Replace(ctx, "posts:7", nil, time.Hour))
	assert.False(t, mr.Exists("posts:7"))

	got, err = c.Range(ctx, "posts:7", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRangeExpired(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Replace(ctx, "posts:1", []domain.CacheEntry{entry(1, 0)}, time.Minute))
	mr.FastForward(time.Minute + time.Second)

	got, err := c.Range(ctx, "posts:1", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPingClosedServer(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, c.Ping(context.Background()))
	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
}
