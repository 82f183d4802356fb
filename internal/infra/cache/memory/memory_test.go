package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func TestBytes(t *testing.T) {
	c := New(logx.Nop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 20*time.Millisecond))
	b, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(b))

	time.Sleep(40 * time.Millisecond)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestPushCapped(t *testing.T) {
	c := New(logx.Nop())
	ctx := context.Background()

	pushed, err := c.PushCapped(ctx, "feed:1", entry(1, 0), 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, pushed, "absent key is not created")

	require.NoError(t, c.Replace(ctx, "feed:1", []domain.CacheEntry{entry(1, 0)}, time.Hour))
	for i := int64(2); i <= 5; i++ {
		_, err := c.PushCapped(ctx, "feed:1", entry(i, time.Duration(i)*time.Second), 3, time.Hour)
		require.NoError(t, err)
	}
	// дубль и запоздавший старый пост
	_, err = c.PushCapped(ctx, "feed:1", entry(5, 5*time.Second), 3, time.Hour)
	require.NoError(t, err)
	_, err = c.PushCapped(ctx, "feed:1", entry(0, -time.Second), 3, time.Hour)
	require.NoError(t, err)

	got, err := c.Range(ctx, "feed:1", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 3}, ids(got))
}

func TestTieBreakByID(t *testing.T) {
	c := New(logx.Nop())
	ctx := context.Background()

	require.NoError(t, c.Replace(ctx, "posts:1", []domain.CacheEntry{entry(1, 0), entry(3, 0)}, time.Hour))
	_, err := c.PushCapped(ctx, "posts:1", entry(2, 0), 10, time.Hour)
	require.NoError(t, err)

	got, err := c.Range(ctx, "posts:1", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, ids(got))
}

func TestRangeIndexes(t *testing.T) {
	c := New(logx.Nop())
	ctx := context.Background()

	require.NoError(t, c.Replace(ctx, "posts:1", []domain.CacheEntry{
		entry(1, 1*time.Second), entry(2, 2*time.Second), entry(3, 3*time.Second), entry(2, 2*time.Second),
	}, time.Hour))

	cases := []struct {
		start, stop int64
		want        []int64
	}{
		{0, -1, []int64{3, 2, 1}},
		{0, 0, []int64{3}},
		{1, 10, []int64{2, 1}},
		{-2, -1, []int64{2, 1}},
		{5, 10, []int64{}},
	}
	for _, tc := range cases {
		got, err := c.Range(ctx, "posts:1", tc.start, tc.stop)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ids(got), "range %d..%d", tc.start, tc.stop)
	}

	got, err := c.Range(ctx, "absent", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReplaceEmptyDeletes(t *testing.T) {
	c := New(logx.Nop())
	ctx := context.Background()

	require.NoError(t, c.Replace(ctx, "posts:1", []domain.CacheEntry{entry(1, 0)}, time.Hour))
	require.NoError(t, c.Replace(ctx, "posts:1", nil, time.Hour))
	pushed, err := c.PushCapped(ctx, "posts:1", entry(2, time.Second), 10, time.Hour)
	require.NoError(t, err)
	assert.False(t, pushed)
}

func TestConcurrentPush(t *testing.T) {
	c := New(logx.Nop())
	ctx := context.Background()
	require.NoError(t, c.Replace(ctx, "feed:1", []domain.CacheEntry{entry(0, 0)}, time.Hour))

	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(i int64) {
			defer wg.Done()
			_, _ = c.PushCapped(ctx, "feed:1", entry(i, time.Duration(i)*time.Second), 20, time.Hour)
		}(i)
	}
	wg.Wait()

	got, err := c.Range(ctx, "feed:1", 0, -1)
	require.NoError(t, err)
	require.Len(t, got, 20)
	for i := range got {
		assert.Equal(t, int64(50-i), got[i].PostID)
	}
}
