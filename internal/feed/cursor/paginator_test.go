package cursor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/feed/postcache"
	"github.com/EgorLis/my-feed/internal/infra/cache/memory"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/EgorLis/my-feed/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userPosts — Source своих постов автора поверх postcache и testutil.Store.
type userPosts struct {
	author  domain.UserID
	cache   *postcache.Service
	store   *testutil.Store
	headErr error
}

func (u *userPosts) Head(ctx context.Context) ([]domain.CacheEntry, error) {
	if u.headErr != nil {
		return nil, u.headErr
	}
	return u.cache.Load(ctx, domain.CacheKeyUserPosts(u.author), func(ctx context.Context, limit int) ([]domain.CacheEntry, error) {
		ps, err := u.store.ListPosts(ctx, domain.PostRange{AuthorIDs: []domain.UserID{u.author}, Limit: limit})
		return postcache.Entries(ps), err
	})
}

func (u *userPosts) Query(ctx context.Context, r domain.PostRange) ([]domain.Post, error) {
	r.AuthorIDs = []domain.UserID{u.author}
	return u.store.ListPosts(ctx, r)
}

type fixture struct {
	store *testutil.Store
	src   *userPosts
	pg    *Paginator
	posts []domain.Post // в порядке создания
}

func newFixture(t *testing.T, n, limit int) *fixture {
	t.Helper()
	ctx := context.Background()
	store := testutil.NewStore()
	u, err := store.CreateUser(ctx, "author")
	require.NoError(t, err)

	f := &fixture{store: store}
	for i := 0; i < n; i++ {
		p, err := store.CreatePost(ctx, u.ID, fmt.Sprintf("post %d", i))
		require.NoError(t, err)
		f.posts = append(f.posts, p)
	}
	cache := postcache.New(memory.New(logx.Nop()), postcache.Options{Limit: limit, TTL: 0}, logx.Nop())
	f.src = &userPosts{author: u.ID, cache: cache, store: store}
	f.pg = New(store, limit, logx.Nop())
	return f
}

// walk проходит ленту курсором created_at__lt до конца.
func walk(t *testing.T, f *fixture, size int) []domain.Post {
	t.Helper()
	var all []domain.Post
	prm := Params{Size: size}
	for i := 0; i < 1000; i++ {
		page, err := f.pg.Page(context.Background(), f.src, prm)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Posts), size)
		all = append(all, page.Posts...)
		if !page.HasNextPage {
			return all
		}
		require.NotEmpty(t, page.Posts, "has_next_page with empty page")
		prm.Before = page.Posts[len(page.Posts)-1].CreatedAt
	}
	t.Fatal("walk did not terminate")
	return nil
}

func TestWalkReturnsEveryPostOnceInOrder(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 11, 35} {
		for _, size := range []int{1, 3, 10, 50} {
			t.Run(fmt.Sprintf("n=%d/size=%d", n, size), func(t *testing.T) {
				f := newFixture(t, n, 10)
				got := walk(t, f, size)

				require.Len(t, got, n)
				seen := map[domain.PostID]bool{}
				for i, p := range got {
					assert.False(t, seen[p.ID], "duplicate %d", p.ID)
					seen[p.ID] = true
					if i > 0 {
						assert.True(t, got[i-1].CreatedAt.After(p.CreatedAt), "order broken at %d", i)
					}
				}
			})
		}
	}
}

func TestFirstPageFromCache(t *testing.T) {
	f := newFixture(t, 30, 10)
	ctx := context.Background()

	_, err := f.pg.Page(ctx, f.src, Params{Size: 4})
	require.NoError(t, err)
	f.store.ResetCalls()

	page, err := f.pg.Page(ctx, f.src, Params{Size: 4})
	require.NoError(t, err)
	assert.True(t, page.HasNextPage)
	assert.Len(t, page.Posts, 4)
	assert.Equal(t, f.posts[29].ID, page.Posts[0].ID)
	assert.Equal(t, 0, f.store.Calls("ListPosts"), "served from warm cache")
}

func TestFallsBackPastCacheDepth(t *testing.T) {
	f := newFixture(t, 30, 10)
	ctx := context.Background()

	// курсор на 8-м сверху: в кеше осталось 2 старше, а лимит 4
	cur := f.posts[30-8].CreatedAt
	_, err := f.pg.Page(ctx, f.src, Params{Size: 1})
	require.NoError(t, err)
	f.store.ResetCalls()

	page, err := f.pg.Page(ctx, f.src, Params{Before: cur, Size: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Calls("ListPosts"))
	require.Len(t, page.Posts, 4)
	assert.True(t, page.HasNextPage)
	assert.Equal(t, f.posts[30-9].ID, page.Posts[0].ID)
}

func TestCompleteCacheEndsFeed(t *testing.T) {
	f := newFixture(t, 5, 10)
	ctx := context.Background()

	page, err := f.pg.Page(ctx, f.src, Params{Size: 5})
	require.NoError(t, err)
	assert.Len(t, page.Posts, 5)
	assert.False(t, page.HasNextPage)

	f.store.ResetCalls()
	page, err = f.pg.Page(ctx, f.src, Params{Before: f.posts[2].CreatedAt, Size: 5})
	require.NoError(t, err)
	assert.Len(t, page.Posts, 2)
	assert.False(t, page.HasNextPage)
	assert.Equal(t, 0, f.store.Calls("ListPosts"))
}

func TestAfterMode(t *testing.T) {
	for _, limit := range []int{3, 10, 100} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			f := newFixture(t, 20, limit)
			cur := f.posts[14].CreatedAt

			page, err := f.pg.Page(context.Background(), f.src, Params{After: cur, Size: 2})
			require.NoError(t, err)
			assert.False(t, page.HasNextPage)
			require.Len(t, page.Posts, 5, "no size cap in after mode")
			for i, p := range page.Posts {
				assert.Equal(t, f.posts[19-i].ID, p.ID)
			}
		})
	}
}

func TestAfterModeNothingNewer(t *testing.T) {
	f := newFixture(t, 3, 10)
	page, err := f.pg.Page(context.Background(), f.src, Params{After: f.posts[2].CreatedAt, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.NotNil(t, page.Posts)
}

func TestCacheErrorFallsBackToStore(t *testing.T) {
	f := newFixture(t, 12, 10)
	f.src.headErr = errors.New("redis down")

	page, err := f.pg.Page(context.Background(), f.src, Params{Size: 5})
	require.NoError(t, err)
	assert.Len(t, page.Posts, 5)
	assert.True(t, page.HasNextPage)
	assert.Equal(t, 1, f.store.Calls("ListPosts"))

	got := walk(t, f, 5)
	assert.Len(t, got, 12)
}

func TestStoreErrorSurfaces(t *testing.T) {
	f := newFixture(t, 12, 10)
	f.src.headErr = errors.New("redis down")
	boom := errors.New("db down")
	f.store.Fail("ListPosts", boom)

	_, err := f.pg.Page(context.Background(), f.src, Params{Size: 5})
	assert.ErrorIs(t, err, boom)
}

func TestDeletedPostsSkipped(t *testing.T) {
	f := newFixture(t, 3, 10)
	ctx := context.Background()

	// голова кеша ссылается на пост, которого нет в БД
	head := append(postcache.Entries(reverse(f.posts)), domain.CacheEntry{PostID: 999, CreatedAt: testutil.Base.Add(-1)})
	src := &staticSource{head: head}
	page, err := New(f.store, 10, logx.Nop()).Page(ctx, src, Params{Size: 10})
	require.NoError(t, err)
	assert.Len(t, page.Posts, 3)
}

type staticSource struct{ head []domain.CacheEntry }

func (s *staticSource) Head(context.Context) ([]domain.CacheEntry, error) { return s.head, nil }
func (s *staticSource) Query(context.Context, domain.PostRange) ([]domain.Post, error) {
	return nil, errors.New("unexpected store query")
}

func reverse(ps []domain.Post) []domain.Post {
	out := make([]domain.Post, len(ps))
	for i, p := range ps {
		out[len(ps)-1-i] = p
	}
	return out
}
