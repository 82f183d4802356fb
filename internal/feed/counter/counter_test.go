package counter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/EgorLis/my-feed/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*testutil.Store, domain.Post, domain.Comment) {
	t.Helper()
	ctx := context.Background()
	s := testutil.NewStore()
	u, err := s.CreateUser(ctx, "u")
	require.NoError(t, err)
	p, err := s.CreatePost(ctx, u.ID, "hello world")
	require.NoError(t, err)
	c, err := s.CreateComment(ctx, p.ID, u.ID, "nice")
	require.NoError(t, err)
	return s, p, c
}

func TestLookupTable(t *testing.T) {
	s, p, c := setup(t)
	m := New(s, logx.Nop())
	ctx := context.Background()

	postT := domain.Target{Kind: domain.TargetPost, ID: p.ID}
	commentT := domain.Target{Kind: domain.TargetComment, ID: c.ID}

	require.NoError(t, m.OnCreate(ctx, Assoc{Kind: AssocLike, Target: postT}))
	require.NoError(t, m.OnCreate(ctx, Assoc{Kind: AssocComment, Target: postT}))
	require.NoError(t, m.OnCreate(ctx, Assoc{Kind: AssocLike, Target: commentT}))
	require.NoError(t, m.OnCreate(ctx, Assoc{Kind: AssocLike, Target: commentT}))
	require.NoError(t, m.OnDelete(ctx, Assoc{Kind: AssocLike, Target: commentT}))

	gotP, err := s.PostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gotP.LikeCount)
	assert.Equal(t, int64(1), gotP.CommentCount)

	gotC, err := s.CommentByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gotC.LikeCount)
}

func TestUnknownPair(t *testing.T) {
	s, _, c := setup(t)
	m := New(s, logx.Nop())

	err := m.OnCreate(context.Background(), Assoc{Kind: AssocComment, Target: domain.Target{Kind: domain.TargetComment, ID: c.ID}})
	assert.ErrorIs(t, err, domain.ErrBadParams)
	assert.Equal(t, 0, s.Calls("AdjustCounter"))
}

func TestStoreFailureSurfaces(t *testing.T) {
	s, p, _ := setup(t)
	boom := errors.New("db down")
	s.Fail("AdjustCounter", boom)

	err := New(s, logx.Nop()).OnCreate(context.Background(), Assoc{Kind: AssocLike, Target: domain.Target{Kind: domain.TargetPost, ID: p.ID}})
	assert.ErrorIs(t, err, boom)
}

func TestConcurrentAdjustments(t *testing.T) {
	s, p, _ := setup(t)
	m := New(s, logx.Nop())
	ctx := context.Background()
	a := Assoc{Kind: AssocLike, Target: domain.Target{Kind: domain.TargetPost, ID: p.ID}}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); assert.NoError(t, m.OnCreate(ctx, a)) }()
		go func() { defer wg.Done(); assert.NoError(t, m.OnCreate(ctx, a)) }()
	}
	wg.Wait()
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() { defer wg.Done(); assert.NoError(t, m.OnDelete(ctx, a)) }()
	}
	wg.Wait()

	got, err := s.PostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), got.LikeCount)
}
