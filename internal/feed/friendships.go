package feed

import (
	"context"
	"fmt"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/feed/offset"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/rs/zerolog"
)

type FriendshipService struct {
	users       domain.UsersRepo
	friendships domain.FriendshipsRepo
	cache       domain.Cache
	logger      zerolog.Logger
}

func NewFriendshipService(users domain.UsersRepo, friendships domain.FriendshipsRepo, cache domain.Cache, logger zerolog.Logger) *FriendshipService {
	return &FriendshipService{users: users, friendships: friendships, cache: cache, logger: logger}
}

func (s *FriendshipService) Follow(ctx context.Context, from, to domain.UserID) (domain.Follow, error) {
	if from == to {
		return domain.Follow{}, fmt.Errorf("cannot follow yourself: %w", domain.ErrBadParams)
	}
	if _, err := s.users.UserByID(ctx, to); err != nil {
		return domain.Follow{}, err
	}
	f, err := s.friendships.CreateFollow(ctx, from, to)
	if err != nil {
		return domain.Follow{}, err
	}
	s.invalidate(ctx, from)
	logx.Info(s.logger, "", "friendships.Follow", "followed", "from", from, "to", to)
	return f, nil
}

// Unfollow возвращает число удалённых связей. Повтор — 0 без ошибки.
func (s *FriendshipService) Unfollow(ctx context.Context, from, to domain.UserID) (int64, error) {
	if from == to {
		return 0, fmt.Errorf("cannot unfollow yourself: %w", domain.ErrBadParams)
	}
	n, err := s.friendships.DeleteFollow(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidate(ctx, from)
	}
	logx.Info(s.logger, "", "friendships.Unfollow", "unfollowed", "from", from, "to", to, "deleted", n)
	return n, nil
}

// invalidate сбрасывает список подписок и домашнюю ленту: набор авторов изменился.
func (s *FriendshipService) invalidate(ctx context.Context, user domain.UserID) {
	if err := s.cache.Del(ctx, domain.CacheKeyFollowings(user), domain.CacheKeyFeed(user)); err != nil {
		logx.Warn(s.logger, "", "friendships.invalidate", "cache invalidation failed", err, "user_id", user)
	}
}

func (s *FriendshipService) Followers(ctx context.Context, viewer, user domain.UserID, p offset.Params) (offset.Page[domain.FollowUser], error) {
	return s.list(ctx, viewer, user, p, s.friendships.CountFollowers, s.friendships.Followers)
}

func (s *FriendshipService) Followings(ctx context.Context, viewer, user domain.UserID, p offset.Params) (offset.Page[domain.FollowUser], error) {
	return s.list(ctx, viewer, user, p, s.friendships.CountFollowings, s.friendships.Followings)
}

func (s *FriendshipService) list(
	ctx context.Context,
	viewer, user domain.UserID,
	p offset.Params,
	count func(context.Context, domain.UserID) (int, error),
	fetch func(context.Context, domain.UserID, int, int) ([]domain.FollowUser, error),
) (offset.Page[domain.FollowUser], error) {
	var zero offset.Page[domain.FollowUser]
	if _, err := s.users.UserByID(ctx, user); err != nil {
		return zero, err
	}
	total, err := count(ctx, user)
	if err != nil {
		return zero, err
	}
	if err := offset.Check(p, total); err != nil {
		return zero, err
	}
	limit, off := p.Window()
	items, err := fetch(ctx, user, limit, off)
	if err != nil {
		return zero, err
	}

	// has_followed: относительно того, кто смотрит
	if viewer != 0 && len(items) > 0 {
		ids := make([]domain.UserID, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.User.ID)
		}
		followed, err := s.friendships.FollowedAmong(ctx, viewer, ids)
		if err != nil {
			return zero, err
		}
		for i := range items {
			items[i].HasFollowed = followed[items[i].User.ID]
		}
	}
	return offset.NewPage(items, total, p), nil
}
