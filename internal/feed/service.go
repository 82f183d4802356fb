// Package feed — прикладной слой: посты, ленты, лайки, комментарии и подписки.
// Связывает репозитории, кеш списков, fanout и пагинацию.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/feed/counter"
	"github.com/EgorLis/my-feed/internal/feed/cursor"
	"github.com/EgorLis/my-feed/internal/feed/postcache"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/rs/zerolog"
)

type Repos struct {
	Users       domain.UsersRepo
	Posts       domain.PostsRepo
	Friendships domain.FriendshipsRepo
	Likes       domain.LikesRepo
	Comments    domain.CommentsRepo
	Counters    domain.CountersRepo
}

// Dispatcher — постановка fanout-задачи (fanout.Service).
type Dispatcher interface {
	Dispatch(ctx context.Context, p domain.Post) error
}

type Options struct {
	// TTL списков и кеша подписок
	TTL time.Duration
}

type Service struct {
	repos    Repos
	cache    domain.Cache
	lists    *postcache.Service
	pager    *cursor.Paginator
	fanout   Dispatcher
	counters *counter.Maintainer
	ttl      time.Duration
	logger   zerolog.Logger
}

func NewService(repos Repos, cache domain.Cache, lists *postcache.Service, fanout Dispatcher, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		repos:    repos,
		cache:    cache,
		lists:    lists,
		pager:    cursor.New(repos.Posts, lists.Limit(), logger),
		fanout:   fanout,
		counters: counter.New(repos.Counters, logger),
		ttl:      opts.TTL,
		logger:   logger,
	}
}

// ---- посты ----

func (s *Service) CreatePost(ctx context.Context, author domain.UserID, body string) (domain.Post, error) {
	p, err := s.repos.Posts.CreatePost(ctx, author, body)
	if err != nil {
		return domain.Post{}, err
	}
	// кеш и fanout советующие: пост уже в БД, читатели его найдут
	if err := s.lists.Push(ctx, domain.CacheKeyUserPosts(author), postcache.Entry(p)); err != nil {
		logx.Warn(s.logger, "", "feed.CreatePost", "own posts push failed", err, "post_id", p.ID)
		_ = s.lists.Invalidate(ctx, domain.CacheKeyUserPosts(author))
	}
	if err := s.fanout.Dispatch(ctx, p); err != nil {
		logx.Error(s.logger, "", "feed.CreatePost", "fanout dispatch failed", err, "post_id", p.ID)
		s.dropFeeds(ctx, p)
	}
	logx.Info(s.logger, "", "feed.CreatePost", "post created", "post_id", p.ID, "author_id", author)
	return p, nil
}

// dropFeeds сбрасывает ленты автора и подписчиков, когда fanout не поставлен:
// следующее чтение каждой из них пойдёт в БД.
func (s *Service) dropFeeds(ctx context.Context, p domain.Post) {
	followers, err := s.repos.Friendships.FollowerIDs(ctx, p.AuthorID)
	if err != nil {
		logx.Error(s.logger, "", "feed.dropFeeds", "follower lookup failed, feeds stay stale until ttl", err, "post_id", p.ID)
	}
	keys := make([]string, 0, len(followers)+1)
	keys = append(keys, domain.CacheKeyFeed(p.AuthorID))
	for _, uid := range followers {
		keys = append(keys, domain.CacheKeyFeed(uid))
	}
	_ = s.lists.Invalidate(ctx, keys...)
}

func (s *Service) GetPost(ctx context.Context, id domain.PostID) (domain.Post, error) {
	return s.repos.Posts.PostByID(ctx, id)
}

func (s *Service) ListUserPosts(ctx context.Context, user domain.UserID, prm cursor.Params) (cursor.Page, error) {
	return s.pager.Page(ctx, &userPosts{s: s, user: user}, prm)
}

func (s *Service) ListFeed(ctx context.Context, user domain.UserID, prm cursor.Params) (cursor.Page, error) {
	return s.pager.Page(ctx, &homeFeed{s: s, user: user}, prm)
}

// userPosts — свои посты пользователя
type userPosts struct {
	s    *Service
	user domain.UserID
}

func (u *userPosts) Head(ctx context.Context) ([]domain.CacheEntry, error) {
	return u.s.lists.Load(ctx, domain.CacheKeyUserPosts(u.user), func(ctx context.Context, limit int) ([]domain.CacheEntry, error) {
		ps, err := u.s.repos.Posts.ListPosts(ctx, domain.PostRange{AuthorIDs: []domain.UserID{u.user}, Limit: limit})
		return postcache.Entries(ps), err
	})
}

func (u *userPosts) Query(ctx context.Context, r domain.PostRange) ([]domain.Post, error) {
	r.AuthorIDs = []domain.UserID{u.user}
	return u.s.repos.Posts.ListPosts(ctx, r)
}

// homeFeed — посты подписок и самого пользователя
type homeFeed struct {
	s    *Service
	user domain.UserID
}

func (h *homeFeed) Head(ctx context.Context) ([]domain.CacheEntry, error) {
	return h.s.lists.Load(ctx, domain.CacheKeyFeed(h.user), func(ctx context.Context, limit int) ([]domain.CacheEntry, error) {
		authors, err := h.s.feedAuthors(ctx, h.user)
		if err != nil {
			return nil, err
		}
		ps, err := h.s.repos.Posts.ListPosts(ctx, domain.PostRange{AuthorIDs: authors, Limit: limit})
		return postcache.Entries(ps), err
	})
}

func (h *homeFeed) Query(ctx context.Context, r domain.PostRange) ([]domain.Post, error) {
	authors, err := h.s.feedAuthors(ctx, h.user)
	if err != nil {
		return nil, err
	}
	r.AuthorIDs = authors
	return h.s.repos.Posts.ListPosts(ctx, r)
}

// feedAuthors — подписки пользователя и он сам. Список подписок кешируется.
func (s *Service) feedAuthors(ctx context.Context, user domain.UserID) ([]domain.UserID, error) {
	key := domain.CacheKeyFollowings(user)

	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logx.Warn(s.logger, "", "feed.feedAuthors", "followings cache read failed", err, "user_id", user)
	}
	var ids []domain.UserID
	if err == nil && ok {
		if jerr := json.Unmarshal(b, &ids); jerr == nil {
			return append(ids, user), nil
		}
		logx.Warn(s.logger, "", "feed.feedAuthors", "corrupt followings entry", nil, "user_id", user)
	}

	ids, err = s.repos.Friendships.FolloweeIDs(ctx, user)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(ids); err == nil {
		if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
			logx.Warn(s.logger, "", "feed.feedAuthors", "followings cache write failed", err, "user_id", user)
		}
	}
	return append(ids, user), nil
}

// ---- лайки ----

func (s *Service) targetExists(ctx context.Context, t domain.Target) error {
	switch t.Kind {
	case domain.TargetPost:
		_, err := s.repos.Posts.PostByID(ctx, t.ID)
		return err
	case domain.TargetComment:
		_, err := s.repos.Comments.CommentByID(ctx, t.ID)
		return err
	default:
		return fmt.Errorf("target kind %q: %w", t.Kind, domain.ErrBadParams)
	}
}

// CreateLike ставит лайк. Повторный лайк возвращает существующий и не трогает счётчик.
func (s *Service) CreateLike(ctx context.Context, user domain.UserID, t domain.Target) (domain.Like, bool, error) {
	if err := s.targetExists(ctx, t); err != nil {
		return domain.Like{}, false, err
	}
	like, created, err := s.repos.Likes.CreateLike(ctx, user, t)
	if err != nil || !created {
		return like, false, err
	}
	if err := s.counters.OnCreate(ctx, counter.Assoc{Kind: counter.AssocLike, Target: t}); err != nil {
		// откат, чтобы строка и счётчик не разошлись
		if _, derr := s.repos.Likes.DeleteLike(ctx, user, t); derr != nil {
			logx.Error(s.logger, "", "feed.CreateLike", "rollback failed", derr, "user_id", user, "target_id", t.ID)
		}
		return domain.Like{}, false, err
	}
	return like, true, nil
}

// DeleteLike снимает лайк и возвращает число удалённых строк (0 или 1).
func (s *Service) DeleteLike(ctx context.Context, user domain.UserID, t domain.Target) (int64, error) {
	if t.Kind != domain.TargetPost && t.Kind != domain.TargetComment {
		return 0, fmt.Errorf("target kind %q: %w", t.Kind, domain.ErrBadParams)
	}
	n, err := s.repos.Likes.DeleteLike(ctx, user, t)
	if err != nil || n == 0 {
		return 0, err
	}
	if err := s.counters.OnDelete(ctx, counter.Assoc{Kind: counter.AssocLike, Target: t}); err != nil {
		if _, _, cerr := s.repos.Likes.CreateLike(ctx, user, t); cerr != nil {
			logx.Error(s.logger, "", "feed.DeleteLike", "rollback failed", cerr, "user_id", user, "target_id", t.ID)
		}
		return 0, err
	}
	return n, nil
}

// ---- комментарии ----

func (s *Service) CreateComment(ctx context.Context, author domain.UserID, post domain.PostID, body string) (domain.Comment, error) {
	c, err := s.repos.Comments.CreateComment(ctx, post, author, body)
	if err != nil {
		return domain.Comment{}, err
	}
	a := counter.Assoc{Kind: counter.AssocComment, Target: domain.Target{Kind: domain.TargetPost, ID: post}}
	if err := s.counters.OnCreate(ctx, a); err != nil {
		if _, derr := s.repos.Comments.DeleteComment(ctx, c.ID); derr != nil {
			logx.Error(s.logger, "", "feed.CreateComment", "rollback failed", derr, "comment_id", c.ID)
		}
		return domain.Comment{}, err
	}
	return c, nil
}

// DeleteComment удаляет свой комментарий.
func (s *Service) DeleteComment(ctx context.Context, user domain.UserID, id domain.CommentID) (int64, error) {
	c, err := s.repos.Comments.CommentByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if c.AuthorID != user {
		return 0, fmt.Errorf("comment %d: %w", id, domain.ErrForbidden)
	}
	n, err := s.repos.Comments.DeleteComment(ctx, id)
	if err != nil || n == 0 {
		return 0, err
	}
	a := counter.Assoc{Kind: counter.AssocComment, Target: domain.Target{Kind: domain.TargetPost, ID: c.PostID}}
	if err := s.counters.OnDelete(ctx, a); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}
	// лайки удалённого комментария; сбой оставляет сирот, на счётчики они не влияют
	target := domain.Target{Kind: domain.TargetComment, ID: id}
	if dropped, err := s.repos.Likes.DeleteTargetLikes(ctx, target); err != nil {
		logx.Warn(s.logger, "", "feed.DeleteComment", "comment likes not removed", err, "comment_id", id)
	} else if dropped > 0 {
		logx.Debug(s.logger, "", "feed.DeleteComment", "comment likes removed", "comment_id", id, "likes", dropped)
	}
	return n, nil
}
