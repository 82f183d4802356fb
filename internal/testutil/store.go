// Package testutil: in-memory реализация репозиториев для тестов сервисов и транспорта.
// Повторяет семантику postgres-репозитория: коды ошибок, порядок выборок, RowsAffected.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
)

// Base задаёт время первой записи. Каждая вставка сдвигает часы на миллисекунду.
var Base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type followKey struct{ from, to domain.UserID }

type likeKey struct {
	user   domain.UserID
	target domain.Target
}

type Store struct {
	mu  sync.Mutex
	now time.Time
	seq int64

	users    map[domain.UserID]domain.User
	posts    map[domain.PostID]domain.Post
	follows  map[followKey]domain.Follow
	comments map[domain.CommentID]domain.Comment
	likes    map[likeKey]domain.Like

	calls map[string]int
	fail  map[string]error
}

var (
	_ domain.UsersRepo       = (*Store)(nil)
	_ domain.PostsRepo       = (*Store)(nil)
	_ domain.FriendshipsRepo = (*Store)(nil)
	_ domain.LikesRepo       = (*Store)(nil)
	_ domain.CommentsRepo    = (*Store)(nil)
	_ domain.CountersRepo    = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		now:      Base,
		users:    map[domain.UserID]domain.User{},
		posts:    map[domain.PostID]domain.Post{},
		follows:  map[followKey]domain.Follow{},
		comments: map[domain.CommentID]domain.Comment{},
		likes:    map[likeKey]domain.Like{},
		calls:    map[string]int{},
		fail:     map[string]error{},
	}
}

// Ping нужен health-проверкам; падает, если задан Fail("Ping", ...).
func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enter("Ping")
}

// Calls считает, сколько раз вызывался метод (по имени).
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = map[string]int{}
}

// Fail заставляет метод op возвращать err; nil снимает сбой.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// enter вызывается под s.mu
func (s *Store) enter(op string) error {
	s.calls[op]++
	return s.fail[op]
}

func (s *Store) tick() time.Time {
	s.now = s.now.Add(time.Millisecond)
	return s.now
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, username string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateUser"); err != nil {
		return domain.User{}, err
	}
	for _, u := range s.users {
		if u.Username == username {
			return domain.User{}, fmt.Errorf("CreateUser: %w", domain.ErrConflict)
		}
	}
	u := domain.User{ID: s.nextID(), Username: username, CreatedAt: s.tick()}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UserByID(_ context.Context, id domain.UserID) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UserByID"); err != nil {
		return domain.User{}, err
	}
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("UserByID: %w", domain.ErrNotFound)
	}
	return u, nil
}

// ---- posts ----

func (s *Store) CreatePost(_ context.Context, authorID domain.UserID, body string) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreatePost"); err != nil {
		return domain.Post{}, err
	}
	if _, ok := s.users[authorID]; !ok {
		return domain.Post{}, fmt.Errorf("CreatePost: %w", domain.ErrNotFound)
	}
	p := domain.Post{ID: s.nextID(), AuthorID: authorID, Body: body, CreatedAt: s.tick()}
	s.posts[p.ID] = p
	return p, nil
}

func (s *Store) PostByID(_ context.Context, id domain.PostID) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("PostByID"); err != nil {
		return domain.Post{}, err
	}
	p, ok := s.posts[id]
	if !ok {
		return domain.Post{}, fmt.Errorf("PostByID: %w", domain.ErrNotFound)
	}
	return p, nil
}

func (s *Store) PostsByIDs(_ context.Context, ids []domain.PostID) ([]domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("PostsByIDs"); err != nil {
		return nil, err
	}
	var out []domain.Post
	for _, id := range ids {
		if p, ok := s.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListPosts(_ context.Context, r domain.PostRange) ([]domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListPosts"); err != nil {
		return nil, err
	}
	authors := make(map[domain.UserID]bool, len(r.AuthorIDs))
	for _, a := range r.AuthorIDs {
		authors[a] = true
	}
	var out []domain.Post
	for _, p := range s.posts {
		if !authors[p.AuthorID] {
			continue
		}
		if !r.After.IsZero() && !p.CreatedAt.After(r.After) {
			continue
		}
		if !r.Before.IsZero() && !p.CreatedAt.Before(r.Before) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if r.Limit > 0 && len(out) > r.Limit {
		out = out[:r.Limit]
	}
	return out, nil
}

// ---- friendships ----

func (s *Store) CreateFollow(_ context.Context, followerID, followeeID domain.UserID) (domain.Follow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateFollow"); err != nil {
		return domain.Follow{}, err
	}
	if followerID == followeeID {
		return domain.Follow{}, fmt.Errorf("CreateFollow: self: %w", domain.ErrBadParams)
	}
	_, okA := s.users[followerID]
	_, okB := s.users[followeeID]
	if !okA || !okB {
		return domain.Follow{}, fmt.Errorf("CreateFollow: %w", domain.ErrNotFound)
	}
	k := followKey{followerID, followeeID}
	if _, dup := s.follows[k]; dup {
		return domain.Follow{}, fmt.Errorf("CreateFollow: %w", domain.ErrConflict)
	}
	f := domain.Follow{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: s.tick()}
	s.follows[k] = f
	return f, nil
}

func (s *Store) DeleteFollow(_ context.Context, followerID, followeeID domain.UserID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteFollow"); err != nil {
		return 0, err
	}
	k := followKey{followerID, followeeID}
	if _, ok := s.follows[k]; !ok {
		return 0, nil
	}
	delete(s.follows, k)
	return 1, nil
}

func (s *Store) FollowerIDs(_ context.Context, userID domain.UserID) ([]domain.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("FollowerIDs"); err != nil {
		return nil, err
	}
	var out []domain.UserID
	for k := range s.follows {
		if k.to == userID {
			out = append(out, k.from)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) FolloweeIDs(_ context.Context, userID domain.UserID) ([]domain.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("FolloweeIDs"); err != nil {
		return nil, err
	}
	var out []domain.UserID
	for k := range s.follows {
		if k.from == userID {
			out = append(out, k.to)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) followUsers(match func(followKey) (domain.UserID, bool), limit, offset int) []domain.FollowUser {
	var out []domain.FollowUser
	for k, f := range s.follows {
		other, ok := match(k)
		if !ok {
			continue
		}
		out = append(out, domain.FollowUser{User: s.users[other], CreatedAt: f.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].User.ID > out[j].User.ID
	})
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) Followers(_ context.Context, userID domain.UserID, limit, offset int) ([]domain.FollowUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Followers"); err != nil {
		return nil, err
	}
	return s.followUsers(func(k followKey) (domain.UserID, bool) { return k.from, k.to == userID }, limit, offset), nil
}

func (s *Store) Followings(_ context.Context, userID domain.UserID, limit, offset int) ([]domain.FollowUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Followings"); err != nil {
		return nil, err
	}
	return s.followUsers(func(k followKey) (domain.UserID, bool) { return k.to, k.from == userID }, limit, offset), nil
}

func (s *Store) CountFollowers(_ context.Context, userID domain.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CountFollowers"); err != nil {
		return 0, err
	}
	n := 0
	for k := range s.follows {
		if k.to == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountFollowings(_ context.Context, userID domain.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CountFollowings"); err != nil {
		return 0, err
	}
	n := 0
	for k := range s.follows {
		if k.from == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) FollowedAmong(_ context.Context, viewer domain.UserID, ids []domain.UserID) (map[domain.UserID]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("FollowedAmong"); err != nil {
		return nil, err
	}
	out := make(map[domain.UserID]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.follows[followKey{viewer, id}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

// ---- likes ----

func (s *Store) CreateLike(_ context.Context, userID domain.UserID, t domain.Target) (domain.Like, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateLike"); err != nil {
		return domain.Like{}, false, err
	}
	k := likeKey{userID, t}
	if l, ok := s.likes[k]; ok {
		return l, false, nil
	}
	l := domain.Like{ID: s.nextID(), UserID: userID, Target: t, CreatedAt: s.tick()}
	s.likes[k] = l
	return l, true, nil
}

func (s *Store) DeleteLike(_ context.Context, userID domain.UserID, t domain.Target) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteLike"); err != nil {
		return 0, err
	}
	k := likeKey{userID, t}
	if _, ok := s.likes[k]; !ok {
		return 0, nil
	}
	delete(s.likes, k)
	return 1, nil
}

func (s *Store) DeleteTargetLikes(_ context.Context, t domain.Target) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteTargetLikes"); err != nil {
		return 0, err
	}
	var n int64
	for k := range s.likes {
		if k.target == t {
			delete(s.likes, k)
			n++
		}
	}
	return n, nil
}

// LikeCount возвращает фактическое число строк лайков у цели.
func (s *Store) LikeCount(t domain.Target) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.likes {
		if k.target == t {
			n++
		}
	}
	return n
}

// ---- comments ----

func (s *Store) CreateComment(_ context.Context, postID domain.PostID, authorID domain.UserID, body string) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateComment"); err != nil {
		return domain.Comment{}, err
	}
	if _, ok := s.posts[postID]; !ok {
		return domain.Comment{}, fmt.Errorf("CreateComment: %w", domain.ErrNotFound)
	}
	c := domain.Comment{ID: s.nextID(), PostID: postID, AuthorID: authorID, Body: body, CreatedAt: s.tick()}
	s.comments[c.ID] = c
	return c, nil
}

func (s *Store) CommentByID(_ context.Context, id domain.CommentID) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CommentByID"); err != nil {
		return domain.Comment{}, err
	}
	c, ok := s.comments[id]
	if !ok {
		return domain.Comment{}, fmt.Errorf("CommentByID: %w", domain.ErrNotFound)
	}
	return c, nil
}

func (s *Store) DeleteComment(_ context.Context, id domain.CommentID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteComment"); err != nil {
		return 0, err
	}
	if _, ok := s.comments[id]; !ok {
		return 0, nil
	}
	delete(s.comments, id)
	return 1, nil
}

// ---- counters ----

func (s *Store) AdjustCounter(_ context.Context, c domain.Counter, id int64, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("AdjustCounter"); err != nil {
		return err
	}
	switch c {
	case domain.CounterPostLikes, domain.CounterPostComments:
		p, ok := s.posts[id]
		if !ok {
			return fmt.Errorf("AdjustCounter: %w", domain.ErrNotFound)
		}
		if c == domain.CounterPostLikes {
			p.LikeCount += delta
		} else {
			p.CommentCount += delta
		}
		s.posts[id] = p
	case domain.CounterCommentLikes:
		cm, ok := s.comments[id]
		if !ok {
			return fmt.Errorf("AdjustCounter: %w", domain.ErrNotFound)
		}
		cm.LikeCount += delta
		s.comments[id] = cm
	default:
		return fmt.Errorf("AdjustCounter %s: %w", c, domain.ErrUnexpected)
	}
	return nil
}
