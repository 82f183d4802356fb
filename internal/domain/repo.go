package domain

import (
	"context"
)

type UsersRepo interface {
	CreateUser(ctx context.Context, username string) (User, error)
	UserByID(ctx context.Context, id UserID) (User, error)
}

type PostsRepo interface {
	CreatePost(ctx context.Context, authorID UserID, body string) (Post, error)
	PostByID(ctx context.Context, id PostID) (Post, error)
	// Порядок результата не гарантирован, отсутствующие id пропускаются.
	PostsByIDs(ctx context.Context, ids []PostID) ([]Post, error)
	ListPosts(ctx context.Context, r PostRange) ([]Post, error)
}

type FriendshipsRepo interface {
	// ErrConflict, если подписка уже есть
	CreateFollow(ctx context.Context, followerID, followeeID UserID) (Follow, error)
	DeleteFollow(ctx context.Context, followerID, followeeID UserID) (int64, error)
	FollowerIDs(ctx context.Context, userID UserID) ([]UserID, error)
	FolloweeIDs(ctx context.Context, userID UserID) ([]UserID, error)
	// Followers/Followings: newest-first, offset-пагинация
	Followers(ctx context.Context, userID UserID, limit, offset int) ([]FollowUser, error)
	Followings(ctx context.Context, userID UserID, limit, offset int) ([]FollowUser, error)
	CountFollowers(ctx context.Context, userID UserID) (int, error)
	CountFollowings(ctx context.Context, userID UserID) (int, error)
	// Подмножество ids, на которые подписан viewer
	FollowedAmong(ctx context.Context, viewer UserID, ids []UserID) (map[UserID]bool, error)
}

type LikesRepo interface {
	// created=false, если лайк уже был: счётчик трогать нельзя
	CreateLike(ctx context.Context, userID UserID, t Target) (like Like, created bool, err error)
	DeleteLike(ctx context.Context, userID UserID, t Target) (int64, error)
	// Все лайки цели: у полиморфной ссылки нет FK, удалённая цель сама их не уберёт
	DeleteTargetLikes(ctx context.Context, t Target) (int64, error)
}

type CommentsRepo interface {
	CreateComment(ctx context.Context, postID PostID, authorID UserID, body string) (Comment, error)
	CommentByID(ctx context.Context, id CommentID) (Comment, error)
	DeleteComment(ctx context.Context, id CommentID) (int64, error)
}

// Единственная операция записи счётчиков: атомарное col = col + delta на стороне БД.
type CountersRepo interface {
	AdjustCounter(ctx context.Context, c Counter, id int64, delta int64) error
}
