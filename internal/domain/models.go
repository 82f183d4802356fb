package domain

import (
	"time"
)

// Базовые идентификаторы (BIGSERIAL в postgres)
type UserID = int64
type PostID = int64
type CommentID = int64

// Пользователь. Регистрация и профиль живут вне ядра, здесь только то, что нужно ленте.
type User struct {
	ID        UserID    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Пост (tweet). Всё неизменяемо, кроме счётчиков: их пишет только counter.Maintainer.
type Post struct {
	ID           PostID    `json:"id"`
	AuthorID     UserID    `json:"user_id"`
	Body         string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	LikeCount    int64     `json:"likes_count"`
	CommentCount int64     `json:"comments_count"`
}

// Ребро подписки: FollowerID читает FolloweeID.
type Follow struct {
	FollowerID UserID    `json:"from_user_id"`
	FolloweeID UserID    `json:"to_user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Элемент списка подписчиков/подписок
type FollowUser struct {
	User        User      `json:"user"`
	CreatedAt   time.Time `json:"created_at"`
	HasFollowed bool      `json:"has_followed"`
}

type Comment struct {
	ID        CommentID `json:"id"`
	PostID    PostID    `json:"tweet_id"`
	AuthorID  UserID    `json:"user_id"`
	Body      string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	LikeCount int64     `json:"likes_count"`
}

type Like struct {
	ID        int64     `json:"id"`
	UserID    UserID    `json:"user_id"`
	Target    Target    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}

// Выборка постов из БД: всегда newest-first по created_at.
// Нулевые After/Before означают "без границы", Limit <= 0: без лимита.
type PostRange struct {
	AuthorIDs []UserID
	After     time.Time // created_at > After
	Before    time.Time // created_at < Before
	Limit     int
}
