package domain

import (
	"fmt"
	"strings"
)

// Полиморфная ссылка лайка: пост или комментарий. Разбирается один раз на границе.
type TargetKind string

const (
	TargetPost    TargetKind = "tweet"
	TargetComment TargetKind = "comment"
)

func ParseTargetKind(s string) (TargetKind, error) {
	switch TargetKind(strings.ToLower(strings.TrimSpace(s))) {
	case TargetPost:
		return TargetPost, nil
	case TargetComment:
		return TargetComment, nil
	default:
		return "", fmt.Errorf("unknown target kind %q: %w", s, ErrBadParams)
	}
}

type Target struct {
	Kind TargetKind `json:"content_type"`
	ID   int64      `json:"object_id"`
}

// Денормализованные счётчики. Колонки: в infra/database/postgres/counters.go.
type Counter int

const (
	CounterPostLikes Counter = iota + 1
	CounterPostComments
	CounterCommentLikes
)

func (c Counter) String() string {
	switch c {
	case CounterPostLikes:
		return "posts.like_count"
	case CounterPostComments:
		return "posts.comment_count"
	case CounterCommentLikes:
		return "comments.like_count"
	default:
		return fmt.Sprintf("counter(%d)", int(c))
	}
}
