// Package counter поддерживает денормализованные счётчики лайков и комментариев.
// Вызывается явно из сервиса после того, как запись реально вставлена или удалена.
package counter

import (
	"context"
	"fmt"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/rs/zerolog"
)

// AssocKind — вид ассоциации, меняющей счётчик.
type AssocKind string

const (
	AssocLike    AssocKind = "like"
	AssocComment AssocKind = "comment"
)

// Assoc — созданная или удалённая ассоциация и цель, чей счётчик меняется.
type Assoc struct {
	Kind   AssocKind
	Target domain.Target
}

type key struct {
	assoc  AssocKind
	target domain.TargetKind
}

// Таблица: какая ассоциация на какой цели двигает какой счётчик
var counters = map[key]domain.Counter{
	{AssocLike, domain.TargetPost}:    domain.CounterPostLikes,
	{AssocLike, domain.TargetComment}: domain.CounterCommentLikes,
	{AssocComment, domain.TargetPost}: domain.CounterPostComments,
}

type Maintainer struct {
	repo   domain.CountersRepo
	logger zerolog.Logger
}

func New(repo domain.CountersRepo, logger zerolog.Logger) *Maintainer {
	return &Maintainer{repo: repo, logger: logger}
}

func (m *Maintainer) OnCreate(ctx context.Context, a Assoc) error {
	return m.adjust(ctx, a, +1)
}

func (m *Maintainer) OnDelete(ctx context.Context, a Assoc) error {
	return m.adjust(ctx, a, -1)
}

func (m *Maintainer) adjust(ctx context.Context, a Assoc, delta int64) error {
	c, ok := counters[key{a.Kind, a.Target.Kind}]
	if !ok {
		return fmt.Errorf("no counter for %s on %s: %w", a.Kind, a.Target.Kind, domain.ErrBadParams)
	}
	if err := m.repo.AdjustCounter(ctx, c, a.Target.ID, delta); err != nil {
		logx.Error(m.logger, "", "counter.adjust", "adjust failed", err,
			"counter", c.String(), "id", a.Target.ID, "delta", delta)
		return fmt.Errorf("adjust %s: %w", c, err)
	}
	logx.Debug(m.logger, "", "counter.adjust", "adjusted", "counter", c.String(), "id", a.Target.ID, "delta", delta)
	return nil
}
