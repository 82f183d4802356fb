package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	sq "github.com/Masterminds/squirrel"
)

type counterColumn struct {
	table  string
	column string
}

// Куда пишется каждый счётчик
var counterColumns = map[domain.Counter]counterColumn{
	domain.CounterPostLikes:    {table: "posts", column: "like_count"},
	domain.CounterPostComments: {table: "posts", column: "comment_count"},
	domain.CounterCommentLikes: {table: "comments", column: "like_count"},
}

func (r *PGRepo) adjustQuery(c domain.Counter, id int64, delta int64) (sq.UpdateBuilder, error) {
	cc, ok := counterColumns[c]
	if !ok {
		return sq.UpdateBuilder{}, fmt.Errorf("unknown counter %s: %w", c, domain.ErrUnexpected)
	}
	// арифметика на стороне БД: параллельные +1/-1 не теряются
	return r.qb().Update(r.table(cc.table)).
		Set(cc.column, sq.Expr(cc.column+" + ?", delta)).
		Where(sq.Eq{"id": id}), nil
}

func (r *PGRepo) AdjustCounter(ctx context.Context, c domain.Counter, id int64, delta int64) error {
	q, err := r.adjustQuery(c, id, delta)
	if err != nil {
		return err
	}
	sqlStr, args, _ := q.ToSql()
	r.logSQL("AdjustCounter", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return r.mapErr("AdjustCounter", start, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("AdjustCounter %s id=%d: %w", c, id, domain.ErrNotFound)
	}
	r.logDone("AdjustCounter", start, "counter", c.String(), "id", id, "delta", delta)
	return nil
}
