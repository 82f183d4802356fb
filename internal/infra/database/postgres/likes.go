package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// CreateLike вставляет лайк, если его ещё нет. created=false: лайк уже был, возвращается существующий.
func (r *PGRepo) CreateLike(ctx context.Context, userID domain.UserID, t domain.Target) (domain.Like, bool, error) {
	q := r.qb().Insert(r.table("likes")).
		Columns("user_id", "target_kind", "target_id").
		Values(userID, string(t.Kind), t.ID).
		Suffix("ON CONFLICT (user_id, target_kind, target_id) DO NOTHING RETURNING id, created_at")

	sqlStr, args, _ := q.ToSql()
	r.logSQL("CreateLike", sqlStr, args)

	start := time.Now()
	l := domain.Like{UserID: userID, Target: t}
	err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&l.ID, &l.CreatedAt)
	if err == nil {
		r.logDone("CreateLike", start, "id", l.ID, "created", true)
		return l, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Like{}, false, r.mapErr("CreateLike", start, err)
	}

	// конфликт: строка уже есть
	sel := r.qb().Select("id", "created_at").
		From(r.table("likes")).
		Where(sq.Eq{"user_id": userID, "target_kind": string(t.Kind), "target_id": t.ID})
	sqlStr, args, _ = sel.ToSql()
	r.logSQL("CreateLike.existing", sqlStr, args)
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&l.ID, &l.CreatedAt); err != nil {
		return domain.Like{}, false, r.mapErr("CreateLike.existing", start, err)
	}
	r.logDone("CreateLike", start, "id", l.ID, "created", false)
	return l, false, nil
}

func (r *PGRepo) DeleteLike(ctx context.Context, userID domain.UserID, t domain.Target) (int64, error) {
	q := r.qb().Delete(r.table("likes")).
		Where(sq.Eq{"user_id": userID, "target_kind": string(t.Kind), "target_id": t.ID})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("DeleteLike", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, r.mapErr("DeleteLike", start, err)
	}
	r.logDone("DeleteLike", start, "rows", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

func (r *PGRepo) deleteTargetLikesQuery(t domain.Target) sq.DeleteBuilder {
	return r.qb().Delete(r.table("likes")).
		Where(sq.Eq{"target_kind": string(t.Kind), "target_id": t.ID})
}

func (r *PGRepo) DeleteTargetLikes(ctx context.Context, t domain.Target) (int64, error) {
	sqlStr, args, _ := r.deleteTargetLikesQuery(t).ToSql()
	r.logSQL("DeleteTargetLikes", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, r.mapErr("DeleteTargetLikes", start, err)
	}
	r.logDone("DeleteTargetLikes", start, "kind", t.Kind, "target_id", t.ID, "rows", tag.RowsAffected())
	return tag.RowsAffected(), nil
}
