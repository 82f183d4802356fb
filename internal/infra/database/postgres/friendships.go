package postgres

import (
	"context"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	sq "github.com/Masterminds/squirrel"
)

func (r *PGRepo) CreateFollow(ctx context.Context, followerID, followeeID domain.UserID) (domain.Follow, error) {
	q := r.qb().Insert(r.table("follows")).
		Columns("follower_id", "followee_id").
		Values(followerID, followeeID).
		Suffix("RETURNING follower_id, followee_id, created_at")

	sqlStr, args, _ := q.ToSql()
	r.logSQL("CreateFollow", sqlStr, args)

	start := time.Now()
	var f domain.Follow
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&f.FollowerID, &f.FolloweeID, &f.CreatedAt); err != nil {
		// повтор: нарушение первичного ключа, его mapErr превращает в ErrConflict
		return domain.Follow{}, r.mapErr("CreateFollow", start, err)
	}
	r.logDone("CreateFollow", start, "from", followerID, "to", followeeID)
	return f, nil
}

func (r *PGRepo) DeleteFollow(ctx context.Context, followerID, followeeID domain.UserID) (int64, error) {
	q := r.qb().Delete(r.table("follows")).
		Where(sq.Eq{"follower_id": followerID, "followee_id": followeeID})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("DeleteFollow", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, r.mapErr("DeleteFollow", start, err)
	}
	r.logDone("DeleteFollow", start, "rows", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

func (r *PGRepo) FollowerIDs(ctx context.Context, userID domain.UserID) ([]domain.UserID, error) {
	q := r.qb().Select("follower_id").
		From(r.table("follows")).
		Where(sq.Eq{"followee_id": userID}).
		OrderBy("follower_id")
	return r.queryIDs(ctx, "FollowerIDs", q)
}

func (r *PGRepo) FolloweeIDs(ctx context.Context, userID domain.UserID) ([]domain.UserID, error) {
	q := r.qb().Select("followee_id").
		From(r.table("follows")).
		Where(sq.Eq{"follower_id": userID}).
		OrderBy("followee_id")
	return r.queryIDs(ctx, "FolloweeIDs", q)
}

// followQuery строит список связанных пользователей newest-first по времени подписки.
// own это колонка с userID, other это колонка, по которой джойнятся users.
func (r *PGRepo) followQuery(own, other string, userID domain.UserID, limit, offset int) sq.SelectBuilder {
	return r.qb().Select("u.id", "u.username", "u.created_at", "f.created_at").
		From(r.table("follows") + " f").
		Join(r.table("users") + " u ON u.id = f." + other).
		Where(sq.Eq{"f." + own: userID}).
		OrderBy("f.created_at DESC", "f."+other+" DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
}

func (r *PGRepo) Followers(ctx context.Context, userID domain.UserID, limit, offset int) ([]domain.FollowUser, error) {
	return r.queryFollowUsers(ctx, "Followers", r.followQuery("followee_id", "follower_id", userID, limit, offset))
}

func (r *PGRepo) Followings(ctx context.Context, userID domain.UserID, limit, offset int) ([]domain.FollowUser, error) {
	return r.queryFollowUsers(ctx, "Followings", r.followQuery("follower_id", "followee_id", userID, limit, offset))
}

func (r *PGRepo) CountFollowers(ctx context.Context, userID domain.UserID) (int, error) {
	return r.countFollows(ctx, "CountFollowers", sq.Eq{"followee_id": userID})
}

func (r *PGRepo) CountFollowings(ctx context.Context, userID domain.UserID) (int, error) {
	return r.countFollows(ctx, "CountFollowings", sq.Eq{"follower_id": userID})
}

func (r *PGRepo) FollowedAmong(ctx context.Context, viewer domain.UserID, ids []domain.UserID) (map[domain.UserID]bool, error) {
	out := make(map[domain.UserID]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := r.qb().Select("followee_id").
		From(r.table("follows")).
		Where(sq.Eq{"follower_id": viewer}).
		Where(sq.Expr("followee_id = ANY(?)", ids))

	got, err := r.queryIDs(ctx, "FollowedAmong", q)
	if err != nil {
		return nil, err
	}
	for _, id := range got {
		out[id] = true
	}
	return out, nil
}

func (r *PGRepo) countFollows(ctx context.Context, op string, where sq.Eq) (int, error) {
	q := r.qb().Select("count(*)").From(r.table("follows")).Where(where)

	sqlStr, args, _ := q.ToSql()
	r.logSQL(op, sqlStr, args)

	start := time.Now()
	var n int
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, r.mapErr(op, start, err)
	}
	r.logDone(op, start, "count", n)
	return n, nil
}

func (r *PGRepo) queryIDs(ctx context.Context, op string, q sq.SelectBuilder) ([]int64, error) {
	sqlStr, args, _ := q.ToSql()
	r.logSQL(op, sqlStr, args)

	start := time.Now()
	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, r.mapErr(op, start, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, r.mapErr(op, start, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapErr(op, start, err)
	}
	r.logDone(op, start, "count", len(out))
	return out, nil
}

func (r *PGRepo) queryFollowUsers(ctx context.Context, op string, q sq.SelectBuilder) ([]domain.FollowUser, error) {
	sqlStr, args, _ := q.ToSql()
	r.logSQL(op, sqlStr, args)

	start := time.Now()
	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, r.mapErr(op, start, err)
	}
	defer rows.Close()

	var out []domain.FollowUser
	for rows.Next() {
		var fu domain.FollowUser
		if err := rows.Scan(&fu.User.ID, &fu.User.Username, &fu.User.CreatedAt, &fu.CreatedAt); err != nil {
			return nil, r.mapErr(op, start, err)
		}
		out = append(out, fu)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapErr(op, start, err)
	}
	r.logDone(op, start, "count", len(out))
	return out, nil
}
