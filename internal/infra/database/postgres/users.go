package postgres

import (
	"context"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	sq "github.com/Masterminds/squirrel"
)

func (r *PGRepo) CreateUser(ctx context.Context, username string) (domain.User, error) {
	q := r.qb().Insert(r.table("users")).
		Columns("username").
		Values(username).
		Suffix("RETURNING id, username, created_at")

	sqlStr, args, _ := q.ToSql()
	r.logSQL("CreateUser", sqlStr, args)

	start := time.Now()
	var u domain.User
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
		return domain.User{}, r.mapErr("CreateUser", start, err)
	}
	r.logDone("CreateUser", start, "id", u.ID)
	return u, nil
}

func (r *PGRepo) UserByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	q := r.qb().Select("id", "username", "created_at").
		From(r.table("users")).
		Where(sq.Eq{"id": id})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("UserByID", sqlStr, args)

	start := time.Now()
	var u domain.User
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
		return domain.User{}, r.mapErr("UserByID", start, err)
	}
	r.logDone("UserByID", start, "id", u.ID)
	return u, nil
}
