package postgres

import (
	"context"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	sq "github.com/Masterminds/squirrel"
)

func (r *PGRepo) CreateComment(ctx context.Context, postID domain.PostID, authorID domain.UserID, body string) (domain.Comment, error) {
	q := r.qb().Insert(r.table("comments")).
		Columns("post_id", "author_id", "body").
		Values(postID, authorID, body).
		Suffix("RETURNING id, post_id, author_id, body, created_at, like_count")

	sqlStr, args, _ := q.ToSql()
	r.logSQL("CreateComment", sqlStr, args)

	start := time.Now()
	var c domain.Comment
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(
		&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.LikeCount,
	); err != nil {
		return domain.Comment{}, r.mapErr("CreateComment", start, err)
	}
	r.logDone("CreateComment", start, "id", c.ID, "post_id", c.PostID)
	return c, nil
}

func (r *PGRepo) CommentByID(ctx context.Context, id domain.CommentID) (domain.Comment, error) {
	q := r.qb().Select("id", "post_id", "author_id", "body", "created_at", "like_count").
		From(r.table("comments")).
		Where(sq.Eq{"id": id})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("CommentByID", sqlStr, args)

	start := time.Now()
	var c domain.Comment
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(
		&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.LikeCount,
	); err != nil {
		return domain.Comment{}, r.mapErr("CommentByID", start, err)
	}
	r.logDone("CommentByID", start, "id", c.ID)
	return c, nil
}

func (r *PGRepo) DeleteComment(ctx context.Context, id domain.CommentID) (int64, error) {
	q := r.qb().Delete(r.table("comments")).Where(sq.Eq{"id": id})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("DeleteComment", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, r.mapErr("DeleteComment", start, err)
	}
	r.logDone("DeleteComment", start, "rows", tag.RowsAffected())
	return tag.RowsAffected(), nil
}
