package postgres

import (
	"context"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var postColumns = []string{"id", "author_id", "body", "created_at", "like_count", "comment_count"}

func scanPost(row pgx.Row) (domain.Post, error) {
	var p domain.Post
	err := row.Scan(&p.ID, &p.AuthorID, &p.Body, &p.CreatedAt, &p.LikeCount, &p.CommentCount)
	return p, err
}

func (r *PGRepo) CreatePost(ctx context.Context, authorID domain.UserID, body string) (domain.Post, error) {
	q := r.qb().Insert(r.table("posts")).
		Columns("author_id", "body").
		Values(authorID, body).
		Suffix("RETURNING id, author_id, body, created_at, like_count, comment_count")

	sqlStr, args, _ := q.ToSql()
	r.logSQL("CreatePost", sqlStr, args)

	start := time.Now()
	p, err := scanPost(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return domain.Post{}, r.mapErr("CreatePost", start, err)
	}
	r.logDone("CreatePost", start, "id", p.ID, "author_id", p.AuthorID)
	return p, nil
}

func (r *PGRepo) PostByID(ctx context.Context, id domain.PostID) (domain.Post, error) {
	q := r.qb().Select(postColumns...).
		From(r.table("posts")).
		Where(sq.Eq{"id": id})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("PostByID", sqlStr, args)

	start := time.Now()
	p, err := scanPost(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return domain.Post{}, r.mapErr("PostByID", start, err)
	}
	r.logDone("PostByID", start, "id", p.ID)
	return p, nil
}

func (r *PGRepo) PostsByIDs(ctx context.Context, ids []domain.PostID) ([]domain.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := r.qb().Select(postColumns...).
		From(r.table("posts")).
		Where(sq.Expr("id = ANY(?)", ids))

	return r.queryPosts(ctx, "PostsByIDs", q)
}

func (r *PGRepo) listPostsQuery(pr domain.PostRange) sq.SelectBuilder {
	sb := r.qb().Select(postColumns...).
		From(r.table("posts")).
		Where(sq.Expr("author_id = ANY(?)", pr.AuthorIDs))

	if !pr.After.IsZero() {
		sb = sb.Where(sq.Gt{"created_at": pr.After})
	}
	if !pr.Before.IsZero() {
		sb = sb.Where(sq.Lt{"created_at": pr.Before})
	}
	sb = sb.OrderBy("created_at DESC", "id DESC")
	if pr.Limit > 0 {
		sb = sb.Limit(uint64(pr.Limit))
	}
	return sb
}

// ListPosts делает выборку по авторам newest-first. Пустой список авторов даёт пустой результат.
func (r *PGRepo) ListPosts(ctx context.Context, pr domain.PostRange) ([]domain.Post, error) {
	if len(pr.AuthorIDs) == 0 {
		return nil, nil
	}
	return r.queryPosts(ctx, "ListPosts", r.listPostsQuery(pr))
}

func (r *PGRepo) queryPosts(ctx context.Context, op string, q sq.SelectBuilder) ([]domain.Post, error) {
	sqlStr, args, _ := q.ToSql()
	r.logSQL(op, sqlStr, args)

	start := time.Now()
	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, r.mapErr(op, start, err)
	}
	defer rows.Close()

	var res []domain.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, r.mapErr(op, start, err)
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapErr(op, start, err)
	}
	r.logDone(op, start, "count", len(res))
	return res, nil
}
