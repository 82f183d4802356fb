// Package cursor — курсорная пагинация по created_at поверх кеша и БД.
//
// Голова выборки берётся из кеша, если он целиком покрывает запрошенную страницу,
// иначе страница читается из БД с запасом в один элемент для has_next_page.
package cursor

import (
	"context"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/rs/zerolog"
)

// Source — одна лента: свои посты пользователя или домашняя.
type Source interface {
	// Head: newest-first префикс из кеша. len < limit означает полный набор.
	Head(ctx context.Context) ([]domain.CacheEntry, error)
	// Query читает из БД. Authors заполняет сам Source.
	Query(ctx context.Context, r domain.PostRange) ([]domain.Post, error)
}

type Page struct {
	Posts       []domain.Post `json:"results"`
	HasNextPage bool          `json:"has_next_page"`
}

type Paginator struct {
	posts  domain.PostsRepo
	limit  int
	logger zerolog.Logger
}

// limit — ёмкость списков в кеше (L).
func New(posts domain.PostsRepo, limit int, logger zerolog.Logger) *Paginator {
	return &Paginator{posts: posts, limit: limit, logger: logger}
}

func (p *Paginator) Page(ctx context.Context, src Source, prm Params) (Page, error) {
	head, err := src.Head(ctx)
	cacheOK := err == nil
	if err != nil {
		logx.Warn(p.logger, "", "cursor.Page", "cache read failed, using store", err)
		head = nil
	}
	complete := cacheOK && len(head) < p.limit

	if prm.IsAfter() {
		return p.after(ctx, src, prm, head, cacheOK, complete)
	}
	return p.before(ctx, src, prm, head, cacheOK, complete)
}

// after — всё строго новее курсора, без ограничения размера.
func (p *Paginator) after(ctx context.Context, src Source, prm Params, head []domain.CacheEntry, cacheOK, complete bool) (Page, error) {
	covers := complete || (len(head) > 0 && !head[len(head)-1].CreatedAt.After(prm.After))
	if cacheOK && covers {
		var fresh []domain.PostID
		for _, e := range head {
			if !e.CreatedAt.After(prm.After) {
				break
			}
			fresh = append(fresh, e.PostID)
		}
		posts, err := p.hydrate(ctx, fresh)
		if err != nil {
			return Page{}, err
		}
		logx.Debug(p.logger, "", "cursor.Page", "served from cache", "mode", "after", "count", len(posts))
		return Page{Posts: posts}, nil
	}

	posts, err := src.Query(ctx, domain.PostRange{After: prm.After})
	if err != nil {
		return Page{}, err
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	logx.Debug(p.logger, "", "cursor.Page", "served from store", "mode", "after", "count", len(posts))
	return Page{Posts: posts}, nil
}

// before — до Size элементов строго старше курсора (или с головы, если курсора нет).
func (p *Paginator) before(ctx context.Context, src Source, prm Params, head []domain.CacheEntry, cacheOK, complete bool) (Page, error) {
	var older []domain.CacheEntry
	for _, e := range head {
		if prm.Before.IsZero() || e.CreatedAt.Before(prm.Before) {
			older = append(older, e)
		}
	}

	switch {
	case cacheOK && len(older) > prm.Size:
		// следующий элемент тоже в кеше
		posts, err := p.hydrate(ctx, ids(older[:prm.Size]))
		if err != nil {
			return Page{}, err
		}
		logx.Debug(p.logger, "", "cursor.Page", "served from cache", "mode", "before", "count", len(posts))
		return Page{Posts: posts, HasNextPage: true}, nil
	case complete:
		posts, err := p.hydrate(ctx, ids(older))
		if err != nil {
			return Page{}, err
		}
		logx.Debug(p.logger, "", "cursor.Page", "served from complete cache", "mode", "before", "count", len(posts))
		return Page{Posts: posts}, nil
	}

	posts, err := src.Query(ctx, domain.PostRange{Before: prm.Before, Limit: prm.Size + 1})
	if err != nil {
		return Page{}, err
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	page := Page{Posts: posts}
	if len(posts) > prm.Size {
		page.Posts = posts[:prm.Size]
		page.HasNextPage = true
	}
	logx.Debug(p.logger, "", "cursor.Page", "served from store", "mode", "before", "count", len(page.Posts))
	return page, nil
}

// hydrate достаёт посты по id и возвращает их в порядке ids. Удалённые пропускаются.
func (p *Paginator) hydrate(ctx context.Context, ids []domain.PostID) ([]domain.Post, error) {
	if len(ids) == 0 {
		return []domain.Post{}, nil
	}
	start := time.Now()
	found, err := p.posts.PostsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[domain.PostID]domain.Post, len(found))
	for _, post := range found {
		byID[post.ID] = post
	}
	out := make([]domain.Post, 0, len(ids))
	for _, id := range ids {
		if post, ok := byID[id]; ok {
			out = append(out, post)
		}
	}
	if len(out) < len(ids) {
		logx.Debug(p.logger, "", "cursor.hydrate", "missing posts skipped", "want", len(ids), "got", len(out), "took", time.Since(start))
	}
	return out, nil
}

func ids(es []domain.CacheEntry) []domain.PostID {
	out := make([]domain.PostID, 0, len(es))
	for _, e := range es {
		out = append(out, e.PostID)
	}
	return out
}
