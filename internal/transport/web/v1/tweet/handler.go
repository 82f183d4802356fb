// Package tweet — HTTP-ручки постов: создание, деталка и список постов автора.
package tweet

import (
	"context"
	"fmt"
	"net/http"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/feed/cursor"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/EgorLis/my-feed/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-feed/internal/transport/web/v1"
	"github.com/rs/zerolog"
)

type Service interface {
	CreatePost(ctx context.Context, author domain.UserID, body string) (domain.Post, error)
	GetPost(ctx context.Context, id domain.PostID) (domain.Post, error)
	ListUserPosts(ctx context.Context, user domain.UserID, prm cursor.Params) (cursor.Page, error)
}

type Handler struct {
	Log   zerolog.Logger
	Posts Service
	Sizes cursor.Sizes
}

type createRequest struct {
	Content string `json:"content" validate:"required,min=6,max=140"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "tweets.create"
	reqID := mw.RequestIDFromCtx(r.Context())

	me, ok := domain.UserFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrForbidden)
		return
	}
	var req createRequest
	if err := v1.DecodeBody(r, &req); err != nil {
		logx.Warn(h.Log, reqID, op, "bad body", err, "user_id", me)
		v1.WriteDomainError(w, r, err)
		return
	}

	p, err := h.Posts.CreatePost(r.Context(), me, req.Content)
	if err != nil {
		logx.Error(h.Log, reqID, op, "create post failed", err, "user_id", me)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "created", "post_id", p.ID, "user_id", me)
	v1.WriteCreated(w, r, p)
}

func (h *Handler) GetOne(w http.ResponseWriter, r *http.Request) {
	const op = "tweets.get_one"
	reqID := mw.RequestIDFromCtx(r.Context())

	id, err := v1.PathID(r, "id")
	if err != nil {
		v1.WriteDomainError(w, r, err)
		return
	}
	p, err := h.Posts.GetPost(r.Context(), id)
	if err != nil {
		logx.Warn(h.Log, reqID, op, "get post failed", err, "post_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOK(w, r, p)
}

// List — посты одного автора, курсорная пагинация. user_id обязателен.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "tweets.list"
	reqID := mw.RequestIDFromCtx(r.Context())

	user, err := v1.QueryID(r, "user_id")
	if err != nil {
		logx.Warn(h.Log, reqID, op, "missing user_id", err)
		v1.WriteDomainError(w, r, fmt.Errorf("missing user_id: %w", domain.ErrBadParams))
		return
	}
	prm, err := cursor.ParseParams(r.URL.Query(), h.Sizes)
	if err != nil {
		logx.Warn(h.Log, reqID, op, "bad cursor", err, "query", r.URL.RawQuery)
		v1.WriteDomainError(w, r, err)
		return
	}

	page, err := h.Posts.ListUserPosts(r.Context(), user, prm)
	if err != nil {
		logx.Error(h.Log, reqID, op, "list failed", err, "user_id", user)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Debug(h.Log, reqID, op, "listed", "user_id", user, "count", len(page.Posts), "has_next", page.HasNextPage)
	v1.WriteOK(w, r, page)
}
