package comment

import (
	"context"
	"net/http"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/EgorLis/my-feed/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-feed/internal/transport/web/v1"
	"github.com/rs/zerolog"
)

type Service interface {
	CreateComment(ctx context.Context, author domain.UserID, post domain.PostID, body string) (domain.Comment, error)
	DeleteComment(ctx context.Context, user domain.UserID, id domain.CommentID) (int64, error)
}

type Handler struct {
	Log      zerolog.Logger
	Comments Service
}

type createRequest struct {
	TweetID int64  `json:"tweet_id" validate:"required,gt=0"`
	Content string `json:"content" validate:"required,max=140"`
}

type deleteResponse struct {
	Deleted int64 `json:"deleted"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "comments.create"
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

	c, err := h.Comments.CreateComment(r.Context(), me, req.TweetID, req.Content)
	if err != nil {
		logx.Warn(h.Log, reqID, op, "create comment failed", err, "user_id", me, "tweet_id", req.TweetID)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteCreated(w, r, c)
}

// Delete — удалить можно только свой комментарий.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "comments.delete"
	reqID := mw.RequestIDFromCtx(r.Context())

	me, ok := domain.UserFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrForbidden)
		return
	}
	id, err := v1.PathID(r, "id")
	if err != nil {
		v1.WriteDomainError(w, r, err)
		return
	}

	n, err := h.Comments.DeleteComment(r.Context(), me, id)
	if err != nil {
		logx.Warn(h.Log, reqID, op, "delete comment failed", err, "user_id", me, "comment_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOK(w, r, deleteResponse{Deleted: n})
}
