package like

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
	CreateLike(ctx context.Context, user domain.UserID, t domain.Target) (domain.Like, bool, error)
	DeleteLike(ctx context.Context, user domain.UserID, t domain.Target) (int64, error)
}

type Handler struct {
	Log   zerolog.Logger
	Likes Service
}

type targetRequest struct {
	ContentType string `json:"content_type" validate:"required"`
	ObjectID    int64  `json:"object_id" validate:"required,gt=0"`
}

type cancelResponse struct {
	Deleted int64 `json:"deleted"`
}

func (h *Handler) target(r *http.Request) (domain.UserID, domain.Target, error) {
	me, ok := domain.UserFromCtx(r.Context())
	if !ok {
		return 0, domain.Target{}, domain.ErrForbidden
	}
	var req targetRequest
	if err := v1.DecodeBody(r, &req); err != nil {
		return 0, domain.Target{}, err
	}
	kind, err := domain.ParseTargetKind(req.ContentType)
	if err != nil {
		return 0, domain.Target{}, err
	}
	return me, domain.Target{Kind: kind, ID: req.ObjectID}, nil
}

// Create — 201 для нового лайка, 200 если он уже был.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "likes.create"
	reqID := mw.RequestIDFromCtx(r.Context())

	me, t, err := h.target(r)
	if err != nil {
		logx.Warn(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	l, created, err := h.Likes.CreateLike(r.Context(), me, t)
	if err != nil {
		logx.Warn(h.Log, reqID, op, "like failed", err, "user_id", me, "kind", t.Kind, "object_id", t.ID)
		v1.WriteDomainError(w, r, err)
		return
	}
	if !created {
		v1.WriteOK(w, r, l)
		return
	}
	v1.WriteCreated(w, r, l)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	const op = "likes.cancel"
	reqID := mw.RequestIDFromCtx(r.Context())

	me, t, err := h.target(r)
	if err != nil {
		logx.Warn(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	n, err := h.Likes.DeleteLike(r.Context(), me, t)
	if err != nil {
		logx.Error(h.Log, reqID, op, "cancel failed", err, "user_id", me, "kind", t.Kind, "object_id", t.ID)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOK(w, r, cancelResponse{Deleted: n})
}
