// Package friendship — подписки: follow/unfollow и списки с offset-пагинацией.
package friendship

import (
	"context"
	"net/http"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/feed/offset"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/EgorLis/my-feed/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-feed/internal/transport/web/v1"
	"github.com/rs/zerolog"
)

type Service interface {
	Follow(ctx context.Context, from, to domain.UserID) (domain.Follow, error)
	Unfollow(ctx context.Context, from, to domain.UserID) (int64, error)
	Followers(ctx context.Context, viewer, user domain.UserID, p offset.Params) (offset.Page[domain.FollowUser], error)
	Followings(ctx context.Context, viewer, user domain.UserID, p offset.Params) (offset.Page[domain.FollowUser], error)
}

type Handler struct {
	Log     zerolog.Logger
	Friends Service
	Sizes   offset.Sizes
}

type unfollowResponse struct {
	Deleted int64 `json:"deleted"`
}

func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	const op = "friendships.follow"
	reqID := mw.RequestIDFromCtx(r.Context())

	me, ok := domain.UserFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrForbidden)
		return
	}
	to, err := v1.PathID(r, "id")
	if err != nil {
		v1.WriteDomainError(w, r, err)
		return
	}

	f, err := h.Friends.Follow(r.Context(), me, to)
	if err != nil {
		logx.Warn(h.Log, reqID, op, "follow failed", err, "from", me, "to", to)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteCreated(w, r, f)
}

func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	const op = "friendships.unfollow"
	reqID := mw.RequestIDFromCtx(r.Context())

	me, ok := domain.UserFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrForbidden)
		return
	}
	to, err := v1.PathID(r, "id")
	if err != nil {
		v1.WriteDomainError(w, r, err)
		return
	}

	n, err := h.Friends.Unfollow(r.Context(), me, to)
	if err != nil {
		logx.Warn(h.Log, reqID, op, "unfollow failed", err, "from", me, "to", to)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOK(w, r, unfollowResponse{Deleted: n})
}

func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "friendships.followers", h.Friends.Followers)
}

func (h *Handler) Followings(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "friendships.followings", h.Friends.Followings)
}

type listFunc func(ctx context.Context, viewer, user domain.UserID, p offset.Params) (offset.Page[domain.FollowUser], error)

// списки доступны анонимно; has_followed считается только для вошедшего
func (h *Handler) list(w http.ResponseWriter, r *http.Request, op string, fetch listFunc) {
	reqID := mw.RequestIDFromCtx(r.Context())

	user, err := v1.PathID(r, "id")
	if err != nil {
		v1.WriteDomainError(w, r, err)
		return
	}
	prm, err := offset.ParseParams(r.URL.Query(), h.Sizes)
	if err != nil {
		v1.WriteDomainError(w, r, err)
		return
	}
	viewer, _ := domain.UserFromCtx(r.Context())

	page, err := fetch(r.Context(), viewer, user, prm)
	if err != nil {
		logx.Warn(h.Log, reqID, op, "list failed", err, "user_id", user, "page", prm.Page)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOK(w, r, page)
}
