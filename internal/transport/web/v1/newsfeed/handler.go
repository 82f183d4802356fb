package newsfeed

import (
	"context"
	"net/http"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/feed/cursor"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/EgorLis/my-feed/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-feed/internal/transport/web/v1"
	"github.com/rs/zerolog"
)

type Service interface {
	ListFeed(ctx context.Context, user domain.UserID, prm cursor.Params) (cursor.Page, error)
}

type Handler struct {
	Log   zerolog.Logger
	Feeds Service
	Sizes cursor.Sizes
}

// List — домашняя лента текущего пользователя.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "newsfeeds.list"
	reqID := mw.RequestIDFromCtx(r.Context())

	me, ok := domain.UserFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrForbidden)
		return
	}
	prm, err := cursor.ParseParams(r.URL.Query(), h.Sizes)
	if err != nil {
		logx.Warn(h.Log, reqID, op, "bad cursor", err, "query", r.URL.RawQuery)
		v1.WriteDomainError(w, r, err)
		return
	}

	page, err := h.Feeds.ListFeed(r.Context(), me, prm)
	if err != nil {
		logx.Error(h.Log, reqID, op, "list failed", err, "user_id", me)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Debug(h.Log, reqID, op, "listed", "user_id", me, "count", len(page.Posts), "has_next", page.HasNextPage)
	v1.WriteOK(w, r, page)
}
