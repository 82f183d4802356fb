package health

import (
	"context"
	"net/http"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/EgorLis/my-feed/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-feed/internal/transport/web/v1"
	"github.com/rs/zerolog"
)

type Pinger interface {
	Ping(context.Context) error
}

type Handler struct {
	Log   zerolog.Logger
	DB    Pinger
	Cache Pinger
}

// Liveness — жив ли процесс, без внешних зависимостей.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	v1.WriteOKData(w, r, "ok")
}

// Readiness пингует БД и кеш.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	const op = "health.readiness"
	reqID := mw.RequestIDFromCtx(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		logx.Error(h.Log, reqID, op, "db ping failed", err)
		v1.WriteDomainError(w, r, domain.ErrUnexpected)
		return
	}

	if err := h.Cache.Ping(ctx); err != nil {
		logx.Error(h.Log, reqID, op, "cache ping failed", err)
		v1.WriteDomainError(w, r, domain.ErrUnexpected)
		return
	}

	logx.Debug(h.Log, reqID, op, "ready")
	v1.WriteOKData(w, r, "ready")
}
