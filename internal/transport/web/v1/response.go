package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/transport/web/mw"
)

// MapDomainError решает HTTP-статус + error.code/text для конверта
func MapDomainError(err error) (httpStatus int, env APIEnvelope) {
	switch {
	case errors.Is(err, domain.ErrBadParams):
		return http.StatusBadRequest, Fail(domain.ErrCodeBadParams, "bad params")
	case errors.Is(err, domain.ErrConflict):
		// повторная подписка и т.п.: ошибка ввода клиента
		return http.StatusBadRequest, Fail(domain.ErrCodeConflict, "conflict")
	case errors.Is(err, domain.ErrUnauth):
		return http.StatusUnauthorized, Fail(domain.ErrCodeUnauth, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, Fail(domain.ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, Fail(domain.ErrCodeMethodNotAllowed, "method not allowed")
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, Fail(domain.ErrCodeNotFound, "not found")
	default:
		// Таймауты/отмены: как 500
		return http.StatusInternalServerError, Fail(domain.ErrCodeUnexpected, "unexpected")
	}
}

// WriteJSON пишет тело как есть; для HEAD — без тела
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", mw.RequestIDFromCtx(r.Context()))
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func WriteEnvelope(w http.ResponseWriter, r *http.Request, status int, env APIEnvelope) {
	WriteJSON(w, r, status, env)
}

// Шорткаты успеха
func WriteOK(w http.ResponseWriter, r *http.Request, body any) {
	WriteJSON(w, r, http.StatusOK, body)
}
func WriteCreated(w http.ResponseWriter, r *http.Request, body any) {
	WriteJSON(w, r, http.StatusCreated, body)
}
func WriteOKData(w http.ResponseWriter, r *http.Request, data any) {
	WriteEnvelope(w, r, http.StatusOK, OkData(data))
}

// Шорткаты ошибок
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, env := MapDomainError(err)
	WriteEnvelope(w, r, status, env)
}
