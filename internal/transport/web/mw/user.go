package mw

import (
	"net/http"
	"strconv"

	"github.com/EgorLis/my-feed/internal/domain"
)

// HeaderUserID — id пользователя, проставленный шлюзом после аутентификации.
const HeaderUserID = "X-User-ID"

// OptionalUser кладёт пользователя в контекст, если заголовок валиден.
func OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := userFromHeader(r); ok {
			r = r.WithContext(domain.WithUser(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser — без пользователя 403, как у анонимного клиента.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := userFromHeader(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":1003,"text":"forbidden"}}` + "\n"))
			return
		}
		next.ServeHTTP(w, r.WithContext(domain.WithUser(r.Context(), id)))
	})
}

func userFromHeader(r *http.Request) (domain.UserID, bool) {
	raw := r.Header.Get(HeaderUserID)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
