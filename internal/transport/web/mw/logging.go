package mw

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Logging — middleware: финиш запроса, статус, размер, длительность
func Logging(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := RequestIDFromCtx(r.Context())
			start := time.Now()

			mw := &metaWriter{ResponseWriter: w}

			next.ServeHTTP(mw, r)
			if mw.status == 0 {
				mw.status = http.StatusOK
			}

			ev := l.Info()
			if mw.status >= http.StatusInternalServerError {
				ev = l.Error()
			}
			ev.Str("req_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", mw.status).
				Int("size", mw.size).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Msg("request")
		})
	}
}
