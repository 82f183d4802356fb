package web

import (
	"net/http"

	"github.com/EgorLis/my-feed/internal/transport/web/mw"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/comment"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/friendship"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/health"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/like"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/newsfeed"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/tweet"
	"github.com/rs/zerolog"
)

type handlers struct {
	health   *health.Handler
	tweets   *tweet.Handler
	feeds    *newsfeed.Handler
	friends  *friendship.Handler
	likes    *like.Handler
	comments *comment.Handler
}

const maxBody = 64 << 10

func newRouter(h handlers, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /v1/healthz", h.health.Liveness)
	mux.HandleFunc("GET /v1/readyz", h.health.Readiness)

	// tweets: чтение без пользователя
	mux.HandleFunc("GET /api/tweets", h.tweets.List)
	mux.HandleFunc("GET /api/tweets/{id}", h.tweets.GetOne)
	mux.Handle("POST /api/tweets", user(limitBody(maxBody, h.tweets.Create)))

	// newsfeeds
	mux.Handle("GET /api/newsfeeds", user(h.feeds.List))

	// friendships
	mux.Handle("POST /api/friendships/{id}/follow", user(h.friends.Follow))
	mux.Handle("POST /api/friendships/{id}/unfollow", user(h.friends.Unfollow))
	mux.HandleFunc("GET /api/friendships/{id}/followers", h.friends.Followers)
	mux.HandleFunc("GET /api/friendships/{id}/followings", h.friends.Followings)

	// likes
	mux.Handle("POST /api/likes", user(limitBody(maxBody, h.likes.Create)))
	mux.Handle("POST /api/likes/cancel", user(limitBody(maxBody, h.likes.Cancel)))

	// comments
	mux.Handle("POST /api/comments", user(limitBody(maxBody, h.comments.Create)))
	mux.Handle("DELETE /api/comments/{id}", user(h.comments.Delete))

	// 🔗 middleware
	return mw.WithRequestID(mw.Logging(logger)(mw.OptionalUser(mux)))
}

func user(h http.HandlerFunc) http.Handler { return mw.RequireUser(h) }

func limitBody(n int64, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, n)
		h(w, r)
	}
}
