package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/EgorLis/my-feed/internal/config"
	"github.com/EgorLis/my-feed/internal/feed/cursor"
	"github.com/EgorLis/my-feed/internal/feed/offset"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/comment"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/friendship"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/health"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/like"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/newsfeed"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/tweet"
	"github.com/rs/zerolog"
)

type Server struct {
	log    zerolog.Logger
	server *http.Server
	cfg    *config.Config
}

func New(logger zerolog.Logger, cfg *config.Config, db, cache health.Pinger, svc Services) *Server {
	feedSizes := cursor.Sizes{Default: cfg.FeedPageSize, Max: cfg.FeedMaxPageSize}
	friendSizes := offset.Sizes{Default: cfg.FriendshipPageSize, Max: cfg.FriendshipMaxPageSize}

	h := handlers{
		health:   &health.Handler{Log: logx.Component(logger, "health"), DB: db, Cache: cache},
		tweets:   &tweet.Handler{Log: logx.Component(logger, "tweets"), Posts: svc.Posts, Sizes: feedSizes},
		feeds:    &newsfeed.Handler{Log: logx.Component(logger, "newsfeeds"), Feeds: svc.Feeds, Sizes: feedSizes},
		friends:  &friendship.Handler{Log: logx.Component(logger, "friendships"), Friends: svc.Friends, Sizes: friendSizes},
		likes:    &like.Handler{Log: logx.Component(logger, "likes"), Likes: svc.Likes},
		comments: &comment.Handler{Log: logx.Component(logger, "comments"), Comments: svc.Comments},
	}

	srv := &http.Server{
		Addr:              cfg.AppPort,
		Handler:           newRouter(h, logger),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{server: srv, cfg: cfg, log: logger}
}

// Handler — корневой обработчик со всеми middleware (для httptest).
func (ws *Server) Handler() http.Handler { return ws.server.Handler }

// Run блокирует до Close. http.ErrServerClosed не считается ошибкой.
func (ws *Server) Run() error {
	logx.Info(ws.log, "", "server.Run", "started", "addr", ws.server.Addr)
	if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Error(ws.log, "", "server.Run", "listen failed", err, "addr", ws.server.Addr)
		return err
	}
	return nil
}

func (ws *Server) Close(ctx context.Context) {
	if err := ws.server.Shutdown(ctx); err != nil {
		logx.Warn(ws.log, "", "server.Close", "forced to shutdown", err)
	}
	logx.Info(ws.log, "", "server.Close", "exited gracefully")
}
