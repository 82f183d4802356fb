// Package app собирает процесс из конфигурации: клиенты, сервисы, сервер и воркер очереди.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/EgorLis/my-feed/internal/config"
	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/feed"
	"github.com/EgorLis/my-feed/internal/feed/fanout"
	"github.com/EgorLis/my-feed/internal/feed/postcache"
	"github.com/EgorLis/my-feed/internal/infra/cache/memory"
	redisx "github.com/EgorLis/my-feed/internal/infra/cache/redis"
	"github.com/EgorLis/my-feed/internal/infra/database/postgres"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/EgorLis/my-feed/internal/transport/web"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

type App struct {
	config *config.Config
	log    zerolog.Logger
	repo   *postgres.PGRepo
	cache  domain.Cache
	server *web.Server // nil для роли worker

	// очередь fanout: либо asynq (client + server), либо локальная
	asynqClient *asynq.Client
	asynqServer *asynq.Server
	asynqMux    *asynq.ServeMux
	local       *fanout.LocalQueue
}

func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	base := logx.New(os.Stdout, cfg.LogLevel)

	serverLog := logx.Component(base, "server")
	pgLog := logx.Component(base, "postgres")
	cacheLog := logx.Component(base, "cache")
	queueLog := logx.Component(base, "queue")
	feedLog := logx.Component(base, "feed")

	logx.Info(base, "", "app.Build", "configuration"+cfg.String())

	a := &App{config: cfg, log: base}
	ok := false
	defer func() {
		// частично собранное приложение закрываем сразу
		if !ok {
			a.close()
		}
	}()

	logx.Info(base, "", "app.Build", "init PostgreSQL")
	pgRepo, err := postgres.NewPGRepo(ctx, pgLog, postgres.Options{
		DSN:      cfg.GetDSN(),
		Schema:   cfg.DBScheme,
		MaxConns: cfg.DBMaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed init postgres: %w", err)
	}
	a.repo = pgRepo

	logx.Info(base, "", "app.Build", "init cache", "driver", cfg.CacheDriver)
	switch cfg.CacheDriver {
	case config.CacheDriverMemory:
		a.cache = memory.New(cacheLog)
	default:
		rc := redisx.New(redisx.Config{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPassword,
		}, cacheLog)
		a.cache = rc
		if err := rc.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed init redis: %w", err)
		}
	}

	lists := postcache.New(a.cache, postcache.Options{Limit: cfg.FeedListLimit, TTL: cfg.FeedCacheTTL}, feedLog)

	logx.Info(base, "", "app.Build", "init queue", "driver", cfg.QueueDriver)
	var queue fanout.Queue
	switch cfg.QueueDriver {
	case config.QueueDriverLocal:
		a.local = fanout.NewLocalQueue(cfg.FanoutMaxRetry, queueLog)
		queue = a.local
	default:
		opt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisQueueDB, Password: cfg.RedisPassword}
		a.asynqClient = asynq.NewClient(opt)
		queue = fanout.NewAsynqQueue(a.asynqClient, fanout.AsynqOptions{
			MaxRetry: cfg.FanoutMaxRetry,
			Timeout:  cfg.FanoutTimeout,
		}, queueLog)
		if cfg.AppRole != config.RoleAPI {
			a.asynqServer = asynq.NewServer(opt, asynq.Config{
				Concurrency: cfg.FanoutWorkers,
				Queues:      map[string]int{fanout.QueueName: 1},
				Logger:      fanout.AsynqLogger{L: queueLog},
			})
		}
	}

	fo := fanout.New(queue, pgRepo, lists, fanout.Options{
		BatchSize:   cfg.FanoutBatchSize,
		Concurrency: cfg.FanoutConcurrency,
	}, logx.Component(base, "fanout"))
	if a.local != nil {
		fo.RegisterLocal(a.local)
	}
	if a.asynqServer != nil {
		a.asynqMux = asynq.NewServeMux()
		fo.Register(a.asynqMux)
	}

	if cfg.AppRole != config.RoleWorker {
		logx.Info(base, "", "app.Build", "init Server")
		repos := feed.Repos{
			Users: pgRepo, Posts: pgRepo, Friendships: pgRepo,
			Likes: pgRepo, Comments: pgRepo, Counters: pgRepo,
		}
		svc := feed.NewService(repos, a.cache, lists, fo, feed.Options{TTL: cfg.FeedCacheTTL}, feedLog)
		friends := feed.NewFriendshipService(pgRepo, pgRepo, a.cache, feedLog)
		a.server = web.New(serverLog, cfg, pgRepo, a.cache, web.Services{
			Posts: svc, Feeds: svc, Friends: friends, Likes: svc, Comments: svc,
		})
	}

	logx.Info(base, "", "app.Build", "build ended", "role", cfg.AppRole)
	ok = true
	return a, nil
}

// Run работает до отмены ctx или падения сервера, потом гасит всё в обратном порядке.
func (a *App) Run(ctx context.Context) error {
	logx.Info(a.log, "", "app.Run", "start application...")

	if a.local != nil {
		a.local.Start(ctx, a.config.FanoutWorkers)
	}
	if a.asynqServer != nil {
		if err := a.asynqServer.Start(a.asynqMux); err != nil {
			a.close()
			return fmt.Errorf("start asynq server: %w", err)
		}
	}

	srvErr := make(chan error, 1)
	if a.server != nil {
		go func() { srvErr <- a.server.Run() }()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-srvErr:
	}
	logx.Info(a.log, "", "app.Run", "stop application...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.server != nil {
		a.server.Close(stopCtx)
	}
	a.close()

	return runErr
}

// close освобождает ресурсы: сначала потребители очереди, потом клиенты.
func (a *App) close() {
	if a.asynqServer != nil {
		a.asynqServer.Shutdown()
	}
	if a.local != nil {
		a.local.Close()
	}
	if a.asynqClient != nil {
		if err := a.asynqClient.Close(); err != nil {
			logx.Warn(a.log, "", "app.close", "asynq client close failed", err)
		}
	}
	if a.cache != nil {
		a.cache.Close()
	}
	if a.repo != nil {
		a.repo.Close()
	}
}
