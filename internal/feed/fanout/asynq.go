package fanout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// AsynqQueue ставит задачи в очередь newsfeeds в redis.
type AsynqQueue struct {
	client   *asynq.Client
	maxRetry int
	timeout  time.Duration
	logger   zerolog.Logger
}

type AsynqOptions struct {
	MaxRetry int
	Timeout  time.Duration
}

func NewAsynqQueue(client *asynq.Client, opts AsynqOptions, logger zerolog.Logger) *AsynqQueue {
	return &AsynqQueue{client: client, maxRetry: opts.MaxRetry, timeout: opts.Timeout, logger: logger}
}

func (q *AsynqQueue) Enqueue(ctx context.Context, typ string, payload []byte) error {
	opts := []asynq.Option{asynq.Queue(QueueName), asynq.MaxRetry(q.maxRetry)}
	if q.timeout > 0 {
		opts = append(opts, asynq.Timeout(q.timeout))
	}
	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(typ, payload), opts...)
	if err != nil {
		logx.Error(q.logger, "", "asynq.Enqueue", "enqueue failed", err, "type", typ)
		return err
	}
	logx.Debug(q.logger, "", "asynq.Enqueue", "enqueued", "type", typ, "task_id", info.ID, "queue", info.Queue)
	return nil
}

// Register вешает обработчики задач на mux воркера.
func (s *Service) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypePost, func(ctx context.Context, t *asynq.Task) error {
		return skipBadPayload(s.HandlePost(ctx, t.Payload()))
	})
	mux.HandleFunc(TypeBatch, func(ctx context.Context, t *asynq.Task) error {
		return skipBadPayload(s.HandleBatch(ctx, t.Payload()))
	})
}

func skipBadPayload(err error) error {
	if errors.Is(err, ErrBadPayload) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}

// AsynqLogger пишет внутренние логи asynq через zerolog.
type AsynqLogger struct{ L zerolog.Logger }

var _ asynq.Logger = AsynqLogger{}

func (a AsynqLogger) Debug(args ...any) { a.L.Debug().Msg(fmt.Sprint(args...)) }
func (a AsynqLogger) Info(args ...any)  { a.L.Info().Msg(fmt.Sprint(args...)) }
func (a AsynqLogger) Warn(args ...any)  { a.L.Warn().Msg(fmt.Sprint(args...)) }
func (a AsynqLogger) Error(args ...any) { a.L.Error().Msg(fmt.Sprint(args...)) }
func (a AsynqLogger) Fatal(args ...any) { a.L.Fatal().Msg(fmt.Sprint(args...)) }
