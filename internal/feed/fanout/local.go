package fanout

import (
	"context"
	"errors"
	"sync"

	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/rs/zerolog"
)

var ErrQueueClosed = errors.New("fanout: queue closed")

type HandlerFunc func(ctx context.Context, payload []byte) error

type job struct {
	typ     string
	payload []byte
	attempt int
}

// LocalQueue держит очередь в памяти процесса для QUEUE_DRIVER=local и тестов.
// Неограниченный FIFO с сигнальным каналом, повторы без задержки.
type LocalQueue struct {
	mu       sync.Mutex
	jobs     []job
	closed   bool
	signal   chan struct{}
	handlers map[string]HandlerFunc
	maxRetry int
	pending  sync.WaitGroup
	workers  sync.WaitGroup
	logger   zerolog.Logger
}

func NewLocalQueue(maxRetry int, logger zerolog.Logger) *LocalQueue {
	return &LocalQueue{
		jobs:     make([]job, 0, 64),
		signal:   make(chan struct{}, 1),
		handlers: map[string]HandlerFunc{},
		maxRetry: maxRetry,
		logger:   logger,
	}
}

// Handle регистрирует обработчик до Start.
func (q *LocalQueue) Handle(typ string, h HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[typ] = h
}

// RegisterLocal делает то же, что Register, для локальной очереди.
func (s *Service) RegisterLocal(q *LocalQueue) {
	q.Handle(TypePost, s.HandlePost)
	q.Handle(TypeBatch, s.HandleBatch)
}

func (q *LocalQueue) Enqueue(_ context.Context, typ string, payload []byte) error {
	return q.push(job{typ: typ, payload: append([]byte(nil), payload...)})
}

func (q *LocalQueue) push(j job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.pending.Add(1)
	q.jobs = append(q.jobs, j)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

func (q *LocalQueue) pop() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return job{}, false
	}
	j := q.jobs[0]
	q.jobs[0] = job{}
	q.jobs = q.jobs[1:]
	// остались задачи: будим следующего
	if len(q.jobs) > 0 && !q.closed {
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}
	return j, true
}

// Start запускает n воркеров. Они работают до отмены ctx или Close.
func (q *LocalQueue) Start(ctx context.Context, n int) {
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		q.workers.Add(1)
		go q.loop(ctx)
	}
}

func (q *LocalQueue) loop(ctx context.Context) {
	defer q.workers.Done()
	for {
		if j, ok := q.pop(); ok {
			q.run(ctx, j)
			continue
		}
		select {
		case <-ctx.Done():
			return
		case _, ok := <-q.signal:
			if !ok {
				// закрыта: дорабатываем остаток
				for {
					j, ok := q.pop()
					if !ok {
						return
					}
					q.run(ctx, j)
				}
			}
		}
	}
}

func (q *LocalQueue) run(ctx context.Context, j job) {
	defer q.pending.Done()

	q.mu.Lock()
	h, ok := q.handlers[j.typ]
	q.mu.Unlock()
	if !ok {
		logx.Error(q.logger, "", "local.run", "no handler", nil, "type", j.typ)
		return
	}

	err := h(ctx, j.payload)
	if err == nil {
		return
	}
	if errors.Is(err, ErrBadPayload) || j.attempt >= q.maxRetry {
		logx.Error(q.logger, "", "local.run", "task dropped", err, "type", j.typ, "attempt", j.attempt)
		return
	}
	logx.Warn(q.logger, "", "local.run", "task failed, retrying", err, "type", j.typ, "attempt", j.attempt)
	j.attempt++
	if perr := q.push(j); perr != nil {
		logx.Error(q.logger, "", "local.run", "retry lost", perr, "type", j.typ)
	}
}

// Wait блокируется, пока не будут обработаны все поставленные задачи, включая повторы.
func (q *LocalQueue) Wait() { q.pending.Wait() }

// Close перестаёт принимать задачи и ждёт воркеров.
func (q *LocalQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.signal)
	q.mu.Unlock()
	q.workers.Wait()
}
