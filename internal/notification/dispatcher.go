package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lender-ledger/internal/infrastructure/monitoring"
	"lender-ledger/internal/pkg/apperrors"
)

var ErrDispatcherClosed = errors.New("dispatcher is closed")

// Task is one side effect. Key identifies the delivery for the guard; two
// tasks with the same key run at most once between them.
type Task struct {
	Kind string
	Key  string
	Run  func(ctx context.Context) error
}

type DispatcherConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type Dispatcher struct {
	cfg    DispatcherConfig
	guard  Guard
	logger *slog.Logger

	tasks chan Task
	wg    sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
}

func NewDispatcher(cfg DispatcherConfig, guard Guard, logger *slog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if guard == nil {
		guard = NewMemoryGuard(24 * time.Hour)
	}
	return &Dispatcher{
		cfg:    cfg,
		guard:  guard,
		logger: logger.With("component", "Dispatcher"),
		tasks:  make(chan Task, cfg.QueueSize),
	}
}

// Start launches the worker goroutines. Workers keep draining the queue
// until Shutdown closes it; ctx only seeds the per-task contexts.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	base := context.WithoutCancel(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(base, i)
	}
	d.logger.Info("Dispatcher started", slog.Int("workers", d.cfg.Workers), slog.Int("queueSize", d.cfg.QueueSize))
}

// Submit enqueues the task without blocking. It reports false when the task
// was dropped because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Submit(task Task) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Warn("Dropping side effect, dispatcher closed", slog.String("kind", task.Kind), slog.String("key", task.Key))
		monitoring.RecordSideEffectDropped()
		return false
	}

	select {
	case d.tasks <- task:
		return true
	default:
		d.logger.Warn("Dropping side effect, queue full", slog.String("kind", task.Kind), slog.String("key", task.Key))
		monitoring.RecordSideEffectDropped()
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or for
// ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Dispatcher drained")
		return nil
	case <-ctx.Done():
		d.logger.Warn("Dispatcher shutdown timed out", slog.Int("pending", len(d.tasks)))
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for task := range d.tasks {
		d.execute(ctx, id, task)
	}
}

func (d *Dispatcher) execute(ctx context.Context, workerID int, task Task) {
	log := d.logger.With(slog.Int("worker", workerID), slog.String("kind", task.Kind), slog.String("key", task.Key))

	taskCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	if task.Key != "" {
		claimed, err := d.guard.Claim(taskCtx, task.Key)
		if err != nil {
			log.ErrorContext(taskCtx, "Delivery guard unavailable, skipping side effect", slog.Any("error", apperrors.NewDependencyError("guard", err)))
			monitoring.RecordSideEffect(task.Kind, "error")
			return
		}
		if !claimed {
			log.DebugContext(taskCtx, "Side effect already delivered")
			monitoring.RecordSideEffect(task.Kind, "duplicate")
			return
		}
	}

	if err := d.run(taskCtx, task); err != nil {
		log.WarnContext(taskCtx, "Side effect failed", slog.Any("error", apperrors.NewDependencyError(task.Kind, err)))
		monitoring.RecordSideEffect(task.Kind, "error")
		return
	}
	log.DebugContext(taskCtx, "Side effect delivered")
	monitoring.RecordSideEffect(task.Kind, "ok")
}

func (d *Dispatcher) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task.Run(ctx)
}
