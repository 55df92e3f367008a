package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/signup-forms/internal/events"
)

// ErrQueueFull is returned by Enqueue when the buffer has no room left.
var ErrQueueFull = errors.New("notification queue full")

const sendTimeout = 30 * time.Second

// Handler processes one event off the queue.
type Handler func(context.Context, events.Event) error

// NotificationWorker sends notification emails off the request path. Events
// are buffered and drained by a fixed number of goroutines.
type NotificationWorker struct {
	handler Handler
	logger  *zap.Logger
	workers int
	queue   chan events.Event

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewNotificationWorker builds a worker with the given concurrency and buffer size.
func NewNotificationWorker(handler Handler, workers, queueSize int, logger *zap.Logger) *NotificationWorker {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		handler: handler,
		logger:  logger,
		workers: workers,
		queue:   make(chan events.Event, queueSize),
	}
}

// Register subscribes the worker to every event that triggers an email.
func (w *NotificationWorker) Register(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(w.Enqueue,
		events.EventSignupCreated,
		events.EventSignupResubmitted,
		events.EventSignupStatusChanged,
	)
}

// Enqueue buffers event without blocking the publisher.
func (w *NotificationWorker) Enqueue(_ context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrQueueFull
	}
	select {
	case w.queue <- event:
		return nil
	default:
		w.logger.Warn("dropping notification, queue full",
			zap.String("event_type", string(event.Type)),
			zap.String("signup_id", event.SignupID),
		)
		return ErrQueueFull
	}
}

// Start launches the worker goroutines. They exit once Stop has drained the queue.
func (w *NotificationWorker) Start() {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run()
	}
	w.logger.Info("notification worker started", zap.Int("workers", w.workers), zap.Int("queue_size", cap(w.queue)))
}

// Stop refuses new events, waits for queued ones to finish or ctx to expire.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *NotificationWorker) run() {
	defer w.wg.Done()
	for event := range w.queue {
		w.process(event)
	}
}

func (w *NotificationWorker) process(event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("notification handler panicked", zap.Any("panic", r), zap.String("event_id", event.ID))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := w.handler(ctx, event); err != nil {
		w.logger.Warn("notification failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.String("signup_id", event.SignupID),
			zap.Error(err),
		)
	}
}
