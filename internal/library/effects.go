package library

import (
	"context"
	"sync"
)

// effectTask is one unit of deferred best-effort work: a shadow write, an
// index dispatch, or a shadow/index delete.
type effectTask struct {
	name string
	run  func(ctx context.Context) error
}

// EffectsQueue runs side effects on a single background goroutine. Each task
// fails independently: an error is logged with the task name and the queue
// moves on. Enqueueing never blocks the caller; when the queue is full the
// task is dropped with a warning, which is acceptable for effects whose
// consistency contract is already best-effort.
type EffectsQueue struct {
	tasks  chan effectTask
	done   chan struct{}
	logger Logger

	mu     sync.Mutex // guards closed and sends on tasks
	closed bool
}

const effectsQueueDepth = 256

// NewEffectsQueue starts the background worker.
func NewEffectsQueue(logger Logger) *EffectsQueue {
	q := &EffectsQueue{
		tasks:  make(chan effectTask, effectsQueueDepth),
		done:   make(chan struct{}),
		logger: logger,
	}
	go q.loop()
	return q
}

func (q *EffectsQueue) loop() {
	defer close(q.done)
	for t := range q.tasks {
		if err := t.run(context.Background()); err != nil {
			q.logger.Warn("background effect failed", "task", t.name, "error", err)
		}
	}
}

// Enqueue submits a task without blocking. Tasks submitted after Close are
// dropped with a warning.
func (q *EffectsQueue) Enqueue(name string, run func(ctx context.Context) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("effects queue closed, task dropped", "task", name)
		return
	}
	select {
	case q.tasks <- effectTask{name: name, run: run}:
	default:
		q.logger.Warn("effects queue full, task dropped", "task", name)
	}
}

// Drain blocks until every task enqueued before the call has finished. A
// closed queue is already drained, so Drain returns immediately.
func (q *EffectsQueue) Drain() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	done := make(chan struct{})
	q.tasks <- effectTask{name: "drain", run: func(context.Context) error {
		close(done)
		return nil
	}}
	q.mu.Unlock()
	<-done
}

// Close stops accepting tasks and waits for queued tasks to finish. A
// second Close is a no-op.
func (q *EffectsQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()
	<-q.done
}
