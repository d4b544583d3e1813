package bridge

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Task is one unit of pipeline work executed by a worker goroutine.
type Task func()

// workerPool bounds the goroutines used to filter, render, and broadcast
// decoded records so the datagram receive loop never blocks behind them.
// When the queue is full, tasks are dropped rather than queued unbounded.
type workerPool struct {
	workerCount  int
	taskQueue    chan Task
	ctx          context.Context
	wg           sync.WaitGroup
	droppedTasks atomic.Int64
	logger       zerolog.Logger
}

func newWorkerPool(workerCount, queueSize int, logger zerolog.Logger) *workerPool {
	return &workerPool{
		workerCount: workerCount,
		taskQueue:   make(chan Task, queueSize),
		logger:      logger,
	}
}

func (wp *workerPool) Start(ctx context.Context) {
	wp.ctx = ctx
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

func (wp *workerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case task := <-wp.taskQueue:
			if task == nil {
				continue
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						wp.logger.Error().
							Interface("panic_value", r).
							Str("stack_trace", string(debug.Stack())).
							Msg("Worker panic recovered")
					}
				}()
				task()
			}()
		case <-wp.ctx.Done():
			return
		}
	}
}

// Submit enqueues a task, dropping it if the queue is full.
func (wp *workerPool) Submit(task Task) {
	select {
	case wp.taskQueue <- task:
	default:
		wp.droppedTasks.Add(1)
	}
}

// Stop waits for the workers to exit. The pool's context must already be
// cancelled.
func (wp *workerPool) Stop() {
	wp.wg.Wait()
}

// DroppedTasks returns how many tasks were dropped because the queue was
// full.
func (wp *workerPool) DroppedTasks() int64 {
	return wp.droppedTasks.Load()
}
