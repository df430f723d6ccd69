// Package executor provides the substrate's scheduling model: one shared
// worker pool that every asynchronous operation completes on, and strands,
// serialized execution contexts that order their tasks FIFO on top of it.
package executor

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

var ErrClosed = errors.New("executor: closed")

// Task is a unit of work submitted to the pool.
type Task func()

// Executor is a fixed pool of worker goroutines draining a shared task
// channel. Tasks run in no particular order relative to each other; use a
// Strand when ordering matters.
type Executor struct {
	tasks  chan Task
	wg     sync.WaitGroup
	closed atomic.Bool

	workers int
}

// New starts an executor with the given worker count. workers <= 0 selects
// the hardware concurrency.
func New(workers int) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	e := &Executor{
		tasks:   make(chan Task, 64*workers),
		workers: workers,
	}

	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.work()
	}

	return e
}

func (e *Executor) work() {
	defer e.wg.Done()
	for task := range e.tasks {
		task()
	}
}

// Workers reports the pool size.
func (e *Executor) Workers() int { return e.workers }

// Post submits a task for asynchronous execution. It blocks only while the
// submission queue is full.
func (e *Executor) Post(task Task) (err error) {
	if e.closed.Load() {
		return ErrClosed
	}

	// The submission below may race with Close; recover turns a send on the
	// closed channel into ErrClosed instead of a crash.
	defer func() {
		if recover() != nil {
			err = ErrClosed
		}
	}()

	e.tasks <- task
	return nil
}

// Close stops accepting tasks, runs everything already queued, and waits for
// the workers to exit. Idempotent.
func (e *Executor) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	close(e.tasks)
	e.wg.Wait()
}
