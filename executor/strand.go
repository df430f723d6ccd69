package executor

import (
	"sync"

	"github.com/eapache/queue"
)

// Strand serializes tasks on top of an Executor: tasks posted to one strand
// run one at a time, in submission order, while distinct strands still run
// concurrently. A strand is the unit of mutual exclusion for per-connection
// state; code that only touches its state from strand tasks needs no locks.
type Strand struct {
	ex *Executor

	mu      sync.Mutex
	pending *queue.Queue
	running bool
}

// NewStrand creates a serialized execution context over the executor.
func (e *Executor) NewStrand() *Strand {
	return &Strand{ex: e, pending: queue.New()}
}

// Post enqueues a task behind everything already posted to this strand.
// Returns ErrClosed if the executor is shut down.
func (s *Strand) Post(task Task) error {
	s.mu.Lock()
	s.pending.Add(task)
	start := !s.running
	if start {
		s.running = true
	}
	s.mu.Unlock()

	if !start {
		return nil
	}

	if err := s.ex.Post(s.drain); err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	}
	return nil
}

// drain runs queued tasks until the queue empties. Only one drain is
// scheduled at a time, which is what serializes the strand.
func (s *Strand) drain() {
	for {
		s.mu.Lock()
		if s.pending.Length() == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		task := s.pending.Remove().(Task)
		s.mu.Unlock()

		task()
	}
}
