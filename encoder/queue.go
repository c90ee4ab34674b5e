package encoder

import (
	"sync"
	"sync/atomic"
)

// workQueue runs process on a single worker goroutine. The first error is
// sticky: later items are dropped and every submit returns it.
type workQueue[T any] struct {
	items    chan T
	pending  atomic.Int64
	dequeued chan struct{}
	process  func(T) error
	done     chan struct{}

	// sendMu orders submits against drain
	sendMu sync.Mutex
	closed bool

	errMu sync.Mutex
	err   error
}

func newWorkQueue[T any](capacity int, process func(T) error) *workQueue[T] {
	q := &workQueue[T]{
		items:    make(chan T, capacity),
		dequeued: make(chan struct{}, 1),
		process:  process,
		done:     make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *workQueue[T]) run() {
	defer close(q.done)
	for item := range q.items {
		if q.Err() == nil {
			if err := q.process(item); err != nil {
				q.fail(err)
			}
		}
		q.pending.Add(-1)
		select {
		case q.dequeued <- struct{}{}:
		default:
		}
	}
}

func (q *workQueue[T]) submit(item T) error {
	q.sendMu.Lock()
	defer q.sendMu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if err := q.Err(); err != nil {
		return err
	}
	q.pending.Add(1)
	q.items <- item
	return nil
}

// drain stops accepting work and waits for the worker to finish
func (q *workQueue[T]) drain() error {
	q.sendMu.Lock()
	if !q.closed {
		q.closed = true
		close(q.items)
	}
	q.sendMu.Unlock()
	<-q.done
	return q.Err()
}

func (q *workQueue[T]) fail(err error) {
	q.errMu.Lock()
	defer q.errMu.Unlock()
	if q.err == nil {
		q.err = err
	}
}

func (q *workQueue[T]) Err() error {
	q.errMu.Lock()
	defer q.errMu.Unlock()
	return q.err
}

func (q *workQueue[T]) QueueSize() int            { return int(q.pending.Load()) }
func (q *workQueue[T]) Dequeued() <-chan struct{} { return q.dequeued }
