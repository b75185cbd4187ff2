// Package queue implements the bounded, fixed-capacity hand-off queue a
// worker process's accept loop uses to pass connections to its thread pool.
// Capacity is fixed at 100 slots; producers that find the queue full use
// TryEnqueue to fail fast (and answer 503) rather than block.
package queue

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Capacity is the fixed number of slots in the ring buffer, matching the
// reference server's QUEUE_SIZE.
const Capacity = 100

// ErrShutdown is returned by Enqueue/Dequeue once Shutdown has been called.
var ErrShutdown = errors.New("queue: shut down")

// ErrFull is returned by TryEnqueue when no slot is immediately available.
var ErrFull = errors.New("queue: full")

// Queue is a ring buffer of connection handles guarded by two counting
// semaphores (empty slots, filled slots) and a plain mutex for the short
// critical section that actually touches the ring's head/tail. This
// mirrors the three-primitive design of the reference connection queue
// one-for-one: semaphore.Weighted stands in for the counting semaphores,
// sync.Mutex for the binary one. T is a connection handle — a raw file
// descriptor in the reference server, a net.Conn here, since Go's net.Conn
// already is the connection handle and round-tripping through a bare fd
// would cost the deadline/blocking-mode state Go's runtime tracks on it.
type Queue[T any] struct {
	empty  *semaphore.Weighted
	filled *semaphore.Weighted
	mu     sync.Mutex

	ring       [Capacity]T
	head, tail int

	shutdownMu sync.Mutex
	shutdown   bool
}

// New returns an empty queue with Capacity slots.
func New[T any]() *Queue[T] {
	q := &Queue[T]{
		empty:  semaphore.NewWeighted(Capacity),
		filled: semaphore.NewWeighted(Capacity),
	}
	// empty starts full (Capacity permits available), filled starts
	// empty: acquire all of filled's weight up front so the first
	// Acquire(filled, 1) genuinely blocks until something is enqueued.
	q.filled.Acquire(context.Background(), Capacity)
	return q
}

// Enqueue blocks until a slot is free and adds v to the tail of the ring.
// Shutdown does not wake a producer waiting for a slot; once it gets one,
// it returns ErrShutdown without adding v if the queue has been shut down.
func (q *Queue[T]) Enqueue(ctx context.Context, v T) error {
	if err := q.empty.Acquire(ctx, 1); err != nil {
		return err
	}
	if q.isShutdown() {
		q.empty.Release(1)
		return ErrShutdown
	}
	q.mu.Lock()
	q.ring[q.tail] = v
	q.tail = (q.tail + 1) % Capacity
	q.mu.Unlock()
	q.filled.Release(1)
	return nil
}

// TryEnqueue adds v without blocking, returning ErrFull if the queue has no
// free slot right now. This is the path the accept loop uses so it can
// answer 503 instead of stalling when every worker thread is busy.
func (q *Queue[T]) TryEnqueue(v T) error {
	if !q.empty.TryAcquire(1) {
		return ErrFull
	}
	if q.isShutdown() {
		q.empty.Release(1)
		return ErrShutdown
	}
	q.mu.Lock()
	q.ring[q.tail] = v
	q.tail = (q.tail + 1) % Capacity
	q.mu.Unlock()
	q.filled.Release(1)
	return nil
}

// Dequeue blocks until a connection is available (or the queue is shut
// down) and removes it from the head of the ring.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T
	if err := q.filled.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	if q.isShutdown() {
		q.filled.Release(1)
		return zero, ErrShutdown
	}
	q.mu.Lock()
	v := q.ring[q.head]
	q.ring[q.head] = zero
	q.head = (q.head + 1) % Capacity
	q.mu.Unlock()
	q.empty.Release(1)
	return v, nil
}

// Size reports the number of connections currently queued.
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tail >= q.head {
		return q.tail - q.head
	}
	return Capacity - q.head + q.tail
}

func (q *Queue[T]) isShutdown() bool {
	q.shutdownMu.Lock()
	defer q.shutdownMu.Unlock()
	return q.shutdown
}

// Shutdown marks the queue closed and wakes every blocked Dequeue call so
// consumer goroutines can observe ErrShutdown and exit. filled's outstanding
// weight already equals the number of items currently queued, so releasing
// a blind Capacity would push it past its maximum and panic whenever
// Shutdown runs with items still in the ring; instead this tops filled up
// to Capacity, which is always safe and still wakes every blocked consumer.
func (q *Queue[T]) Shutdown() {
	q.shutdownMu.Lock()
	q.shutdown = true
	q.shutdownMu.Unlock()
	if n := Capacity - q.Size(); n > 0 {
		q.filled.Release(int64(n))
	}
}

// Drain calls closeFn on every connection handle still sitting in the ring.
// Call after Shutdown once all consumers have exited.
func (q *Queue[T]) Drain(closeFn func(T)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int
	if q.tail >= q.head {
		n = q.tail - q.head
	} else {
		n = Capacity - q.head + q.tail
	}
	for ; n > 0; n-- {
		closeFn(q.ring[q.head])
		var zero T
		q.ring[q.head] = zero
		q.head = (q.head + 1) % Capacity
	}
}
