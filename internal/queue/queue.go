// Package queue provides an unbounded goroutine safe queue of session
// messages.
package queue

import (
	"sync"
)

// Queue is an unbounded queue of string messages. The queue is goroutine
// safe. Inspired by http://blog.dubbelboer.com/2015/04/25/go-faster-queue.html (MIT)
type Queue interface {
	// Add a message to the back of the queue, returns false if the
	// queue is closed. In that case the message is dropped.
	Add(msg string) bool

	// Remove will remove a message from the queue. If false is
	// returned, it either means 1) there were no items on the queue
	// or 2) the queue is closed.
	Remove() (string, bool)

	// Close the queue and discard all entries in the queue, all
	// goroutines in Wait() will return.
	Close()

	// Closed returns true if the queue has been closed. The call
	// cannot guarantee that the queue hasn't been closed while the
	// function returns, so only "true" has a definite meaning.
	Closed() bool

	// Wait for a message to be added or the queue to be closed. If
	// there are items on the queue the first will be returned
	// immediately. Will return "", false if the queue is closed,
	// otherwise the return value of Remove is returned.
	Wait() (string, bool)

	// Cap returns the capacity (without allocations).
	Cap() int

	// Len returns the current length of the queue.
	Len() int
}

type messageQueue struct {
	mu       sync.RWMutex
	cond     *sync.Cond
	nodes    []string
	head     int
	tail     int
	cnt      int
	isClosed bool
}

const initialCapacity = 2

// New returns a new message queue with initial capacity.
func New() Queue {
	q := &messageQueue{
		nodes: make([]string, initialCapacity),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Write mutex must be held when calling.
func (q *messageQueue) resize(n int) {
	nodes := make([]string, n)
	if q.head < q.tail {
		copy(nodes, q.nodes[q.head:q.tail])
	} else {
		copy(nodes, q.nodes[q.head:])
		copy(nodes[len(q.nodes)-q.head:], q.nodes[:q.tail])
	}

	q.tail = q.cnt % n
	q.head = 0
	q.nodes = nodes
}

func (q *messageQueue) Add(msg string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.isClosed {
		return false
	}
	if q.cnt == len(q.nodes) {
		// Doubling wins over a 1.5 grow rate here, see the queue
		// post linked above.
		q.resize(q.cnt * 2)
	}
	q.nodes[q.tail] = msg
	q.tail = (q.tail + 1) % len(q.nodes)
	q.cnt++
	q.cond.Signal()
	return true
}

func (q *messageQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.isClosed = true
	q.cnt = 0
	q.nodes = nil
	q.cond.Broadcast()
}

func (q *messageQueue) Closed() bool {
	q.mu.RLock()
	c := q.isClosed
	q.mu.RUnlock()
	return c
}

func (q *messageQueue) Wait() (string, bool) {
	q.mu.Lock()
	if q.isClosed {
		q.mu.Unlock()
		return "", false
	}
	if q.cnt != 0 {
		q.mu.Unlock()
		return q.Remove()
	}
	q.cond.Wait()
	q.mu.Unlock()
	return q.Remove()
}

func (q *messageQueue) Remove() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cnt == 0 {
		return "", false
	}
	msg := q.nodes[q.head]
	q.head = (q.head + 1) % len(q.nodes)
	q.cnt--

	if n := len(q.nodes) / 2; n >= 2 && q.cnt <= n {
		q.resize(n)
	}

	return msg, true
}

func (q *messageQueue) Cap() int {
	q.mu.RLock()
	c := cap(q.nodes)
	q.mu.RUnlock()
	return c
}

func (q *messageQueue) Len() int {
	q.mu.RLock()
	l := q.cnt
	q.mu.RUnlock()
	return l
}
