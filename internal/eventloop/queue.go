package eventloop

import "sync"

// Queue is a Dispatcher that only runs work when Drain is called. It lets a
// caller step the loop deterministically.
type Queue struct {
	mu    sync.Mutex
	items []func()
}

// Post enqueues fn.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.items = append(q.items, fn)
	q.mu.Unlock()
}

// Len returns the number of queued closures.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Drain runs queued closures, including ones posted while draining, until the
// queue is empty. It returns how many ran.
func (q *Queue) Drain() int {
	ran := 0

	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			return ran
		}

		fn := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		fn()
		ran++
	}
}
