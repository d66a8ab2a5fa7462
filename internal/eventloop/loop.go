// Package eventloop runs every component of the client on one goroutine.
//
// Timers, oracle calls, the channel reader and UI input never touch component
// state directly. They Post closures, and the loop runs each closure to
// completion before starting the next one.
package eventloop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Dispatcher schedules work on the event loop.
type Dispatcher interface {
	// Post enqueues fn. It never blocks and is safe from any goroutine.
	Post(fn func())
}

// Loop is an unbounded FIFO of closures drained by Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped chan struct{}
	stop    sync.Once
	logger  *slog.Logger
}

// New creates a loop. Call Run to start processing.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// Post enqueues fn for execution on the loop goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run processes posted closures until ctx is canceled or Stop is called.
// Work still queued at that point is dropped.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}

			l.invoke(fn)

			select {
			case <-l.stopped:
				return nil
			default:
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("event loop: %w", ctx.Err())
		case <-l.stopped:
			return nil
		case <-l.wake:
		}
	}
}

// Stop ends Run after the closure currently executing, if any.
func (l *Loop) Stop() {
	l.stop.Do(func() { close(l.stopped) })
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil, false
	}

	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]

	return fn, true
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event handler panicked", slog.Any("panic", r))
		}
	}()

	fn()
}
