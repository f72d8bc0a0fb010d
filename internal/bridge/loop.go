package bridge

import (
	"context"
	"fmt"
	"sync"

	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/logger"
)

// Executor runs tasks on an owning execution context
type Executor interface {
	// Post queues task and returns immediately. It returns false if the
	// executor no longer accepts work.
	Post(task func()) bool
}

// Loop is a single goroutine executing posted tasks in FIFO order. Every
// settlement of a call happens on it.
type Loop struct {
	logger *logger.Logger

	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	started bool
	stopped bool
	done    chan struct{}
}

// NewLoop creates a stopped loop. queueSize only pre-sizes the queue; Post
// never blocks.
func NewLoop(queueSize int, logger *logger.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Loop{
		logger: logger,
		queue:  make([]func(), 0, queueSize),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the loop goroutine. Calling it twice is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.started = true
	go l.run()
}

// Post implements Executor
func (l *Loop) Post(task func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for it to return
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ierr.NewError("loop is stopped").
			WithHint("Service is shutting down").
			Mark(ierr.ErrSystem)
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop stops accepting work, drains what is queued and waits for the loop
// goroutine to exit
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	started := l.started
	l.mu.Unlock()

	if !started {
		close(l.done)
		return nil
	}

	select {
	case l.wake <- struct{}{}:
	default:
	}

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		tasks := l.queue
		l.queue = make([]func(), 0, cap(tasks))
		stopped := l.stopped
		l.mu.Unlock()

		for _, task := range tasks {
			l.execute(task)
		}

		if len(tasks) > 0 {
			continue
		}
		if stopped {
			return
		}
		<-l.wake
	}
}

func (l *Loop) execute(task func()) {
	defer func() {
		if r := recover(); r != nil && l.logger != nil {
			l.logger.Errorw("panic in loop task", "panic", fmt.Sprintf("%v", r))
		}
	}()
	task()
}
