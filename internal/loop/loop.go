package loop

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrStopped is returned when work is posted to a loop that has exited.
var ErrStopped = errors.New("event loop stopped")

// Loop runs posted tasks one at a time on a single goroutine. Tasks never
// run concurrently with each other, so state touched only from tasks needs
// no locking.
type Loop struct {
	queue chan func()
	stop  chan struct{}
	done  chan struct{}

	stopOnce sync.Once
	runOnce  sync.Once
}

// New creates a loop with the given queue depth.
func New(bufferSize int) *Loop {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Loop{
		queue: make(chan func(), bufferSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Post enqueues fn. It blocks while the queue is full and returns false
// once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	select {
	case <-l.stop:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.stop:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Run processes tasks until ctx is done or Stop is called. Tasks still
// queued at that point are drained before Run returns.
func (l *Loop) Run(ctx context.Context) {
	l.runOnce.Do(func() {
		defer close(l.done)
		for {
			select {
			case fn := <-l.queue:
				l.safeCall(fn)
			case <-ctx.Done():
				l.Stop()
				l.drain()
				return
			case <-l.stop:
				l.drain()
				return
			}
		}
	})
}

// Stop asks Run to exit.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Done is closed when Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.queue:
			l.safeCall(fn)
		default:
			return
		}
	}
}

// safeCall keeps one bad task from taking the loop down.
func (l *Loop) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Event loop task panic: %v", r)
		}
	}()
	fn()
}
