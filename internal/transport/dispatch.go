package transport

import (
	"runtime/debug"
	"sync"

	"github.com/golang/glog"
)

// Dispatcher runs posted functions one at a time, in order, on its own goroutine.
// The queue is unbounded so posting never blocks the caller.
type Dispatcher struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

// Post enqueues fn. It returns false once the dispatcher is closed.
func (d *Dispatcher) Post(fn func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

// Barrier waits until everything posted before it has run.
// Must not be called from the dispatcher goroutine.
func (d *Dispatcher) Barrier() {
	reached := make(chan struct{})
	if !d.Post(func() { close(reached) }) {
		<-d.done
		return
	}
	select {
	case <-reached:
	case <-d.done:
	}
}

// Close stops accepting work. Already queued functions still run.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Done is closed when the dispatcher goroutine exits.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			closed := d.closed
			d.mu.Unlock()
			if closed {
				return
			}
			<-d.wake
			continue
		}
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.call(fn)
	}
}

// call keeps a panicking listener from taking the event loop down with it.
func (d *Dispatcher) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("transport: listener panic: %v\n%s", r, debug.Stack())
		}
	}()
	fn()
}
