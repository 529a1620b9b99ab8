package display

import (
	"errors"
	"sync"
	"time"
)

// ErrLoopDestroyed is returned by Dispatch once the loop has been destroyed
var ErrLoopDestroyed = errors.New("event loop destroyed")

// EventLoop serializes work onto the goroutine that calls Dispatch.
// Producers on any goroutine hand over closures with Post; the closures run
// in post order, on the dispatching goroutine, inside Dispatch.
type EventLoop struct {
	mu          sync.Mutex
	queue       []func()
	interrupted bool
	destroyed   bool
	timers      map[*Timer]struct{}

	wake chan struct{}
	done chan struct{}
}

// NewEventLoop creates an empty event loop
func NewEventLoop() *EventLoop {
	return &EventLoop{
		timers: make(map[*Timer]struct{}),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post queues fn for the next Dispatch. It is safe to call from any
// goroutine, including from inside a dispatched closure. It returns false
// if the loop has been destroyed and fn was dropped.
func (l *EventLoop) Post(fn func()) bool {
	l.mu.Lock()
	if l.destroyed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	l.signal()
	return true
}

// Wake makes a blocked Dispatch return even if nothing was posted
func (l *EventLoop) Wake() {
	l.mu.Lock()
	l.interrupted = true
	l.mu.Unlock()
	l.signal()
}

func (l *EventLoop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued closures
func (l *EventLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// take swaps out the current queue. Work posted while the batch runs is
// left for the next Dispatch.
func (l *EventLoop) take() (batch []func(), interrupted bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.destroyed {
		return nil, false, ErrLoopDestroyed
	}
	batch, l.queue = l.queue, nil
	interrupted, l.interrupted = l.interrupted, false
	return batch, interrupted, nil
}

// Dispatch runs queued work and returns the number of closures executed.
// A negative timeout blocks until at least one closure ran or Wake was
// called, zero polls without blocking, and a positive timeout waits at most
// that long.
func (l *EventLoop) Dispatch(timeout time.Duration) (int, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		batch, interrupted, err := l.take()
		if err != nil {
			return 0, err
		}
		if len(batch) > 0 {
			for _, fn := range batch {
				fn()
			}
			return len(batch), nil
		}
		if interrupted || timeout == 0 {
			return 0, nil
		}

		select {
		case <-l.wake:
		case <-l.done:
			return 0, ErrLoopDestroyed
		case <-expired:
			return 0, nil
		}
	}
}

// Destroy drops pending work, disarms timers and wakes any blocked
// Dispatch. Calling it twice is a no-op.
func (l *EventLoop) Destroy() {
	l.mu.Lock()
	if l.destroyed {
		l.mu.Unlock()
		return
	}
	l.destroyed = true
	l.queue = nil
	timers := l.timers
	l.timers = make(map[*Timer]struct{})
	l.mu.Unlock()

	for t := range timers {
		t.stop()
	}
	close(l.done)
}

// Destroyed reports whether Destroy has been called
func (l *EventLoop) Destroyed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.destroyed
}

// Timer is a one-shot timer source whose callback runs on the dispatching
// goroutine
type Timer struct {
	loop *EventLoop
	fn   func()

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

// AddTimer registers a disarmed timer. Arm it with Update.
func (l *EventLoop) AddTimer(fn func()) *Timer {
	t := &Timer{loop: l, fn: fn}
	l.mu.Lock()
	if !l.destroyed {
		l.timers[t] = struct{}{}
	}
	l.mu.Unlock()
	return t
}

// Update arms the timer to fire once after d. Zero or negative d disarms
// it. Re-arming replaces any pending expiry.
func (t *Timer) Update(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if d <= 0 {
		return
	}

	gen := t.gen
	t.timer = time.AfterFunc(d, func() {
		t.loop.Post(func() {
			t.mu.Lock()
			stale := gen != t.gen
			t.mu.Unlock()
			if !stale {
				t.fn()
			}
		})
	})
}

// Remove disarms the timer and unregisters it from the loop
func (t *Timer) Remove() {
	t.stop()
	t.loop.mu.Lock()
	delete(t.loop.timers, t)
	t.loop.mu.Unlock()
}

func (t *Timer) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
