// Package signal provides typed notification sources with explicit
// subscriptions. A Signal is not safe for concurrent use: every Add, Remove
// and Emit must happen on the goroutine that owns the event loop.
package signal

// Signal fans a value out to its listeners in subscription order
type Signal[T any] struct {
	listeners []*Listener[T]
}

// Listener is a subscription handle returned by Add
type Listener[T any] struct {
	signal  *Signal[T]
	notify  func(T)
	removed bool
}

// New creates an empty signal
func New[T any]() *Signal[T] {
	return &Signal[T]{}
}

// Add subscribes notify and returns the handle used to unsubscribe
func (s *Signal[T]) Add(notify func(T)) *Listener[T] {
	l := &Listener[T]{signal: s, notify: notify}
	s.listeners = append(s.listeners, l)
	return l
}

// Emit calls every listener registered at the time of the call. Listeners
// removed while the emission is in progress are skipped; listeners added
// during the emission are not called until the next one.
func (s *Signal[T]) Emit(v T) {
	if len(s.listeners) == 0 {
		return
	}
	snapshot := make([]*Listener[T], len(s.listeners))
	copy(snapshot, s.listeners)
	for _, l := range snapshot {
		if l.removed {
			continue
		}
		l.notify(v)
	}
}

// Len returns the number of active listeners
func (s *Signal[T]) Len() int {
	return len(s.listeners)
}

// Remove unsubscribes the listener. Calling it more than once is a no-op.
func (l *Listener[T]) Remove() {
	if l == nil || l.removed {
		return
	}
	l.removed = true
	listeners := l.signal.listeners
	for i, other := range listeners {
		if other == l {
			l.signal.listeners = append(listeners[:i], listeners[i+1:]...)
			break
		}
	}
}

// Active reports whether the listener is still subscribed
func (l *Listener[T]) Active() bool {
	return l != nil && !l.removed
}
