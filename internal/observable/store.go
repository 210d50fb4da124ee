// Package observable holds a single snapshot value that readers copy and
// listeners are notified about after every update.
package observable

import "sync"

// Listener receives the snapshot produced by an update.
type Listener[T any] func(T)

type Store[T any] struct {
	mu        sync.RWMutex
	value     T
	nextID    int
	listeners map[int]Listener[T]

	held     int
	flushing bool
	pending  []T
}

func NewStore[T any](initial T) *Store[T] {
	return &Store[T]{
		value:     initial,
		listeners: make(map[int]Listener[T]),
	}
}

// Get returns the current snapshot. T should be a value type or be copied by the
// caller's update functions so that readers never share mutable state.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Update applies fn to the current snapshot and notifies listeners with the result.
// Listeners run outside the lock, see snapshots in update order and may update
// the store themselves. While the store is held the notification is queued.
func (s *Store[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	s.value = fn(s.value)
	next := s.value
	s.pending = append(s.pending, next)
	s.flushLocked()
	return next
}

// Hold queues notifications until the returned func is called. Holds nest and
// the last release delivers the queue. A caller that serializes its own
// operations holds the store for the duration and releases it after dropping
// its lock, so listeners may call back into it.
func (s *Store[T]) Hold() (release func()) {
	s.mu.Lock()
	s.held++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.held--
			s.flushLocked()
		})
	}
}

// flushLocked drains the queue unless the store is held or another call is
// already draining it. It is entered with s.mu held and returns with it released.
func (s *Store[T]) flushLocked() {
	if s.held > 0 || s.flushing {
		s.mu.Unlock()
		return
	}
	s.flushing = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		listeners := make([]Listener[T], 0, len(s.listeners))
		for _, l := range s.listeners {
			listeners = append(listeners, l)
		}
		s.mu.Unlock()

		for _, l := range listeners {
			l(next)
		}
		s.mu.Lock()
	}
	s.pending = nil
	s.flushing = false
	s.mu.Unlock()
}

// Subscribe registers l and returns a function that removes it.
func (s *Store[T]) Subscribe(l Listener[T]) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
		})
	}
}
