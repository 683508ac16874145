package signals

import (
	"github.com/sasha-s/go-deadlock"
)

// Store is an append-only list of signals, de-duplicated by Signal.ID.
type Store struct {
	mu        *deadlock.Mutex
	ordered   []Signal
	byID      map[string]int
	listeners map[int]func(Signal)
	nextID    int
}

func NewStore() *Store {
	return &Store{
		mu:        &deadlock.Mutex{},
		byID:      make(map[string]int),
		listeners: make(map[int]func(Signal)),
	}
}

// Publish appends s unless a signal with the same ID is already held. Listeners are
// notified, outside the lock, only when s was appended.
func (s *Store) Publish(sig Signal) bool {
	s.mu.Lock()
	if _, exists := s.byID[sig.ID]; exists {
		s.mu.Unlock()
		return false
	}
	s.byID[sig.ID] = len(s.ordered)
	s.ordered = append(s.ordered, sig)
	listeners := make([]func(Signal), 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(sig)
	}
	return true
}

// Listen registers fn for every newly appended signal. Call the returned func to stop.
func (s *Store) Listen(fn func(Signal)) (unlisten func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Events returns every held signal in publication order.
func (s *Store) Events() []Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Signal, len(s.ordered))
	copy(out, s.ordered)
	return out
}

func (s *Store) Get(id string) (Signal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[id]
	if !ok {
		return Signal{}, false
	}
	return s.ordered[i], true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ordered)
}

// Reset drops every held signal. Listeners stay registered.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ordered = nil
	s.byID = make(map[string]int)
}
