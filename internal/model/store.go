package model

import "sync"

// Store owns the application state and serializes every change through Reduce.
type Store struct {
	mu          sync.Mutex
	state       AppState
	subscribers []func(AppState)
}

// NewStore creates a store holding the initial state
func NewStore() *Store {
	return &Store{state: InitialState()}
}

// State returns a snapshot of the current state
func (s *Store) State() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies action and notifies subscribers with the resulting state.
// Subscribers run on the dispatching goroutine after the lock is released.
func (s *Store) Dispatch(action Action) AppState {
	s.mu.Lock()
	s.state = Reduce(s.state, action)
	state := s.state
	subscribers := make([]func(AppState), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(state)
	}
	return state
}

// Subscribe registers fn to be called after every dispatch
func (s *Store) Subscribe(fn func(AppState)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}
