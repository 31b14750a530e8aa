// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package resolver

import (
	"sync"
)

// Update is published to subscribers after the pump merged a batch into the store.
type Update struct {
	IDs []string
}

// Store holds the resolved names per record ID. Readers never block on the pump; only the
// pump writes to it.
type Store struct {
	mu          sync.RWMutex
	names       map[string]Names
	states      map[string]State
	subscribers map[chan Update]struct{}
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		names:       make(map[string]Names),
		states:      make(map[string]State),
		subscribers: make(map[chan Update]struct{}),
	}
}

// Get returns the names of the record, if any were merged yet.
func (s *Store) Get(id string) (Names, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names, ok := s.names[id]
	return names, ok
}

// State returns the resolution state of the record.
func (s *Store) State(id string) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[id]
}

// Len returns the number of records with merged names.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// Subscribe returns a channel that receives an Update for every merged batch and an
// unsubscribe function. Updates are dropped for subscribers whose buffer is full.
func (s *Store) Subscribe(buffer int) (<-chan Update, func()) {
	ch := make(chan Update, buffer)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// markResolving flags the claimed IDs as in flight.
func (s *Store) markResolving(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.states[id] = Resolving
	}
}

// abandon resets in-flight IDs to their previous state after a cancelled batch.
func (s *Store) abandon(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if s.states[id] != Resolving {
			continue
		}
		if _, ok := s.names[id]; !ok {
			delete(s.states, id)
			continue
		}
		s.states[id] = Fallback
	}
}

// merge writes a batch of results in one update and notifies the subscribers.
func (s *Store) merge(results []result) {
	if len(results) == 0 {
		return
	}
	ids := make([]string, 0, len(results))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, res := range results {
		s.names[res.id] = res.names
		s.states[res.id] = res.state
		ids = append(ids, res.id)
	}
	update := Update{IDs: ids}
	for ch := range s.subscribers {
		select {
		case ch <- update:
		default:
		}
	}
}
