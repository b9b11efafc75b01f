package store

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/efreitasn/arcclear/internal/domain"
)

// IntentStore is a thread-safe in-memory store for intents,
// with a primary index by intent_id and a secondary index by actor.
// Intents are never removed, only flagged.
type IntentStore struct {
	mu           sync.RWMutex
	intents      map[common.Hash]*domain.Intent
	actorIntents map[common.Address][]*domain.Intent // actor → intents (append-only)
}

// NewIntentStore creates an empty IntentStore.
func NewIntentStore() *IntentStore {
	return &IntentStore{
		intents:      make(map[common.Hash]*domain.Intent),
		actorIntents: make(map[common.Address][]*domain.Intent),
	}
}

// Create adds an intent to the store and appends it to the actor's
// secondary index. It returns domain.ErrDuplicateIntent if the id is taken.
func (s *IntentStore) Create(i *domain.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.intents[i.IntentID]; exists {
		return domain.ErrDuplicateIntent
	}
	s.intents[i.IntentID] = i
	s.actorIntents[i.Actor] = append(s.actorIntents[i.Actor], i)
	return nil
}

// Get retrieves an intent by ID. It returns
// domain.ErrIntentNotFound if the intent does not exist.
func (s *IntentStore) Get(id common.Hash) (*domain.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.intents[id]
	if !ok {
		return nil, domain.ErrIntentNotFound
	}
	return i, nil
}

// Exists returns true if an intent with the given ID exists.
func (s *IntentStore) Exists(id common.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.intents[id]
	return ok
}

// ListByActor returns the actor's intents in insertion order.
func (s *IntentStore) ListByActor(actor common.Address) []*domain.Intent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.actorIntents[actor]
	result := make([]*domain.Intent, len(all))
	copy(result, all)
	return result
}

// Len returns the number of stored intents.
func (s *IntentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.intents)
}
