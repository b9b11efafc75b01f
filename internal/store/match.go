package store

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/efreitasn/arcclear/internal/domain"
)

// MatchStore is a thread-safe in-memory store for matches, with a
// secondary index by party (bidder and asker) in creation order.
type MatchStore struct {
	mu           sync.RWMutex
	matches      map[common.Hash]*domain.Match
	partyMatches map[common.Address][]*domain.Match
}

// NewMatchStore creates an empty MatchStore.
func NewMatchStore() *MatchStore {
	return &MatchStore{
		matches:      make(map[common.Hash]*domain.Match),
		partyMatches: make(map[common.Address][]*domain.Match),
	}
}

// Create adds a match. It returns domain.ErrMatchAlreadyExists if a
// match with the same ID exists.
func (s *MatchStore) Create(m *domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.matches[m.MatchID]; exists {
		return domain.ErrMatchAlreadyExists
	}
	s.matches[m.MatchID] = m
	s.partyMatches[m.Bidder] = append(s.partyMatches[m.Bidder], m)
	if m.Asker != m.Bidder {
		s.partyMatches[m.Asker] = append(s.partyMatches[m.Asker], m)
	}
	return nil
}

// Get retrieves a match by ID. It returns
// domain.ErrMatchNotFound if the match does not exist.
func (s *MatchStore) Get(id common.Hash) (*domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	return m, nil
}

// Exists returns true if a match with the given ID exists.
func (s *MatchStore) Exists(id common.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.matches[id]
	return ok
}

// ListByParty returns the matches the address is a party to, oldest first.
func (s *MatchStore) ListByParty(addr common.Address) []*domain.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.partyMatches[addr]
	result := make([]*domain.Match, len(all))
	copy(result, all)
	return result
}
