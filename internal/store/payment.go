package store

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/efreitasn/arcclear/internal/domain"
)

// VerificationStore is a thread-safe, write-once store for payment
// verifications keyed by payment reference.
type VerificationStore struct {
	mu      sync.RWMutex
	records map[common.Hash]*domain.PaymentVerification
}

// NewVerificationStore creates an empty VerificationStore.
func NewVerificationStore() *VerificationStore {
	return &VerificationStore{
		records: make(map[common.Hash]*domain.PaymentVerification),
	}
}

// Create stores a record. A payment reference can be stored only once;
// any later attempt returns domain.ErrAlreadyVerified whatever its
// content.
func (s *VerificationStore) Create(p *domain.PaymentVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[p.PaymentRef]; exists {
		return domain.ErrAlreadyVerified
	}
	s.records[p.PaymentRef] = p
	return nil
}

// Get retrieves a record by payment reference. It returns
// domain.ErrVerificationNotFound if none exists.
func (s *VerificationStore) Get(ref common.Hash) (*domain.PaymentVerification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.records[ref]
	if !ok {
		return nil, domain.ErrVerificationNotFound
	}
	return p, nil
}

// Exists returns true if the payment reference was recorded.
func (s *VerificationStore) Exists(ref common.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[ref]
	return ok
}
