package store

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
)

// BalanceStore is a thread-safe in-memory ledger of per-asset account
// balances.
type BalanceStore struct {
	mu       sync.RWMutex
	balances map[string]map[common.Address]*uint256.Int // asset → account → balance
}

// NewBalanceStore creates an empty BalanceStore.
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{
		balances: make(map[string]map[common.Address]*uint256.Int),
	}
}

// BalanceOf returns a copy of the account's balance in asset.
func (s *BalanceStore) BalanceOf(account common.Address, asset string) *uint256.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.balances[asset][account]; ok {
		return b.Clone()
	}
	return new(uint256.Int)
}

// Credit adds amount to the account's balance. It returns
// domain.ErrBalanceOverflow, leaving the balance untouched, if the sum
// does not fit in 256 bits.
func (s *BalanceStore) Credit(account common.Address, asset string, amount *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credit(account, asset, amount)
}

// Move debits from and credits to in one step. Either both sides change
// or neither does.
func (s *BalanceStore) Move(from, to common.Address, asset string, amount *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkDebit(from, asset, amount); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if b, ok := s.balances[asset][to]; ok {
		if _, overflow := new(uint256.Int).AddOverflow(b, amount); overflow {
			return domain.ErrBalanceOverflow
		}
	}
	s.sub(from, asset, amount)
	return s.credit(to, asset, amount)
}

func (s *BalanceStore) checkDebit(account common.Address, asset string, amount *uint256.Int) error {
	b, ok := s.balances[asset][account]
	if !ok {
		if amount.IsZero() {
			return nil
		}
		return domain.ErrInsufficientFunds
	}
	if b.Lt(amount) {
		return domain.ErrInsufficientFunds
	}
	return nil
}

func (s *BalanceStore) sub(account common.Address, asset string, amount *uint256.Int) {
	if b, ok := s.balances[asset][account]; ok {
		b.Sub(b, amount)
	}
}

func (s *BalanceStore) credit(account common.Address, asset string, amount *uint256.Int) error {
	accounts := s.balances[asset]
	if accounts == nil {
		accounts = make(map[common.Address]*uint256.Int)
		s.balances[asset] = accounts
	}
	b, ok := accounts[account]
	if !ok {
		accounts[account] = amount.Clone()
		return nil
	}
	sum, overflow := new(uint256.Int).AddOverflow(b, amount)
	if overflow {
		return domain.ErrBalanceOverflow
	}
	b.Set(sum)
	return nil
}
