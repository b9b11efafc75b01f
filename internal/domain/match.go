package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MatchStatus represents the lifecycle state of an escrowed match.
type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusFunded    MatchStatus = "funded"
	MatchStatusSettled   MatchStatus = "settled"
	MatchStatusDisputed  MatchStatus = "disputed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// matchTransitions lists every allowed status change. Anything not listed
// is rejected, which keeps the lifecycle monotonic.
var matchTransitions = map[MatchStatus][]MatchStatus{
	MatchStatusPending: {MatchStatusFunded, MatchStatusCancelled},
	MatchStatusFunded:  {MatchStatusSettled, MatchStatusDisputed, MatchStatusCancelled},
	MatchStatusSettled: {MatchStatusDisputed},
}

// CanTransition reports whether a match in status s may move to status to.
func (s MatchStatus) CanTransition(to MatchStatus) bool {
	for _, next := range matchTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Match pairs one bid intent with one ask intent at an agreed price and
// tracks the escrowed funds of both parties.
type Match struct {
	MatchID         common.Hash
	BidIntentID     common.Hash
	AskIntentID     common.Hash
	Bidder          common.Address
	Asker           common.Address
	Asset           string
	MatchPrice      *uint256.Int
	BidLocked       *uint256.Int
	AskLocked       *uint256.Int
	CreatedAt       uint64
	SettleDeadline  uint64
	Status          MatchStatus
	PaymentProofRef common.Hash
	PaymentRef      common.Hash
	DisputeReason   string
}

// IsParty reports whether addr is the bidder or the asker.
func (m *Match) IsParty(addr common.Address) bool {
	return addr == m.Bidder || addr == m.Asker
}

// LockedBy returns the amount the given party has locked, or zero.
func (m *Match) LockedBy(addr common.Address) *uint256.Int {
	switch addr {
	case m.Bidder:
		return cloneAmount(m.BidLocked)
	case m.Asker:
		return cloneAmount(m.AskLocked)
	}
	return new(uint256.Int)
}

// Clone returns a deep copy so callers outside the ledger cannot mutate
// custody state.
func (m *Match) Clone() *Match {
	c := *m
	c.MatchPrice = cloneAmount(m.MatchPrice)
	c.BidLocked = cloneAmount(m.BidLocked)
	c.AskLocked = cloneAmount(m.AskLocked)
	return &c
}
