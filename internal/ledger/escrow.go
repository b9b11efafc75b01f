package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
)

// CreateMatch pairs a bid intent with an ask intent at price and consumes
// both. The engine calls it once per proposed fill. When matchers are
// configured the caller must be one of them.
func (l *Ledger) CreateMatch(caller common.Address, bidID, askID common.Hash, price *uint256.Int) (common.Hash, error) {
	var id common.Hash
	err := l.transact("create_match", func(t *tx) error {
		if !l.access.mayMatch(caller) {
			return domain.ErrUnauthorized
		}
		if price == nil || price.IsZero() {
			return domain.ErrInvalidAmount
		}
		if bidID == askID || !l.isValidLocked(bidID, t.now) || !l.isValidLocked(askID, t.now) {
			return domain.ErrInvalidIntents
		}
		bid, _ := l.intents.Get(bidID)
		ask, _ := l.intents.Get(askID)
		if bid.SettlementAsset != ask.SettlementAsset {
			return domain.ErrAssetMismatch
		}

		id = domain.DeriveMatchID(bidID, askID, price, t.now)
		if l.matches.Exists(id) {
			return domain.ErrMatchAlreadyExists
		}
		if err := l.markMatched(t, bidID); err != nil {
			return err
		}
		if err := l.markMatched(t, askID); err != nil {
			return err
		}

		m := &domain.Match{
			MatchID:        id,
			BidIntentID:    bidID,
			AskIntentID:    askID,
			Bidder:         bid.Actor,
			Asker:          ask.Actor,
			Asset:          bid.SettlementAsset,
			MatchPrice:     price.Clone(),
			BidLocked:      new(uint256.Int),
			AskLocked:      new(uint256.Int),
			CreatedAt:      t.now,
			SettleDeadline: t.now + l.settlementTimeout,
			Status:         domain.MatchStatusPending,
		}
		if err := l.matches.Create(m); err != nil {
			return err
		}

		t.emit(domain.Event{
			Type:     domain.EventMatchCreated,
			MatchID:  id,
			IntentID: bidID,
			Actor:    caller,
			Parties:  []common.Address{m.Bidder, m.Asker},
			Asset:    m.Asset,
			Amount:   price.Clone(),
		})
		return nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	return id, nil
}

// FundEscrow locks deposit from the caller's balance into the match.
// The match becomes funded once both parties have deposited.
func (l *Ledger) FundEscrow(caller common.Address, matchID common.Hash, deposit *uint256.Int) error {
	return l.transact("fund_escrow", func(t *tx) error {
		m, err := l.matches.Get(matchID)
		if err != nil {
			return err
		}
		if !m.IsParty(caller) {
			return domain.ErrUnauthorizedParty
		}
		if m.Status != domain.MatchStatusPending {
			return domain.ErrInvalidMatchStatus
		}

		// A self-match is funded bid side first.
		var lock **uint256.Int
		switch {
		case caller == m.Bidder && m.BidLocked.IsZero():
			lock = &m.BidLocked
		case caller == m.Asker && m.AskLocked.IsZero():
			lock = &m.AskLocked
		default:
			return domain.ErrAlreadyFunded
		}
		if deposit == nil || deposit.Lt(m.MatchPrice) {
			return domain.ErrInsufficientEscrow
		}
		if err := l.balances.Move(caller, EscrowAccount, m.Asset, deposit); err != nil {
			return err
		}
		*lock = deposit.Clone()

		t.emit(domain.Event{
			Type:    domain.EventEscrowFunded,
			MatchID: matchID,
			Actor:   caller,
			Parties: []common.Address{m.Bidder, m.Asker},
			Asset:   m.Asset,
			Amount:  deposit.Clone(),
		})
		if !m.BidLocked.IsZero() && !m.AskLocked.IsZero() {
			m.Status = domain.MatchStatusFunded
			t.emit(domain.Event{
				Type:    domain.EventMatchFunded,
				MatchID: matchID,
				Parties: []common.Address{m.Bidder, m.Asker},
				Asset:   m.Asset,
				Amount:  new(uint256.Int).Add(m.BidLocked, m.AskLocked),
			})
		}
		return nil
	})
}

// SettleMatch releases a funded match against a verified payment. The
// combined locked funds go to the asker in one transfer. Anyone may
// call it, the payment proof is the gate.
func (l *Ledger) SettleMatch(caller common.Address, matchID, proofRef, paymentRef common.Hash) error {
	return l.transact("settle_match", func(t *tx) error {
		m, err := l.matches.Get(matchID)
		if err != nil {
			return err
		}
		if m.Status != domain.MatchStatusFunded {
			return domain.ErrInvalidMatchStatus
		}
		if _, used := l.consumed[paymentRef]; used {
			return domain.ErrPaymentRefConsumed
		}
		if !l.verifyLocked(paymentRef, m.MatchPrice) {
			return domain.ErrInvalidPaymentProof
		}

		total := new(uint256.Int).Add(m.BidLocked, m.AskLocked)
		if err := l.balances.Move(EscrowAccount, m.Asker, m.Asset, total); err != nil {
			return err
		}

		m.BidLocked = new(uint256.Int)
		m.AskLocked = new(uint256.Int)
		m.Status = domain.MatchStatusSettled
		m.PaymentProofRef = proofRef
		m.PaymentRef = paymentRef
		l.consumed[paymentRef] = matchID

		t.emit(domain.Event{
			Type:       domain.EventMatchSettled,
			MatchID:    matchID,
			PaymentRef: paymentRef,
			Actor:      caller,
			Parties:    []common.Address{m.Bidder, m.Asker},
			Asset:      m.Asset,
			Amount:     total,
		})
		return nil
	})
}

// DisputeMatch flags a funded or settled match as disputed. Only parties
// may dispute, and only within the dispute window counted from creation.
func (l *Ledger) DisputeMatch(caller common.Address, matchID common.Hash, reason string) error {
	return l.transact("dispute_match", func(t *tx) error {
		m, err := l.matches.Get(matchID)
		if err != nil {
			return err
		}
		if !m.IsParty(caller) {
			return domain.ErrUnauthorizedParty
		}
		if !m.Status.CanTransition(domain.MatchStatusDisputed) {
			return domain.ErrInvalidMatchStatus
		}
		if t.now >= m.CreatedAt+l.disputeWindow {
			return domain.ErrDisputeWindowExpired
		}
		m.Status = domain.MatchStatusDisputed
		m.DisputeReason = reason

		t.emit(domain.Event{
			Type:    domain.EventMatchDisputed,
			MatchID: matchID,
			Actor:   caller,
			Parties: []common.Address{m.Bidder, m.Asker},
			Asset:   m.Asset,
		})
		return nil
	})
}

// CancelMatch unwinds a pending or funded match once its settlement
// deadline has passed, refunding each party what it locked. Anyone may
// call it.
func (l *Ledger) CancelMatch(caller common.Address, matchID common.Hash) error {
	return l.transact("cancel_match", func(t *tx) error {
		m, err := l.matches.Get(matchID)
		if err != nil {
			return err
		}
		if t.now < m.SettleDeadline {
			return domain.ErrSettlementTimeoutNotReached
		}
		if !m.Status.CanTransition(domain.MatchStatusCancelled) {
			return domain.ErrInvalidMatchStatus
		}

		total := new(uint256.Int).Add(m.BidLocked, m.AskLocked)
		if err := l.balances.Move(EscrowAccount, m.Bidder, m.Asset, m.BidLocked); err != nil {
			return err
		}
		if err := l.balances.Move(EscrowAccount, m.Asker, m.Asset, m.AskLocked); err != nil {
			// Put the bidder's refund back so the transaction leaves no trace.
			_ = l.balances.Move(m.Bidder, EscrowAccount, m.Asset, m.BidLocked)
			return err
		}

		m.BidLocked = new(uint256.Int)
		m.AskLocked = new(uint256.Int)
		m.Status = domain.MatchStatusCancelled

		t.emit(domain.Event{
			Type:    domain.EventMatchCancelled,
			MatchID: matchID,
			Actor:   caller,
			Parties: []common.Address{m.Bidder, m.Asker},
			Asset:   m.Asset,
			Amount:  total,
		})
		return nil
	})
}

// GetMatch returns a copy of the match.
func (l *Ledger) GetMatch(id common.Hash) (*domain.Match, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, err := l.matches.Get(id)
	if err != nil {
		return nil, err
	}
	return m.Clone(), nil
}

// GetEscrowBalance returns what party currently has locked in the match.
func (l *Ledger) GetEscrowBalance(matchID common.Hash, party common.Address) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, err := l.matches.Get(matchID)
	if err != nil {
		return nil, err
	}
	return m.LockedBy(party), nil
}

// PartyMatches returns copies of the matches addr is a party to.
func (l *Ledger) PartyMatches(addr common.Address) []*domain.Match {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := l.matches.ListByParty(addr)
	out := make([]*domain.Match, len(all))
	for i, m := range all {
		out[i] = m.Clone()
	}
	return out
}
