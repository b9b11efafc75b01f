package ledger

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/efreitasn/arcclear/internal/domain"
)

// RegisterIntent records a commitment to an off-ledger bid or ask on
// behalf of caller and returns its id.
func (l *Ledger) RegisterIntent(caller common.Address, committed common.Hash, validUntil uint64, mandateRef common.Hash, asset string) (common.Hash, error) {
	var id common.Hash
	err := l.transact("register_intent", func(t *tx) error {
		if validUntil <= t.now {
			return domain.ErrInvalidExpiry
		}
		if asset == "" {
			return domain.ErrAssetNotFound
		}

		seq := l.intentSeq + 1
		id = domain.DeriveIntentID(committed, caller, t.now, seq)
		err := l.intents.Create(&domain.Intent{
			IntentID:        id,
			CommittedHash:   committed,
			Actor:           caller,
			CreatedAt:       t.now,
			ValidUntil:      validUntil,
			MandateRef:      mandateRef,
			SettlementAsset: asset,
			Active:          true,
		})
		if err != nil {
			return err
		}
		l.intentSeq = seq

		t.emit(domain.Event{
			Type:       domain.EventIntentRegistered,
			IntentID:   id,
			Actor:      caller,
			MandateRef: mandateRef,
			Asset:      asset,
		})
		return nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	return id, nil
}

// CancelIntent deactivates one of the caller's intents.
func (l *Ledger) CancelIntent(caller common.Address, id common.Hash) error {
	return l.transact("cancel_intent", func(t *tx) error {
		i, err := l.intents.Get(id)
		if err != nil {
			return err
		}
		if i.Actor != caller {
			return domain.ErrUnauthorized
		}
		if !i.Active || i.Matched {
			return domain.ErrAlreadyInactive
		}
		i.Active = false

		t.emit(domain.Event{
			Type:     domain.EventIntentCancelled,
			IntentID: id,
			Actor:    caller,
			Asset:    i.SettlementAsset,
		})
		return nil
	})
}

// markMatched flags an intent as consumed by a match. Only escrow calls
// it, from inside the transaction that creates the match.
func (l *Ledger) markMatched(t *tx, id common.Hash) error {
	i, err := l.intents.Get(id)
	if err != nil {
		return err
	}
	if !i.Active || i.Matched {
		return domain.ErrNotActive
	}
	i.Matched = true

	t.emit(domain.Event{
		Type:     domain.EventIntentMatched,
		IntentID: id,
		Actor:    i.Actor,
		Asset:    i.SettlementAsset,
	})
	return nil
}

// IsValid reports whether the intent exists, is active, is unmatched and
// has not expired.
func (l *Ledger) IsValid(id common.Hash) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isValidLocked(id, l.now())
}

func (l *Ledger) isValidLocked(id common.Hash, now uint64) bool {
	i, err := l.intents.Get(id)
	if err != nil {
		return false
	}
	return i.IsValidAt(now)
}

// GetIntent returns a copy of the intent.
func (l *Ledger) GetIntent(id common.Hash) (*domain.Intent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, err := l.intents.Get(id)
	if err != nil {
		return nil, err
	}
	c := *i
	return &c, nil
}

// ActorIntents returns copies of the actor's intents in registration order.
func (l *Ledger) ActorIntents(actor common.Address) []*domain.Intent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := l.intents.ListByActor(actor)
	out := make([]*domain.Intent, len(all))
	for idx, i := range all {
		c := *i
		out[idx] = &c
	}
	return out
}
