package ledger

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/efreitasn/arcclear/internal/domain"
)

// Access is the ledger's access configuration: the owner, the oracles
// allowed to record payment verifications, the matchers allowed to create
// matches and the registered mandates. It is only changed through the
// owner-gated operations below.
//
// An empty matcher set leaves CreateMatch open to any caller.
type Access struct {
	owner    common.Address
	oracles  map[common.Address]struct{}
	matchers map[common.Address]struct{}
	mandates map[common.Hash]*domain.Mandate
}

func newAccess(owner common.Address) *Access {
	return &Access{
		owner:    owner,
		oracles:  make(map[common.Address]struct{}),
		matchers: make(map[common.Address]struct{}),
		mandates: make(map[common.Hash]*domain.Mandate),
	}
}

func (a *Access) requireOwner(caller common.Address) error {
	if caller != a.owner {
		return domain.ErrUnauthorized
	}
	return nil
}

func (a *Access) isOracle(addr common.Address) bool {
	_, ok := a.oracles[addr]
	return ok
}

func (a *Access) mayMatch(caller common.Address) bool {
	if len(a.matchers) == 0 {
		return true
	}
	_, ok := a.matchers[caller]
	return ok
}

func (a *Access) mandateValid(ref common.Hash, now uint64) bool {
	m, ok := a.mandates[ref]
	return ok && m.IsValidAt(now)
}

// Owner returns the current owner.
func (l *Ledger) Owner() common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.access.owner
}

// TransferOwnership hands the access configuration to a new owner.
func (l *Ledger) TransferOwnership(caller, newOwner common.Address) error {
	return l.transact("transfer_ownership", func(t *tx) error {
		if err := l.access.requireOwner(caller); err != nil {
			return err
		}
		if newOwner == (common.Address{}) {
			return &domain.ValidationError{Message: "new owner must not be the zero address"}
		}
		l.access.owner = newOwner
		t.emit(domain.Event{Type: domain.EventOwnerChanged, Actor: newOwner, Parties: []common.Address{caller, newOwner}})
		return nil
	})
}

// AuthorizeOracle allows oracle to record payment verifications.
// Authorizing an oracle twice is a no-op.
func (l *Ledger) AuthorizeOracle(caller, oracle common.Address) error {
	return l.transact("authorize_oracle", func(t *tx) error {
		if err := l.access.requireOwner(caller); err != nil {
			return err
		}
		if l.access.isOracle(oracle) {
			return nil
		}
		l.access.oracles[oracle] = struct{}{}
		t.emit(domain.Event{Type: domain.EventOracleAuthorized, Actor: oracle})
		return nil
	})
}

// RevokeOracle withdraws an oracle's authorization.
func (l *Ledger) RevokeOracle(caller, oracle common.Address) error {
	return l.transact("revoke_oracle", func(t *tx) error {
		if err := l.access.requireOwner(caller); err != nil {
			return err
		}
		if !l.access.isOracle(oracle) {
			return domain.ErrOracleNotFound
		}
		delete(l.access.oracles, oracle)
		t.emit(domain.Event{Type: domain.EventOracleRevoked, Actor: oracle})
		return nil
	})
}

// AuthorizeMatcher allows matcher to create matches. Once one matcher is
// authorized, only authorized matchers may call CreateMatch.
func (l *Ledger) AuthorizeMatcher(caller, matcher common.Address) error {
	return l.transact("authorize_matcher", func(t *tx) error {
		if err := l.access.requireOwner(caller); err != nil {
			return err
		}
		if _, ok := l.access.matchers[matcher]; ok {
			return nil
		}
		l.access.matchers[matcher] = struct{}{}
		t.emit(domain.Event{Type: domain.EventMatcherAuthorized, Actor: matcher})
		return nil
	})
}

// RevokeMatcher withdraws a matcher's authorization. Revoking the last
// matcher opens CreateMatch to every caller again.
func (l *Ledger) RevokeMatcher(caller, matcher common.Address) error {
	return l.transact("revoke_matcher", func(t *tx) error {
		if err := l.access.requireOwner(caller); err != nil {
			return err
		}
		if _, ok := l.access.matchers[matcher]; !ok {
			return domain.ErrMatcherNotFound
		}
		delete(l.access.matchers, matcher)
		t.emit(domain.Event{Type: domain.EventMatcherRevoked, Actor: matcher})
		return nil
	})
}

// RegisterMandate registers a mandate, or replaces an existing one with
// the same ref. A zero validUntil never expires.
func (l *Ledger) RegisterMandate(caller common.Address, ref common.Hash, validUntil uint64) error {
	return l.transact("register_mandate", func(t *tx) error {
		if err := l.access.requireOwner(caller); err != nil {
			return err
		}
		if validUntil != 0 && validUntil <= t.now {
			return domain.ErrInvalidExpiry
		}
		l.access.mandates[ref] = &domain.Mandate{Ref: ref, RegisteredAt: t.now, ValidUntil: validUntil}
		t.emit(domain.Event{Type: domain.EventMandateRegistered, MandateRef: ref})
		return nil
	})
}

// RevokeMandate revokes a registered mandate. Revocation is permanent
// until the mandate is registered again.
func (l *Ledger) RevokeMandate(caller common.Address, ref common.Hash) error {
	return l.transact("revoke_mandate", func(t *tx) error {
		if err := l.access.requireOwner(caller); err != nil {
			return err
		}
		m, ok := l.access.mandates[ref]
		if !ok {
			return domain.ErrMandateNotFound
		}
		if m.Revoked {
			return nil
		}
		m.Revoked = true
		t.emit(domain.Event{Type: domain.EventMandateRevoked, MandateRef: ref})
		return nil
	})
}

// IsAuthorizedOracle reports whether addr may record verifications.
func (l *Ledger) IsAuthorizedOracle(addr common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.access.isOracle(addr)
}

// Oracles lists the authorized oracles in address order.
func (l *Ledger) Oracles() []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return sortedAddresses(l.access.oracles)
}

func sortedAddresses(set map[common.Address]struct{}) []common.Address {
	out := make([]common.Address, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// IsAuthorizedMatcher reports whether addr may create matches.
func (l *Ledger) IsAuthorizedMatcher(addr common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.access.mayMatch(addr)
}

// Matchers lists the authorized matchers in address order. An empty list
// means any caller may create matches.
func (l *Ledger) Matchers() []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return sortedAddresses(l.access.matchers)
}

// IsMandateValid reports whether the mandate is registered, not revoked
// and not expired.
func (l *Ledger) IsMandateValid(ref common.Hash) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.access.mandateValid(ref, l.now())
}

// GetMandate returns a copy of a registered mandate.
func (l *Ledger) GetMandate(ref common.Hash) (*domain.Mandate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.access.mandates[ref]
	if !ok {
		return nil, domain.ErrMandateNotFound
	}
	c := *m
	return &c, nil
}
