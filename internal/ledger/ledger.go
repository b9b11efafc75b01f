// Package ledger emulates the on-ledger half of the system: the intent
// registry, the payment verifier and the escrow state machine, plus a
// small bank holding per-asset balances.
//
// Every state-changing call runs as one transaction under a single
// mutex. A transaction observes one block time, either commits all of its
// writes or none, and its events are journaled and published only after
// the lock is released.
package ledger

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
	"github.com/efreitasn/arcclear/internal/store"
)

// Config is the genesis state of a ledger.
type Config struct {
	Owner common.Address

	SettlementTimeout uint64 // seconds from match creation until it may be cancelled
	DisputeWindow     uint64 // seconds from match creation during which parties may dispute

	Oracles     []common.Address
	Matchers    []common.Address
	Mandates    []MandateGrant
	Allocations []Allocation
}

// MandateGrant is a mandate registered at genesis.
type MandateGrant struct {
	Ref        common.Hash
	ValidUntil uint64
}

// Allocation credits an account at genesis.
type Allocation struct {
	Account common.Address
	Asset   string
	Amount  *uint256.Int
}

// TxObserver is told about every finished transaction. op is the
// operation name and err its result.
type TxObserver interface {
	ObserveTx(op string, err error)
}

// Ledger is the in-process ledger. It is safe for concurrent use.
type Ledger struct {
	mu sync.RWMutex

	clock    Clock
	lastTime atomic.Uint64

	settlementTimeout uint64
	disputeWindow     uint64

	intents       *store.IntentStore
	matches       *store.MatchStore
	verifications *store.VerificationStore
	balances      *store.BalanceStore
	access        *Access

	consumed  map[common.Hash]common.Hash // payment ref → match that consumed it
	intentSeq uint64

	journal []domain.Event

	// pubMu keeps feed delivery in journal order. It is taken before mu
	// is released so that two transactions cannot publish out of order.
	pubMu sync.Mutex
	feed  event.Feed

	obs TxObserver
}

// New creates a ledger from its genesis configuration. obs may be nil.
// It fails if the allocations of one asset overflow a balance.
func New(cfg Config, clock Clock, obs TxObserver) (*Ledger, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	l := &Ledger{
		clock:             clock,
		settlementTimeout: cfg.SettlementTimeout,
		disputeWindow:     cfg.DisputeWindow,
		intents:           store.NewIntentStore(),
		matches:           store.NewMatchStore(),
		verifications:     store.NewVerificationStore(),
		balances:          store.NewBalanceStore(),
		access:            newAccess(cfg.Owner),
		consumed:          make(map[common.Hash]common.Hash),
		obs:               obs,
	}

	now := l.now()
	for _, o := range cfg.Oracles {
		l.access.oracles[o] = struct{}{}
	}
	for _, m := range cfg.Matchers {
		l.access.matchers[m] = struct{}{}
	}
	for _, m := range cfg.Mandates {
		l.access.mandates[m.Ref] = &domain.Mandate{Ref: m.Ref, RegisteredAt: now, ValidUntil: m.ValidUntil}
	}
	for _, a := range cfg.Allocations {
		if a.Amount == nil {
			continue
		}
		if err := l.balances.Credit(a.Account, a.Asset, a.Amount); err != nil {
			return nil, fmt.Errorf("genesis allocation of %s to %s: %w", a.Asset, a.Account.Hex(), err)
		}
	}
	return l, nil
}

// tx is the context of one running transaction.
type tx struct {
	now    uint64
	events []domain.Event
}

func (t *tx) emit(e domain.Event) {
	e.Time = t.now
	t.events = append(t.events, e)
}

// now returns the ledger time, which never moves backwards even if the
// clock does.
func (l *Ledger) now() uint64 {
	t := l.clock.Now()
	for {
		last := l.lastTime.Load()
		if t <= last {
			return last
		}
		if l.lastTime.CompareAndSwap(last, t) {
			return t
		}
	}
}

// Now returns the current ledger time.
func (l *Ledger) Now() uint64 {
	return l.now()
}

// transact runs fn as one transaction. fn must check everything that can
// fail before it writes, so that an error leaves no trace.
func (l *Ledger) transact(op string, fn func(t *tx) error) error {
	l.mu.Lock()
	t := &tx{now: l.now()}
	err := fn(t)

	var published []domain.Event
	if err == nil {
		for i := range t.events {
			t.events[i].Seq = uint64(len(l.journal)) + 1
			l.journal = append(l.journal, t.events[i])
		}
		published = t.events
	}

	l.pubMu.Lock()
	l.mu.Unlock()
	for _, e := range published {
		l.feed.Send(e)
	}
	l.pubMu.Unlock()

	if l.obs != nil {
		l.obs.ObserveTx(op, err)
	}
	return err
}

// SubscribeEvents delivers every event committed after the call to ch.
// Delivery blocks the publishing transaction's caller until ch accepts,
// so subscribers should buffer and must not write to the ledger from the
// goroutine that receives.
func (l *Ledger) SubscribeEvents(ch chan<- domain.Event) event.Subscription {
	return l.feed.Subscribe(ch)
}

// Events returns the journaled events with a sequence number greater than
// after, in order.
func (l *Ledger) Events(after uint64) []domain.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if after >= uint64(len(l.journal)) {
		return []domain.Event{}
	}
	out := make([]domain.Event, len(l.journal)-int(after))
	copy(out, l.journal[after:])
	return out
}
