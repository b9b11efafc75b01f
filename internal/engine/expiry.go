package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/efreitasn/arcclear/internal/domain"
)

// IntentReader reads intents and ledger time.
type IntentReader interface {
	GetIntent(id common.Hash) (*domain.Intent, error)
	Now() uint64
}

// QuoteDeleter removes quotes from the index.
type QuoteDeleter interface {
	Delete(ctx context.Context, id common.Hash) error
}

// ExpiryNotifier is told about intents that expired while still open.
type ExpiryNotifier interface {
	DispatchIntentExpired(intent *domain.Intent)
}

type tracked struct {
	id         common.Hash
	validUntil uint64
}

// ExpiryManager tracks indexed intents sorted by valid_until and
// periodically removes the quotes of expired ones from the index, so the
// engine stops scanning them. The ledger already treats them as invalid;
// this only keeps the read model small and tells the owner.
type ExpiryManager struct {
	interval time.Duration
	ledger   IntentReader
	quotes   QuoteDeleter
	notifier ExpiryNotifier
	logger   *slog.Logger

	mu     sync.Mutex
	active []tracked // sorted by validUntil ASC
}

// NewExpiryManager creates an ExpiryManager. notifier may be nil.
func NewExpiryManager(interval time.Duration, l IntentReader, quotes QuoteDeleter, notifier ExpiryNotifier, logger *slog.Logger) *ExpiryManager {
	return &ExpiryManager{
		interval: interval,
		ledger:   l,
		quotes:   quotes,
		notifier: notifier,
		logger:   logger,
		active:   make([]tracked, 0),
	}
}

// Add starts tracking an intent.
func (e *ExpiryManager) Add(id common.Hash, validUntil uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := sort.Search(len(e.active), func(i int) bool {
		return e.active[i].validUntil > validUntil
	})
	e.active = append(e.active, tracked{})
	copy(e.active[i+1:], e.active[i:])
	e.active[i] = tracked{id: id, validUntil: validUntil}
}

// Run ticks at the configured interval until ctx is cancelled.
func (e *ExpiryManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.tick(ctx, e.ledger.Now())
		}
	}
}

// tick expires every tracked intent with valid_until <= now.
func (e *ExpiryManager) tick(ctx context.Context, now uint64) {
	e.mu.Lock()
	cutoff := 0
	for cutoff < len(e.active) && e.active[cutoff].validUntil <= now {
		cutoff++
	}
	due := make([]tracked, cutoff)
	copy(due, e.active[:cutoff])
	e.active = e.active[cutoff:]
	e.mu.Unlock()

	for _, t := range due {
		e.expire(ctx, t.id)
	}
}

func (e *ExpiryManager) expire(ctx context.Context, id common.Hash) {
	if err := e.quotes.Delete(ctx, id); err != nil {
		e.logger.Warn("expired quote not removed",
			slog.String("intent_id", id.Hex()),
			slog.String("error", err.Error()),
		)
	}

	intent, err := e.ledger.GetIntent(id)
	if err != nil {
		return
	}
	// Cancelled or matched intents were already handled by the projector.
	if !intent.Active || intent.Matched {
		return
	}
	e.logger.Info("intent expired", slog.String("intent_id", id.Hex()))
	if e.notifier != nil {
		e.notifier.DispatchIntentExpired(intent)
	}
}

// ActiveCount returns the number of tracked intents.
func (e *ExpiryManager) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}
