package index

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/efreitasn/arcclear/internal/domain"
)

// EventSource is the part of the ledger a projector follows.
type EventSource interface {
	SubscribeEvents(ch chan<- domain.Event) event.Subscription
	Events(after uint64) []domain.Event
}

const defaultRetryInterval = time.Second

// Projector removes quotes from an Index once the ledger reports their
// intent cancelled or matched. Quotes themselves are written by the
// submission path, since payloads never reach the ledger.
//
// A delete that fails is kept and retried every retryInterval until the
// index accepts it.
type Projector struct {
	src           EventSource
	idx           Index
	logger        *slog.Logger
	retryInterval time.Duration
	applied       atomic.Uint64

	mu      sync.Mutex
	pending map[common.Hash]struct{}
}

// NewProjector creates a Projector.
func NewProjector(src EventSource, idx Index, logger *slog.Logger) *Projector {
	return &Projector{
		src:           src,
		idx:           idx,
		logger:        logger,
		retryInterval: defaultRetryInterval,
		pending:       make(map[common.Hash]struct{}),
	}
}

// Pending returns the number of deletes waiting to be retried.
func (p *Projector) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Applied returns the sequence number of the last event applied.
func (p *Projector) Applied() uint64 {
	return p.applied.Load()
}

// Run replays the journal and then follows new events until ctx is
// cancelled or the subscription fails.
func (p *Projector) Run(ctx context.Context) error {
	ch := make(chan domain.Event, 256)
	sub := p.src.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	// Subscribing first means nothing committed during the replay is lost;
	// duplicates are skipped by sequence number.
	for _, e := range p.src.Events(p.applied.Load()) {
		p.apply(ctx, e)
	}

	p.logger.Info("index projector started", slog.Uint64("seq", p.applied.Load()))
	retry := time.NewTicker(p.retryInterval)
	defer retry.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case <-retry.C:
			p.retryPending(ctx)
		case e := <-ch:
			if e.Seq <= p.applied.Load() {
				continue
			}
			p.apply(ctx, e)
		}
	}
}

func (p *Projector) apply(ctx context.Context, e domain.Event) {
	switch e.Type {
	case domain.EventIntentCancelled, domain.EventIntentMatched:
		p.delete(ctx, e.IntentID)
	}
	p.applied.Store(e.Seq)
}

func (p *Projector) delete(ctx context.Context, id common.Hash) {
	err := p.idx.Delete(ctx, id)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.pending[id] = struct{}{}
		p.logger.Warn("index delete failed, will retry",
			slog.String("intent_id", id.Hex()),
			slog.String("error", err.Error()),
		)
		return
	}
	delete(p.pending, id)
}

func (p *Projector) retryPending(ctx context.Context) {
	p.mu.Lock()
	ids := make([]common.Hash, 0, len(p.pending))
	for id := range p.pending {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		p.delete(ctx, id)
	}
}
