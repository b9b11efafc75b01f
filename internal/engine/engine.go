// Package engine runs the continuous double auction. Each cycle it loads
// every indexed quote whose intent the ledger still considers valid,
// rebuilds per-asset books and proposes matches for crossed pairs in
// price-time priority.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
	"github.com/efreitasn/arcclear/internal/index"
	"github.com/efreitasn/arcclear/internal/metrics"
)

// Ledger is the part of the ledger the engine reads and writes.
type Ledger interface {
	IsValid(id common.Hash) bool
	GetIntent(id common.Hash) (*domain.Intent, error)
	CreateMatch(caller common.Address, bidID, askID common.Hash, price *uint256.Int) (common.Hash, error)
}

// QuoteSource lists indexed quotes.
type QuoteSource interface {
	List(ctx context.Context) ([]index.Quote, error)
}

// State is the phase of the current cycle.
type State int32

const (
	StateIdle State = iota
	StateScanningIntents
	StateBuildingBooks
	StateMatching
	StateProposingMatches
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanningIntents:
		return "scanning_intents"
	case StateBuildingBooks:
		return "building_books"
	case StateMatching:
		return "matching"
	case StateProposingMatches:
		return "proposing_matches"
	}
	return "unknown"
}

// Config tunes an Engine.
type Config struct {
	Operator      common.Address // identity the engine submits matches as
	Interval      time.Duration
	IterationCap  int // eligible pairs examined per cycle
	SnapshotDepth int // price levels kept per side in book snapshots
}

// Proposal is a match the ledger accepted during a cycle.
type Proposal struct {
	MatchID      common.Hash
	Asset        string
	BidIntentID  common.Hash
	AskIntentID  common.Hash
	Bidder       common.Address
	Asker        common.Address
	BidPrice     *uint256.Int
	AskPrice     *uint256.Int
	Price        *uint256.Int
	Quantity     uint64
	BidRemaining uint64
	AskRemaining uint64
}

// CycleReport summarizes one cycle.
type CycleReport struct {
	CycleID    string
	StartedAt  time.Time
	Duration   time.Duration
	Scanned    int // quotes read from the index
	Admitted   int // quotes placed on a book
	Iterations int
	Created    int
	LostRaces  int
	Rejected   int
	Stale      int // legs dropped because the ledger no longer considers them valid
	CapHit     bool
	Matches    []Proposal
}

// Engine is the matching engine. RunCycle must not be called
// concurrently on the same Engine; run several engines instead.
type Engine struct {
	cfg     Config
	ledger  Ledger
	quotes  QuoteSource
	metrics *metrics.Registry
	logger  *slog.Logger

	state atomic.Int32

	mu         sync.RWMutex
	snapshots  map[string]BookSnapshot
	lastReport *CycleReport
}

// New creates an Engine. m and logger may be nil.
func New(cfg Config, l Ledger, quotes QuoteSource, m *metrics.Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.IterationCap <= 0 {
		cfg.IterationCap = 1000
	}
	if cfg.SnapshotDepth <= 0 {
		cfg.SnapshotDepth = 10
	}
	return &Engine{
		cfg:       cfg,
		ledger:    l,
		quotes:    quotes,
		metrics:   m,
		logger:    logger,
		snapshots: make(map[string]BookSnapshot),
	}
}

// State returns the phase the engine is in.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// Run cycles every Interval until ctx is cancelled. A failing cycle is
// logged and the next tick tries again.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := e.RunCycle(ctx); err != nil && ctx.Err() == nil {
				e.logger.Error("matching cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunCycle performs one full scan, build and match pass. The only error
// it returns is a failure to read the quote source; ledger rejections are
// counted in the report.
func (e *Engine) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{
		CycleID:   uuid.New().String(),
		StartedAt: time.Now(),
		Matches:   []Proposal{},
	}
	defer e.setState(StateIdle)

	e.setState(StateScanningIntents)
	admitted, err := e.scan(ctx, &report)
	if err != nil {
		return report, err
	}

	e.setState(StateBuildingBooks)
	books := NewBookSet()
	for _, ri := range admitted {
		books.GetOrCreate(ri.Asset).Insert(ri)
	}

	e.setState(StateMatching)
	for _, asset := range books.Assets() {
		if report.CapHit {
			break
		}
		e.matchBook(books.GetOrCreate(asset), &report)
	}

	report.Duration = time.Since(report.StartedAt)
	e.publish(books, &report)

	attrs := []any{
		slog.String("cycle_id", report.CycleID),
		slog.Int("scanned", report.Scanned),
		slog.Int("admitted", report.Admitted),
		slog.Int("created", report.Created),
		slog.Int("lost_races", report.LostRaces),
		slog.Int("rejected", report.Rejected),
		slog.Duration("duration", report.Duration),
	}
	if report.CapHit {
		e.logger.Warn("matching cycle hit iteration cap", append(attrs, slog.Int("cap", e.cfg.IterationCap))...)
	} else {
		e.logger.Debug("matching cycle done", attrs...)
	}
	return report, nil
}

// scan loads quotes and keeps those whose intent is valid and whose
// payload is the one the intent committed to.
func (e *Engine) scan(ctx context.Context, report *CycleReport) ([]*RestingIntent, error) {
	quotes, err := e.quotes.List(ctx)
	if err != nil {
		return nil, err
	}
	report.Scanned = len(quotes)

	admitted := make([]*RestingIntent, 0, len(quotes))
	for _, q := range quotes {
		if !e.ledger.IsValid(q.IntentID) {
			continue
		}
		intent, err := e.ledger.GetIntent(q.IntentID)
		if err != nil {
			continue
		}
		if reason := admissible(q, intent); reason != "" {
			e.logger.Debug("quote skipped",
				slog.String("intent_id", q.IntentID.Hex()),
				slog.String("reason", reason),
			)
			continue
		}
		admitted = append(admitted, &RestingIntent{
			IntentID:  q.IntentID,
			Actor:     intent.Actor,
			Side:      q.Payload.Side,
			Asset:     intent.SettlementAsset,
			Price:     q.Payload.Price.Clone(),
			CreatedAt: intent.CreatedAt,
			Quantity:  q.Payload.Quantity,
			Remaining: q.Payload.Quantity,
		})
	}
	report.Admitted = len(admitted)
	return admitted, nil
}

func admissible(q index.Quote, intent *domain.Intent) string {
	switch {
	case q.Payload.Side != domain.SideBid && q.Payload.Side != domain.SideAsk:
		return "unknown side"
	case q.Payload.Price == nil || q.Payload.Price.IsZero():
		return "zero price"
	case q.Payload.Quantity == 0:
		return "zero quantity"
	case q.Payload.Asset != intent.SettlementAsset:
		return "asset mismatch"
	case q.Payload.Commitment() != intent.CommittedHash:
		return "commitment mismatch"
	}
	return ""
}

// matchBook proposes matches on one book until it is uncrossed or the
// cycle's iteration cap is reached.
func (e *Engine) matchBook(book *OrderBook, report *CycleReport) {
	for book.Crossed() {
		if report.Iterations >= e.cfg.IterationCap {
			report.CapHit = true
			return
		}
		report.Iterations++

		bestBid, _ := book.BestBid()
		bestAsk, _ := book.BestAsk()
		bid, ask := bestBid.Intent, bestAsk.Intent

		// Another engine may have consumed either leg since the scan.
		if e.dropStale(book, bid, report) || e.dropStale(book, ask, report) {
			continue
		}

		price := settlementPrice(bid.Price, ask.Price)
		qty := minQuantity(bid.Remaining, ask.Remaining)

		e.setState(StateProposingMatches)
		matchID, err := e.ledger.CreateMatch(e.cfg.Operator, bid.IntentID, ask.IntentID, price)
		e.setState(StateMatching)

		if err != nil {
			e.handleProposalError(book, bid, ask, err, report)
			continue
		}

		bid.Remaining -= qty
		ask.Remaining -= qty
		report.Created++
		report.Matches = append(report.Matches, Proposal{
			MatchID:      matchID,
			Asset:        book.Asset(),
			BidIntentID:  bid.IntentID,
			AskIntentID:  ask.IntentID,
			Bidder:       bid.Actor,
			Asker:        ask.Actor,
			BidPrice:     bid.Price.Clone(),
			AskPrice:     ask.Price.Clone(),
			Price:        price,
			Quantity:     qty,
			BidRemaining: bid.Remaining,
			AskRemaining: ask.Remaining,
		})
		e.metrics.IncProposal("created")
		e.logger.Info("match created",
			slog.String("match_id", matchID.Hex()),
			slog.String("asset", book.Asset()),
			slog.String("price", price.Dec()),
			slog.Uint64("quantity", qty),
		)

		// A partial fill keeps its place; the ledger has flagged it matched,
		// so the next pass drops it as stale.
		if bid.Remaining == 0 {
			book.Remove(bid.IntentID)
		}
		if ask.Remaining == 0 {
			book.Remove(ask.IntentID)
		}
	}
}

func (e *Engine) dropStale(book *OrderBook, ri *RestingIntent, report *CycleReport) bool {
	if e.ledger.IsValid(ri.IntentID) {
		return false
	}
	book.Remove(ri.IntentID)
	report.Stale++
	e.metrics.IncProposal("stale")
	return true
}

func (e *Engine) handleProposalError(book *OrderBook, bid, ask *RestingIntent, err error, report *CycleReport) {
	attrs := []any{
		slog.String("bid_intent_id", bid.IntentID.Hex()),
		slog.String("ask_intent_id", ask.IntentID.Hex()),
		slog.String("error", err.Error()),
	}

	switch {
	case errors.Is(err, domain.ErrInvalidIntents), errors.Is(err, domain.ErrNotActive):
		report.LostRaces++
		e.metrics.IncProposal("lost_race")
		e.logger.Info("match lost to a competing proposal", attrs...)

		dropped := false
		for _, ri := range []*RestingIntent{bid, ask} {
			if !e.ledger.IsValid(ri.IntentID) {
				book.Remove(ri.IntentID)
				dropped = true
			}
		}
		if !dropped {
			book.Remove(bid.IntentID)
			book.Remove(ask.IntentID)
		}
	case errors.Is(err, domain.ErrMatchAlreadyExists):
		report.LostRaces++
		e.metrics.IncProposal("lost_race")
		e.logger.Info("match already proposed", attrs...)
		book.Remove(bid.IntentID)
		book.Remove(ask.IntentID)
	default:
		report.Rejected++
		e.metrics.IncProposal("rejected")
		e.logger.Warn("match proposal rejected", attrs...)
		book.Remove(bid.IntentID)
		book.Remove(ask.IntentID)
	}
}
