package engine

import (
	"sort"
	"time"

	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
)

// BookSnapshot is the resting state of one book at the end of a cycle.
// Spread is nil unless both sides are present.
type BookSnapshot struct {
	Asset    string
	CycleID  string
	TakenAt  time.Time
	Bids     []PriceLevel
	Asks     []PriceLevel
	BidCount int
	AskCount int
	BestBid  *uint256.Int
	BestAsk  *uint256.Int
	Spread   *uint256.Int
}

func snapshotOf(book *OrderBook, depth int, cycleID string, at time.Time) BookSnapshot {
	s := BookSnapshot{
		Asset:    book.Asset(),
		CycleID:  cycleID,
		TakenAt:  at,
		Bids:     book.TopBids(depth),
		Asks:     book.TopAsks(depth),
		BidCount: book.BidCount(),
		AskCount: book.AskCount(),
	}
	if bid, ok := book.BestBid(); ok {
		s.BestBid = bid.Price.Clone()
	}
	if ask, ok := book.BestAsk(); ok {
		s.BestAsk = ask.Price.Clone()
	}
	// The residual book is uncrossed unless the cycle stopped at the cap.
	if s.BestBid != nil && s.BestAsk != nil && s.BestAsk.Gt(s.BestBid) {
		s.Spread = new(uint256.Int).Sub(s.BestAsk, s.BestBid)
	}
	return s
}

// publish replaces the stored snapshots with the residual books of a
// finished cycle. Assets without quotes this cycle disappear.
func (e *Engine) publish(books *BookSet, report *CycleReport) {
	at := time.Now()
	next := make(map[string]BookSnapshot, len(books.books))
	for _, asset := range books.Assets() {
		book := books.GetOrCreate(asset)
		next[asset] = snapshotOf(book, e.cfg.SnapshotDepth, report.CycleID, at)
		e.metrics.SetBookDepth(asset, domain.SideBid, book.BidCount())
		e.metrics.SetBookDepth(asset, domain.SideAsk, book.AskCount())
	}
	e.metrics.ObserveCycle(report.Duration, report.CapHit)

	r := *report
	e.mu.Lock()
	e.snapshots = next
	e.lastReport = &r
	e.mu.Unlock()
}

// Snapshot returns the last snapshot of asset's book.
func (e *Engine) Snapshot(asset string) (BookSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.snapshots[asset]
	return s, ok
}

// Snapshots returns the last snapshot of every book, ordered by asset.
func (e *Engine) Snapshots() []BookSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]BookSnapshot, 0, len(e.snapshots))
	for _, s := range e.snapshots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

// LastReport returns the report of the last completed cycle.
func (e *Engine) LastReport() (CycleReport, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.lastReport == nil {
		return CycleReport{}, false
	}
	return *e.lastReport, true
}
