package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
	"github.com/efreitasn/arcclear/internal/engine"
)

// BookReader exposes what the matching engine observed in its last cycle.
type BookReader interface {
	Snapshot(asset string) (engine.BookSnapshot, bool)
	Snapshots() []engine.BookSnapshot
	LastReport() (engine.CycleReport, bool)
	State() engine.State
}

// BookHandler handles order book and engine endpoints.
type BookHandler struct {
	books BookReader
	fmt   formatter
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(books BookReader, assets *domain.AssetRegistry) *BookHandler {
	return &BookHandler{books: books, fmt: formatter{assets}}
}

type priceLevelResponse struct {
	Price       string `json:"price"`
	Quantity    uint64 `json:"quantity"`
	IntentCount int    `json:"intent_count"`
}

type bookResponse struct {
	Asset    string               `json:"asset"`
	CycleID  string               `json:"cycle_id"`
	TakenAt  string               `json:"taken_at"`
	Bids     []priceLevelResponse `json:"bids"`
	Asks     []priceLevelResponse `json:"asks"`
	BidCount int                  `json:"bid_count"`
	AskCount int                  `json:"ask_count"`
	BestBid  *string              `json:"best_bid"`
	BestAsk  *string              `json:"best_ask"`
	Spread   *string              `json:"spread"`
}

type bookListResponse struct {
	Books []bookResponse `json:"books"`
}

type proposalResponse struct {
	MatchID     string `json:"match_id"`
	Asset       string `json:"asset"`
	BidIntentID string `json:"bid_intent_id"`
	AskIntentID string `json:"ask_intent_id"`
	Price       string `json:"price"`
	Quantity    uint64 `json:"quantity"`
}

type reportResponse struct {
	State      string             `json:"state"`
	CycleID    string             `json:"cycle_id"`
	StartedAt  string             `json:"started_at"`
	DurationMs int64              `json:"duration_ms"`
	Scanned    int                `json:"scanned"`
	Admitted   int                `json:"admitted"`
	Iterations int                `json:"iterations"`
	Created    int                `json:"created"`
	LostRaces  int                `json:"lost_races"`
	Rejected   int                `json:"rejected"`
	Stale      int                `json:"stale"`
	CapHit     bool               `json:"cap_hit"`
	Matches    []proposalResponse `json:"matches"`
}

func (f formatter) optional(asset string, v *uint256.Int) *string {
	if v == nil {
		return nil
	}
	s := f.amount(asset, v)
	return &s
}

func (f formatter) levels(asset string, levels []engine.PriceLevel) []priceLevelResponse {
	out := make([]priceLevelResponse, len(levels))
	for i, l := range levels {
		out[i] = priceLevelResponse{
			Price:       f.amount(asset, l.Price),
			Quantity:    l.TotalQuantity,
			IntentCount: l.IntentCount,
		}
	}
	return out
}

func (f formatter) book(s engine.BookSnapshot) bookResponse {
	return bookResponse{
		Asset:    s.Asset,
		CycleID:  s.CycleID,
		TakenAt:  s.TakenAt.UTC().Format(time.RFC3339),
		Bids:     f.levels(s.Asset, s.Bids),
		Asks:     f.levels(s.Asset, s.Asks),
		BidCount: s.BidCount,
		AskCount: s.AskCount,
		BestBid:  f.optional(s.Asset, s.BestBid),
		BestAsk:  f.optional(s.Asset, s.BestAsk),
		Spread:   f.optional(s.Asset, s.Spread),
	}
}

// List handles GET /books.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	snaps := h.books.Snapshots()
	resp := bookListResponse{Books: make([]bookResponse, len(snaps))}
	for i, s := range snaps {
		resp.Books[i] = h.fmt.book(s)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /books/{asset}. An asset with no resting quotes returns
// an empty book.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")
	if _, err := h.fmt.assets.Get(asset); err != nil {
		writeDomainError(w, err)
		return
	}
	s, ok := h.books.Snapshot(asset)
	if !ok {
		s = engine.BookSnapshot{Asset: asset}
		if report, ok := h.books.LastReport(); ok {
			s.CycleID = report.CycleID
			s.TakenAt = report.StartedAt.Add(report.Duration)
		}
	}
	WriteJSON(w, http.StatusOK, h.fmt.book(s))
}

// Report handles GET /engine/report.
func (h *BookHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, ok := h.books.LastReport()
	if !ok {
		WriteError(w, http.StatusNotFound, "no_cycle", "the engine has not completed a cycle yet")
		return
	}
	resp := reportResponse{
		State:      h.books.State().String(),
		CycleID:    report.CycleID,
		StartedAt:  report.StartedAt.UTC().Format(time.RFC3339),
		DurationMs: report.Duration.Milliseconds(),
		Scanned:    report.Scanned,
		Admitted:   report.Admitted,
		Iterations: report.Iterations,
		Created:    report.Created,
		LostRaces:  report.LostRaces,
		Rejected:   report.Rejected,
		Stale:      report.Stale,
		CapHit:     report.CapHit,
		Matches:    make([]proposalResponse, len(report.Matches)),
	}
	for i, p := range report.Matches {
		resp.Matches[i] = proposalResponse{
			MatchID:     p.MatchID.Hex(),
			Asset:       p.Asset,
			BidIntentID: p.BidIntentID.Hex(),
			AskIntentID: p.AskIntentID.Hex(),
			Price:       h.fmt.amount(p.Asset, p.Price),
			Quantity:    p.Quantity,
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}
