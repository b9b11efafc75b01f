package engine

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/btree"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
)

// RestingIntent is an admitted intent together with its payload and the
// quantity still unfilled in the current cycle.
type RestingIntent struct {
	IntentID  common.Hash
	Actor     common.Address
	Side      domain.Side
	Asset     string
	Price     *uint256.Int
	CreatedAt uint64
	Quantity  uint64
	Remaining uint64
}

// BookEntry is a single intent resting on the book.
type BookEntry struct {
	Price     *uint256.Int
	CreatedAt uint64
	IntentID  common.Hash
	Intent    *RestingIntent
}

// PriceLevel is an aggregated price level of a book.
type PriceLevel struct {
	Price         *uint256.Int
	TotalQuantity uint64
	IntentCount   int
}

// bidLess orders the bid side: price descending, then created_at
// ascending, then intent_id ascending. Min() is the best bid.
func bidLess(a, b BookEntry) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c > 0
	}
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return bytes.Compare(a.IntentID[:], b.IntentID[:]) < 0
}

// askLess orders the ask side: price ascending, then created_at
// ascending, then intent_id ascending. Min() is the best ask.
func askLess(a, b BookEntry) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c < 0
	}
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return bytes.Compare(a.IntentID[:], b.IntentID[:]) < 0
}

// OrderBook holds the bid and ask sides for one settlement asset. Books
// are rebuilt every cycle and owned by a single goroutine, so they carry
// no lock.
type OrderBook struct {
	asset string
	bids  *btree.BTreeG[BookEntry]
	asks  *btree.BTreeG[BookEntry]
	index map[common.Hash]BookEntry // intent_id → entry
}

// NewOrderBook creates an empty book for asset.
func NewOrderBook(asset string) *OrderBook {
	const degree = 32
	return &OrderBook{
		asset: asset,
		bids:  btree.NewG[BookEntry](degree, bidLess),
		asks:  btree.NewG[BookEntry](degree, askLess),
		index: make(map[common.Hash]BookEntry),
	}
}

// Asset returns the settlement asset of the book.
func (ob *OrderBook) Asset() string {
	return ob.asset
}

// Insert adds an intent to the side named by its payload.
func (ob *OrderBook) Insert(ri *RestingIntent) {
	entry := BookEntry{
		Price:     ri.Price,
		CreatedAt: ri.CreatedAt,
		IntentID:  ri.IntentID,
		Intent:    ri,
	}
	if ri.Side == domain.SideBid {
		ob.bids.ReplaceOrInsert(entry)
	} else {
		ob.asks.ReplaceOrInsert(entry)
	}
	ob.index[ri.IntentID] = entry
}

// Remove deletes an intent from the book by id.
func (ob *OrderBook) Remove(id common.Hash) {
	entry, ok := ob.index[id]
	if !ok {
		return
	}
	delete(ob.index, id)
	if entry.Intent.Side == domain.SideBid {
		ob.bids.Delete(entry)
	} else {
		ob.asks.Delete(entry)
	}
}

// BestBid returns the highest-priority bid.
func (ob *OrderBook) BestBid() (BookEntry, bool) {
	return ob.bids.Min()
}

// BestAsk returns the highest-priority ask.
func (ob *OrderBook) BestAsk() (BookEntry, bool) {
	return ob.asks.Min()
}

// Crossed reports whether the best bid is priced at or above the best ask.
func (ob *OrderBook) Crossed() bool {
	bid, ok := ob.bids.Min()
	if !ok {
		return false
	}
	ask, ok := ob.asks.Min()
	if !ok {
		return false
	}
	return !bid.Price.Lt(ask.Price)
}

// TopBids returns up to n aggregated levels of the bid side, best first.
func (ob *OrderBook) TopBids(n int) []PriceLevel {
	return topLevels(ob.bids, n)
}

// TopAsks returns up to n aggregated levels of the ask side, best first.
func (ob *OrderBook) TopAsks(n int) []PriceLevel {
	return topLevels(ob.asks, n)
}

func topLevels(tree *btree.BTreeG[BookEntry], n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	tree.Ascend(func(entry BookEntry) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price.Eq(entry.Price) {
			levels[len(levels)-1].TotalQuantity += entry.Intent.Remaining
			levels[len(levels)-1].IntentCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         entry.Price.Clone(),
			TotalQuantity: entry.Intent.Remaining,
			IntentCount:   1,
		})
		return true
	})
	return levels
}

// BidCount returns the number of bids on the book.
func (ob *OrderBook) BidCount() int {
	return ob.bids.Len()
}

// AskCount returns the number of asks on the book.
func (ob *OrderBook) AskCount() int {
	return ob.asks.Len()
}

// BookSet is the set of books built in one cycle, keyed by asset.
type BookSet struct {
	books map[string]*OrderBook
}

// NewBookSet creates an empty BookSet.
func NewBookSet() *BookSet {
	return &BookSet{books: make(map[string]*OrderBook)}
}

// GetOrCreate returns the book for asset, creating it if needed.
func (bs *BookSet) GetOrCreate(asset string) *OrderBook {
	book, ok := bs.books[asset]
	if !ok {
		book = NewOrderBook(asset)
		bs.books[asset] = book
	}
	return book
}

// Assets returns the assets with a book, in lexical order so that cycles
// are reproducible.
func (bs *BookSet) Assets() []string {
	out := make([]string, 0, len(bs.books))
	for a := range bs.books {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
