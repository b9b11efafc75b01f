package engine

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
)

const baseTime = uint64(1_700_000_000)

// makeIntent creates a resting intent whose id is the given label.
func makeIntent(side domain.Side, price, createdAt uint64, label string, remaining uint64) *RestingIntent {
	var id common.Hash
	copy(id[:], label)
	return &RestingIntent{
		IntentID:  id,
		Side:      side,
		Asset:     "USDC",
		Price:     uint256.NewInt(price),
		CreatedAt: createdAt,
		Quantity:  remaining,
		Remaining: remaining,
	}
}

func entryOf(ri *RestingIntent) BookEntry {
	return BookEntry{Price: ri.Price, CreatedAt: ri.CreatedAt, IntentID: ri.IntentID, Intent: ri}
}

func idOf(label string) common.Hash {
	var id common.Hash
	copy(id[:], label)
	return id
}

func TestBidLess_PriceDescending(t *testing.T) {
	a := entryOf(makeIntent(domain.SideBid, 200, baseTime, "a", 1))
	b := entryOf(makeIntent(domain.SideBid, 100, baseTime, "b", 1))
	if !bidLess(a, b) {
		t.Error("expected higher price to be less on bid side")
	}
	if bidLess(b, a) {
		t.Error("expected lower price to not be less on bid side")
	}
}

func TestBidLess_TimeAscending(t *testing.T) {
	a := entryOf(makeIntent(domain.SideBid, 100, baseTime, "a", 1))
	b := entryOf(makeIntent(domain.SideBid, 100, baseTime+1, "b", 1))
	if !bidLess(a, b) {
		t.Error("expected earlier time to be less on bid side at same price")
	}
	if bidLess(b, a) {
		t.Error("expected later time to not be less on bid side at same price")
	}
}

func TestBidLess_IntentIDAscending(t *testing.T) {
	a := entryOf(makeIntent(domain.SideBid, 100, baseTime, "a", 1))
	b := entryOf(makeIntent(domain.SideBid, 100, baseTime, "b", 1))
	if !bidLess(a, b) {
		t.Error("expected smaller intent_id to be less on bid side at same price and time")
	}
}

func TestAskLess_PriceAscending(t *testing.T) {
	a := entryOf(makeIntent(domain.SideAsk, 100, baseTime, "a", 1))
	b := entryOf(makeIntent(domain.SideAsk, 200, baseTime, "b", 1))
	if !askLess(a, b) {
		t.Error("expected lower price to be less on ask side")
	}
	if askLess(b, a) {
		t.Error("expected higher price to not be less on ask side")
	}
}

func TestAskLess_TimeThenID(t *testing.T) {
	a := entryOf(makeIntent(domain.SideAsk, 100, baseTime, "b", 1))
	b := entryOf(makeIntent(domain.SideAsk, 100, baseTime+1, "a", 1))
	if !askLess(a, b) {
		t.Error("expected earlier time to win over smaller id on ask side")
	}
	c := entryOf(makeIntent(domain.SideAsk, 100, baseTime, "a", 1))
	if !askLess(c, a) {
		t.Error("expected smaller intent_id to be less at same price and time")
	}
}

func TestOrderBook_BestBidAndAsk(t *testing.T) {
	ob := NewOrderBook("USDC")
	ob.Insert(makeIntent(domain.SideBid, 100, baseTime, "b1", 10))
	ob.Insert(makeIntent(domain.SideBid, 200, baseTime, "b2", 5))
	ob.Insert(makeIntent(domain.SideAsk, 300, baseTime, "a1", 10))
	ob.Insert(makeIntent(domain.SideAsk, 250, baseTime, "a2", 5))

	bid, ok := ob.BestBid()
	if !ok || bid.IntentID != idOf("b2") {
		t.Fatalf("expected best bid b2, got %+v", bid)
	}
	ask, ok := ob.BestAsk()
	if !ok || ask.IntentID != idOf("a2") {
		t.Fatalf("expected best ask a2, got %+v", ask)
	}
	if ob.Crossed() {
		t.Fatal("book with bid 200 and ask 250 must not be crossed")
	}

	ob.Insert(makeIntent(domain.SideBid, 250, baseTime, "b3", 1))
	if !ob.Crossed() {
		t.Fatal("equal best prices must cross")
	}
}

func TestOrderBook_Empty(t *testing.T) {
	ob := NewOrderBook("USDC")
	if _, ok := ob.BestBid(); ok {
		t.Error("expected no best bid on empty book")
	}
	if _, ok := ob.BestAsk(); ok {
		t.Error("expected no best ask on empty book")
	}
	if ob.Crossed() {
		t.Error("empty book must not be crossed")
	}
}

func TestOrderBook_Remove(t *testing.T) {
	ob := NewOrderBook("USDC")
	ob.Insert(makeIntent(domain.SideBid, 100, baseTime, "b1", 10))
	ob.Insert(makeIntent(domain.SideBid, 200, baseTime, "b2", 5))
	ob.Insert(makeIntent(domain.SideAsk, 300, baseTime, "a1", 5))

	ob.Remove(idOf("b2"))
	best, ok := ob.BestBid()
	if !ok || best.IntentID != idOf("b1") {
		t.Fatalf("expected best bid b1 after removing b2, got %+v", best)
	}
	ob.Remove(idOf("a1"))
	if ob.BidCount() != 1 || ob.AskCount() != 0 {
		t.Fatalf("unexpected counts bids=%d asks=%d", ob.BidCount(), ob.AskCount())
	}
	ob.Remove(idOf("missing")) // should not panic
}

func TestOrderBook_TopBids(t *testing.T) {
	ob := NewOrderBook("USDC")
	// 3 bids at 2 price levels: 200 (2 intents) and 100 (1 intent).
	ob.Insert(makeIntent(domain.SideBid, 200, baseTime, "b1", 10))
	ob.Insert(makeIntent(domain.SideBid, 200, baseTime+1, "b2", 5))
	ob.Insert(makeIntent(domain.SideBid, 100, baseTime, "b3", 20))

	levels := ob.TopBids(5)
	if len(levels) != 2 {
		t.Fatalf("expected 2 price levels, got %d", len(levels))
	}
	if levels[0].Price.Uint64() != 200 || levels[0].TotalQuantity != 15 || levels[0].IntentCount != 2 {
		t.Errorf("level 0: got price=%s qty=%d count=%d", levels[0].Price.Dec(), levels[0].TotalQuantity, levels[0].IntentCount)
	}
	if levels[1].Price.Uint64() != 100 || levels[1].TotalQuantity != 20 || levels[1].IntentCount != 1 {
		t.Errorf("level 1: got price=%s qty=%d count=%d", levels[1].Price.Dec(), levels[1].TotalQuantity, levels[1].IntentCount)
	}
}

func TestOrderBook_TopAsks_LimitN(t *testing.T) {
	ob := NewOrderBook("USDC")
	ob.Insert(makeIntent(domain.SideAsk, 300, baseTime, "a3", 1))
	ob.Insert(makeIntent(domain.SideAsk, 100, baseTime, "a1", 1))
	ob.Insert(makeIntent(domain.SideAsk, 200, baseTime, "a2", 1))

	levels := ob.TopAsks(2)
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(levels))
	}
	if levels[0].Price.Uint64() != 100 || levels[1].Price.Uint64() != 200 {
		t.Errorf("expected prices [100, 200], got [%s, %s]", levels[0].Price.Dec(), levels[1].Price.Dec())
	}
	if ob.TopAsks(0) != nil {
		t.Error("expected nil for n=0")
	}
}

func TestOrderBook_TopLevelsUseRemaining(t *testing.T) {
	ob := NewOrderBook("USDC")
	ri := makeIntent(domain.SideBid, 100, baseTime, "b1", 10)
	ob.Insert(ri)
	ri.Remaining = 4

	if got := ob.TopBids(1)[0].TotalQuantity; got != 4 {
		t.Fatalf("expected level quantity to follow the remaining quantity, got %d", got)
	}
}

func TestBookSet(t *testing.T) {
	bs := NewBookSet()
	usdc := bs.GetOrCreate("USDC")
	if usdc.Asset() != "USDC" {
		t.Fatalf("expected asset USDC, got %s", usdc.Asset())
	}
	if bs.GetOrCreate("USDC") != usdc {
		t.Error("expected same book instance for same asset")
	}
	bs.GetOrCreate("EURC")

	assets := bs.Assets()
	if len(assets) != 2 || assets[0] != "EURC" || assets[1] != "USDC" {
		t.Fatalf("expected sorted assets [EURC USDC], got %v", assets)
	}
}
