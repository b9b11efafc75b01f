package ledger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
)

type recordingObserver struct {
	mu   sync.Mutex
	ops  []string
	errs []error
}

func (o *recordingObserver) ObserveTx(op string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	o.errs = append(o.errs, err)
}

func TestEvents_JournalOrder(t *testing.T) {
	l, _ := newTestLedger()
	id := createTestMatch(t, l, 100)

	events := l.Events(0)
	want := []domain.EventType{
		domain.EventIntentRegistered,
		domain.EventIntentRegistered,
		domain.EventIntentMatched,
		domain.EventIntentMatched,
		domain.EventMatchCreated,
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, e := range events {
		if e.Type != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], e.Type)
		}
		if e.Seq != uint64(i+1) {
			t.Fatalf("event %d: expected seq %d, got %d", i, i+1, e.Seq)
		}
		if e.Time != genesisTime {
			t.Fatalf("event %d: expected time %d, got %d", i, genesisTime, e.Time)
		}
	}
	if events[4].MatchID != id {
		t.Fatal("match event carries the wrong match id")
	}

	tail := l.Events(3)
	if len(tail) != 2 || tail[0].Seq != 4 {
		t.Fatalf("expected replay from seq 4, got %+v", tail)
	}
	if len(l.Events(100)) != 0 {
		t.Fatal("expected empty replay past the journal end")
	}
}

func TestEvents_FailedTransactionEmitsNothing(t *testing.T) {
	l, _ := newTestLedger()
	_, _ = l.CreateMatch(owner, common.Hash{1}, common.Hash{2}, uint256.NewInt(1))
	_ = l.AuthorizeOracle(stranger, stranger)

	if n := len(l.Events(0)); n != 0 {
		t.Fatalf("expected no events, got %d", n)
	}
}

func TestSubscribeEvents(t *testing.T) {
	l, _ := newTestLedger()
	ch := make(chan domain.Event, 16)
	sub := l.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	id := registerTestIntent(t, l, bidder, "bid")

	select {
	case e := <-ch:
		if e.Type != domain.EventIntentRegistered || e.IntentID != id || e.Seq != 1 {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestTxObserver(t *testing.T) {
	obs := &recordingObserver{}
	l, err := New(Config{Owner: owner}, NewManualClock(genesisTime), obs)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	_ = l.AuthorizeOracle(owner, oracle)
	_ = l.AuthorizeOracle(stranger, oracle)

	if len(obs.ops) != 2 || obs.ops[0] != "authorize_oracle" {
		t.Fatalf("unexpected observed ops %v", obs.ops)
	}
	if obs.errs[0] != nil || obs.errs[1] != domain.ErrUnauthorized {
		t.Fatalf("unexpected observed errors %v", obs.errs)
	}
}

func TestNow_Monotonic(t *testing.T) {
	l, clock := newTestLedger()
	clock.Advance(10)
	if l.Now() != genesisTime+10 {
		t.Fatalf("expected %d, got %d", genesisTime+10, l.Now())
	}
	clock.Set(genesisTime)
	if l.Now() != genesisTime+10 {
		t.Fatal("ledger time moved backwards")
	}
}

func TestTransfer(t *testing.T) {
	l, _ := newTestLedger()

	if err := l.Transfer(bidder, stranger, testAsset, uint256.NewInt(400)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance(l, stranger) != 400 || balance(l, bidder) != 999_600 {
		t.Fatalf("unexpected balances stranger=%d bidder=%d", balance(l, stranger), balance(l, bidder))
	}
	if err := l.Transfer(stranger, bidder, testAsset, uint256.NewInt(401)); err != domain.ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := l.Transfer(bidder, stranger, testAsset, uint256.NewInt(0)); err != domain.ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := l.Transfer(bidder, EscrowAccount, testAsset, uint256.NewInt(1)); err != domain.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized paying into custody, got %v", err)
	}
}

func TestNew_AllocationOverflow(t *testing.T) {
	full := new(uint256.Int).SetAllOne()
	_, err := New(Config{
		Owner: owner,
		Allocations: []Allocation{
			{Account: bidder, Asset: testAsset, Amount: full},
			{Account: bidder, Asset: testAsset, Amount: uint256.NewInt(1)},
		},
	}, NewManualClock(genesisTime), nil)
	if !errors.Is(err, domain.ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}
}

func TestTransfer_OverflowingReceiverLeavesNoTrace(t *testing.T) {
	full := new(uint256.Int).SetAllOne()
	l, err := New(Config{
		Owner: owner,
		Allocations: []Allocation{
			{Account: bidder, Asset: testAsset, Amount: uint256.NewInt(10)},
			{Account: stranger, Asset: testAsset, Amount: full},
		},
	}, NewManualClock(genesisTime), nil)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	before := len(l.Events(0))

	if err := l.Transfer(bidder, stranger, testAsset, uint256.NewInt(10)); !errors.Is(err, domain.ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}
	if balance(l, bidder) != 10 {
		t.Fatalf("sender balance = %d, want 10", balance(l, bidder))
	}
	if got := l.BalanceOf(stranger, testAsset); !got.Eq(full) {
		t.Fatalf("receiver balance changed to %s", got.Dec())
	}
	if len(l.Events(0)) != before {
		t.Fatal("failed transfer emitted events")
	}
}

func TestCreateMatch_ConcurrentRace(t *testing.T) {
	l, _ := newTestLedger()
	bid := registerTestIntent(t, l, bidder, "bid")
	var asks []common.Hash
	for i := 0; i < 20; i++ {
		asks = append(asks, registerTestIntent(t, l, asker, string(rune('a'+i))))
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for _, ask := range asks {
		wg.Add(1)
		go func(ask common.Hash) {
			defer wg.Done()
			_, err := l.CreateMatch(owner, bid, ask, uint256.NewInt(100))
			if err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			} else if err != domain.ErrInvalidIntents {
				t.Errorf("unexpected error: %v", err)
			}
		}(ask)
	}
	wg.Wait()

	if won != 1 {
		t.Fatalf("expected exactly one match for the shared bid, got %d", won)
	}
}
