package store

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/efreitasn/arcclear/internal/domain"
)

func newTestIntent(seq uint64, actor common.Address) *domain.Intent {
	return &domain.Intent{
		IntentID:        domain.DeriveIntentID(common.HexToHash("0xc0"), actor, 1000, seq),
		Actor:           actor,
		CreatedAt:       1000,
		ValidUntil:      2000,
		SettlementAsset: "USDC",
		Active:          true,
	}
}

func TestIntentStore_Create_and_Get(t *testing.T) {
	s := NewIntentStore()
	i := newTestIntent(1, actorOne)

	if err := s.Create(i); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got, err := s.Get(i.IntentID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Actor != actorOne {
		t.Fatalf("expected actor %s, got %s", actorOne.Hex(), got.Actor.Hex())
	}
	if !s.Exists(i.IntentID) {
		t.Fatal("Exists = false after Create")
	}
}

func TestIntentStore_Create_Duplicate(t *testing.T) {
	s := NewIntentStore()
	i := newTestIntent(1, actorOne)
	_ = s.Create(i)

	if err := s.Create(i); err != domain.ErrDuplicateIntent {
		t.Fatalf("expected ErrDuplicateIntent, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 intent, got %d", s.Len())
	}
}

func TestIntentStore_Get_NotFound(t *testing.T) {
	s := NewIntentStore()

	if _, err := s.Get(common.HexToHash("0xdead")); err != domain.ErrIntentNotFound {
		t.Fatalf("expected ErrIntentNotFound, got %v", err)
	}
}

func TestIntentStore_ListByActor_InsertionOrder(t *testing.T) {
	s := NewIntentStore()
	other := common.HexToAddress("0xb2")
	var want []common.Hash
	for seq := uint64(1); seq <= 5; seq++ {
		i := newTestIntent(seq, actorOne)
		_ = s.Create(i)
		want = append(want, i.IntentID)
		_ = s.Create(newTestIntent(seq+100, other))
	}

	got := s.ListByActor(actorOne)
	if len(got) != len(want) {
		t.Fatalf("expected %d intents, got %d", len(want), len(got))
	}
	for idx := range want {
		if got[idx].IntentID != want[idx] {
			t.Fatalf("intent %d out of insertion order", idx)
		}
	}
	if len(s.ListByActor(common.HexToAddress("0xff"))) != 0 {
		t.Fatal("expected no intents for unknown actor")
	}
}

func TestIntentStore_ConcurrentCreate(t *testing.T) {
	s := NewIntentStore()
	var wg sync.WaitGroup
	for seq := uint64(0); seq < 100; seq++ {
		wg.Add(1)
		go func(seq uint64) {
			defer wg.Done()
			_ = s.Create(newTestIntent(seq, actorOne))
		}(seq)
	}
	wg.Wait()

	if s.Len() != 100 {
		t.Fatalf("expected 100 intents, got %d", s.Len())
	}
	if len(s.ListByActor(actorOne)) != 100 {
		t.Fatalf("expected 100 intents in actor index, got %d", len(s.ListByActor(actorOne)))
	}
}
