package store

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
)

func TestMatchStore_CreateGetAndParties(t *testing.T) {
	s := NewMatchStore()
	bidder := common.HexToAddress("0xb1")
	asker := common.HexToAddress("0xa1")
	m := &domain.Match{
		MatchID:    common.HexToHash("0x01"),
		Bidder:     bidder,
		Asker:      asker,
		MatchPrice: uint256.NewInt(10050),
		Status:     domain.MatchStatusPending,
	}

	if err := s.Create(m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Create(m); err != domain.ErrMatchAlreadyExists {
		t.Fatalf("expected ErrMatchAlreadyExists, got %v", err)
	}

	got, err := s.Get(m.MatchID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MatchPrice.Uint64() != 10050 {
		t.Fatalf("expected price 10050, got %s", got.MatchPrice.Dec())
	}
	if len(s.ListByParty(bidder)) != 1 || len(s.ListByParty(asker)) != 1 {
		t.Fatal("expected the match in both party indexes")
	}
	if _, err := s.Get(common.HexToHash("0x02")); err != domain.ErrMatchNotFound {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestMatchStore_SelfMatchIndexedOnce(t *testing.T) {
	s := NewMatchStore()
	a := common.HexToAddress("0xaa")
	_ = s.Create(&domain.Match{MatchID: common.HexToHash("0x01"), Bidder: a, Asker: a})

	if n := len(s.ListByParty(a)); n != 1 {
		t.Fatalf("expected 1 match for self-match party, got %d", n)
	}
}
