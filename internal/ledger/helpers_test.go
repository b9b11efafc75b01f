package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
)

const (
	genesisTime       = uint64(1_700_000_000)
	settlementTimeout = uint64(3600)
	disputeWindow     = uint64(86400)
	testAsset         = "USDC"
)

var (
	owner    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	oracle   = common.HexToAddress("0x0000000000000000000000000000000000000002")
	bidder   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	asker    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000ff")

	mandate = crypto.Keccak256Hash([]byte("mandate-1"))
)

func newTestLedger() (*Ledger, *ManualClock) {
	clock := NewManualClock(genesisTime)
	l, err := New(Config{
		Owner:             owner,
		SettlementTimeout: settlementTimeout,
		DisputeWindow:     disputeWindow,
		Oracles:           []common.Address{oracle},
		Mandates:          []MandateGrant{{Ref: mandate}},
		Allocations: []Allocation{
			{Account: bidder, Asset: testAsset, Amount: uint256.NewInt(1_000_000)},
			{Account: asker, Asset: testAsset, Amount: uint256.NewInt(1_000_000)},
		},
	}, clock, nil)
	if err != nil {
		panic(err)
	}
	return l, clock
}

// registerTestIntent registers an intent for actor that expires in an hour.
func registerTestIntent(t *testing.T, l *Ledger, actor common.Address, label string) common.Hash {
	t.Helper()
	id, err := l.RegisterIntent(actor, crypto.Keccak256Hash([]byte(label)), l.Now()+3600, mandate, testAsset)
	if err != nil {
		t.Fatalf("register intent %s: %v", label, err)
	}
	return id
}

// createTestMatch registers a bid and an ask and matches them at price.
func createTestMatch(t *testing.T, l *Ledger, price uint64) common.Hash {
	t.Helper()
	bid := registerTestIntent(t, l, bidder, "bid")
	ask := registerTestIntent(t, l, asker, "ask")
	id, err := l.CreateMatch(owner, bid, ask, uint256.NewInt(price))
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	return id
}

func fundBoth(t *testing.T, l *Ledger, matchID common.Hash, amount uint64) {
	t.Helper()
	if err := l.FundEscrow(bidder, matchID, uint256.NewInt(amount)); err != nil {
		t.Fatalf("bidder fund: %v", err)
	}
	if err := l.FundEscrow(asker, matchID, uint256.NewInt(amount)); err != nil {
		t.Fatalf("asker fund: %v", err)
	}
}

func recordPayment(t *testing.T, l *Ledger, ref string, amount uint64) common.Hash {
	t.Helper()
	paymentRef := domain.PaymentRefOf(ref)
	if err := l.RecordVerification(oracle, paymentRef, uint256.NewInt(amount), bidder, asker, mandate); err != nil {
		t.Fatalf("record verification: %v", err)
	}
	return paymentRef
}

func balance(l *Ledger, account common.Address) uint64 {
	return l.BalanceOf(account, testAsset).Uint64()
}
