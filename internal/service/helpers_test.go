package service

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
	"github.com/efreitasn/arcclear/internal/index"
	"github.com/efreitasn/arcclear/internal/ledger"
)

const (
	genesisTime       = 1_700_000_000
	settlementTimeout = 3600
	disputeWindow     = 86400
)

var (
	owner    = addr(1)
	oracle   = addr(2)
	bidder   = addr(3)
	asker    = addr(4)
	stranger = addr(5)

	mandate = common.BigToHash(big.NewInt(77))
)

func addr(n int64) common.Address {
	return common.BigToAddress(big.NewInt(n))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// usdc returns n whole USDC in base units.
func usdc(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000))
}

type scheduled struct {
	id         common.Hash
	validUntil uint64
}

type recordingScheduler struct {
	added []scheduled
}

func (r *recordingScheduler) Add(id common.Hash, validUntil uint64) {
	r.added = append(r.added, scheduled{id, validUntil})
}

// testEnv wires a real ledger, a memory index and every service.
type testEnv struct {
	clock   *ledger.ManualClock
	ledger  *ledger.Ledger
	quotes  *index.MemoryIndex
	assets  *domain.AssetRegistry
	expiry  *recordingScheduler
	intents *IntentService
	settle  *SettlementService
	payment *PaymentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := ledger.NewManualClock(genesisTime)
	l, err := ledger.New(ledger.Config{
		Owner:             owner,
		SettlementTimeout: settlementTimeout,
		DisputeWindow:     disputeWindow,
		Oracles:           []common.Address{oracle},
		Mandates:          []ledger.MandateGrant{{Ref: mandate}},
		Allocations: []ledger.Allocation{
			{Account: bidder, Asset: "USDC", Amount: usdc(100_000)},
			{Account: asker, Asset: "USDC", Amount: usdc(100_000)},
		},
	}, clock, nil)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	assets := domain.NewAssetRegistry()
	assets.Register(domain.Asset{Symbol: "USDC", Decimals: 6})
	assets.Register(domain.Asset{Symbol: "EURC", Decimals: 2})

	quotes := index.NewMemoryIndex()
	sched := &recordingScheduler{}
	logger := discardLogger()
	return &testEnv{
		clock:   clock,
		ledger:  l,
		quotes:  quotes,
		assets:  assets,
		expiry:  sched,
		intents: NewIntentService(l, quotes, sched, assets, logger),
		settle:  NewSettlementService(l, assets, logger),
		payment: NewPaymentService(l, assets, logger),
	}
}

func (env *testEnv) submit(t *testing.T, actor common.Address, side domain.Side, price string) *IntentView {
	t.Helper()
	v, err := env.intents.Submit(context.Background(), SubmitIntentRequest{
		Actor:      actor,
		Side:       side,
		Asset:      "USDC",
		Price:      price,
		Quantity:   1,
		ValidUntil: genesisTime + 600,
		MandateRef: mandate,
	})
	if err != nil {
		t.Fatalf("submit %s @ %s: %v", side, price, err)
	}
	return v
}

// match submits a crossing pair and creates the match directly on the
// ledger at price.
func (env *testEnv) match(t *testing.T, price *uint256.Int) *domain.Match {
	t.Helper()
	bid := env.submit(t, bidder, domain.SideBid, "101")
	ask := env.submit(t, asker, domain.SideAsk, "100")
	id, err := env.ledger.CreateMatch(owner, bid.Intent.IntentID, ask.Intent.IntentID, price)
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	m, err := env.ledger.GetMatch(id)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	return m
}
