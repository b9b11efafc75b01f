package engine

import (
	"context"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
	"github.com/efreitasn/arcclear/internal/index"
	"github.com/efreitasn/arcclear/internal/ledger"
)

const (
	testAsset   = "USDC"
	genesisTime = uint64(1_700_000_000)
)

var operator = common.HexToAddress("0x00000000000000000000000000000000000000e0")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	ledger *ledger.Ledger
	clock  *ledger.ManualClock
	idx    *index.MemoryIndex
	engine *Engine
	n      int
}

func newTestEnv(cap int) *testEnv {
	clock := ledger.NewManualClock(genesisTime)
	l, err := ledger.New(ledger.Config{SettlementTimeout: 3600, DisputeWindow: 86400}, clock, nil)
	if err != nil {
		panic(err)
	}
	idx := index.NewMemoryIndex()
	e := New(Config{Operator: operator, IterationCap: cap}, l, idx, nil, discardLogger())
	return &testEnv{ledger: l, clock: clock, idx: idx, engine: e}
}

// fataler is the part of *testing.T and *rapid.T the helpers need.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// submit registers an intent for actor and indexes its payload.
func (env *testEnv) submit(t fataler, actor common.Address, side domain.Side, price, qty uint64) common.Hash {
	t.Helper()
	env.n++
	p := domain.Payload{
		Side:     side,
		Asset:    testAsset,
		Price:    uint256.NewInt(price),
		Quantity: qty,
		Salt:     common.BigToHash(uint256.NewInt(uint64(env.n)).ToBig()),
	}
	id, err := env.ledger.RegisterIntent(actor, p.Commitment(), env.ledger.Now()+3600, common.Hash{}, testAsset)
	if err != nil {
		t.Fatalf("register intent: %v", err)
	}
	if err := env.idx.Put(context.Background(), index.Quote{IntentID: id, Payload: p}); err != nil {
		t.Fatalf("index put: %v", err)
	}
	return id
}

func addr(n uint64) common.Address {
	return common.BigToAddress(uint256.NewInt(n).ToBig())
}
