package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/arcclear/internal/domain"
	"github.com/efreitasn/arcclear/internal/ledger"
)

// Genesis is the decoded form of a genesis file:
//
//	owner   = "0x..."
//	oracles  = ["0x..."]
//	matchers = ["0x..."]   # optional; the first one runs the engine
//
//	[[mandates]]
//	ref         = "0x..."   # 32-byte hex
//	valid_until = 0         # unix seconds, 0 = no expiry
//
//	[[assets]]
//	symbol   = "USDC"
//	decimals = 6
//
//	[[balances]]
//	account = "0x..."
//	asset   = "USDC"
//	amount  = "2500.50"     # display units
type Genesis struct {
	Owner    string           `toml:"owner"`
	Oracles  []string         `toml:"oracles"`
	Matchers []string         `toml:"matchers"`
	Mandates []GenesisMandate `toml:"mandates"`
	Assets   []GenesisAsset   `toml:"assets"`
	Balances []GenesisBalance `toml:"balances"`
}

type GenesisMandate struct {
	Ref        string `toml:"ref"`
	ValidUntil uint64 `toml:"valid_until"`
}

type GenesisAsset struct {
	Symbol   string `toml:"symbol"`
	Decimals int32  `toml:"decimals"`
}

type GenesisBalance struct {
	Account string `toml:"account"`
	Asset   string `toml:"asset"`
	Amount  string `toml:"amount"`
}

// LoadGenesis reads and decodes the genesis file at path. It only checks
// that the file is well formed; see Ledger for semantic validation.
func LoadGenesis(path string) (*Genesis, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis: %w", err)
	}
	var g Genesis
	if _, err := toml.Decode(string(buf), &g); err != nil {
		return nil, fmt.Errorf("decoding genesis: %w", err)
	}
	return &g, nil
}

// AssetRegistry builds the registry of assets declared in the genesis.
func (g *Genesis) AssetRegistry() (*domain.AssetRegistry, error) {
	reg := domain.NewAssetRegistry()
	for _, a := range g.Assets {
		if a.Symbol == "" {
			return nil, fmt.Errorf("genesis asset with empty symbol")
		}
		if a.Decimals < 0 || a.Decimals > 36 {
			return nil, fmt.Errorf("genesis asset %s: decimals out of range", a.Symbol)
		}
		if _, err := reg.Get(a.Symbol); err == nil {
			return nil, fmt.Errorf("genesis asset %s declared twice", a.Symbol)
		}
		reg.Register(domain.Asset{Symbol: a.Symbol, Decimals: a.Decimals})
	}
	return reg, nil
}

// Ledger converts the genesis into a ledger configuration using the
// timing parameters from cfg. Balances are converted from display units
// with the decimals of their asset.
func (g *Genesis) Ledger(cfg *Config, assets *domain.AssetRegistry) (ledger.Config, error) {
	out := ledger.Config{
		SettlementTimeout: uint64(cfg.SettlementTimeout.Seconds()),
		DisputeWindow:     uint64(cfg.DisputeWindow.Seconds()),
	}

	owner, err := parseAddress("owner", g.Owner)
	if err != nil {
		return ledger.Config{}, err
	}
	out.Owner = owner

	for _, o := range g.Oracles {
		addr, err := parseAddress("oracle", o)
		if err != nil {
			return ledger.Config{}, err
		}
		out.Oracles = append(out.Oracles, addr)
	}

	for _, m := range g.Matchers {
		addr, err := parseAddress("matcher", m)
		if err != nil {
			return ledger.Config{}, err
		}
		out.Matchers = append(out.Matchers, addr)
	}

	for _, m := range g.Mandates {
		b, err := decodeHash(m.Ref)
		if err != nil {
			return ledger.Config{}, fmt.Errorf("genesis mandate %q: %w", m.Ref, err)
		}
		out.Mandates = append(out.Mandates, ledger.MandateGrant{Ref: b, ValidUntil: m.ValidUntil})
	}

	supply := make(map[string]*uint256.Int)
	for _, b := range g.Balances {
		account, err := parseAddress("balance account", b.Account)
		if err != nil {
			return ledger.Config{}, err
		}
		asset, err := assets.Get(b.Asset)
		if err != nil {
			return ledger.Config{}, fmt.Errorf("genesis balance for %s: unknown asset %q", b.Account, b.Asset)
		}
		display, err := decimal.NewFromString(b.Amount)
		if err != nil {
			return ledger.Config{}, fmt.Errorf("genesis balance for %s: %w", b.Account, err)
		}
		amount, err := domain.ToBaseUnits(display, asset.Decimals)
		if err != nil {
			return ledger.Config{}, fmt.Errorf("genesis balance for %s: %w", b.Account, err)
		}
		total, ok := supply[asset.Symbol]
		if !ok {
			total = new(uint256.Int)
			supply[asset.Symbol] = total
		}
		if _, overflow := total.AddOverflow(total, amount); overflow {
			return ledger.Config{}, fmt.Errorf("genesis balances of %s: %w", asset.Symbol, domain.ErrBalanceOverflow)
		}
		out.Allocations = append(out.Allocations, ledger.Allocation{
			Account: account,
			Asset:   asset.Symbol,
			Amount:  amount,
		})
	}
	return out, nil
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("genesis %s: invalid address %q", field, s)
	}
	return common.HexToAddress(s), nil
}

func decodeHash(s string) (common.Hash, error) {
	var h common.Hash
	if err := h.UnmarshalText([]byte(s)); err != nil {
		return common.Hash{}, err
	}
	return h, nil
}
