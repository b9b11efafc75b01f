package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
	"github.com/efreitasn/arcclear/internal/service"
)

// formatter renders ledger values for responses. Amounts are shown in
// display units of their asset.
type formatter struct {
	assets *domain.AssetRegistry
}

func (f formatter) amount(asset string, v *uint256.Int) string {
	if v == nil {
		v = new(uint256.Int)
	}
	a, err := f.assets.Get(asset)
	if err != nil {
		return v.Dec()
	}
	return domain.FromBaseUnits(v, a.Decimals).String()
}

func hashOrEmpty(h common.Hash) string {
	if h == (common.Hash{}) {
		return ""
	}
	return h.Hex()
}

// parseHash decodes a 0x-prefixed 32-byte hex value.
func parseHash(field, s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, &domain.ValidationError{Message: field + " must be a 0x-prefixed 32-byte hex value"}
	}
	return common.BytesToHash(b), nil
}

// parseOptionalHash is parseHash allowing the empty string.
func parseOptionalHash(field, s string) (common.Hash, error) {
	if s == "" {
		return common.Hash{}, nil
	}
	return parseHash(field, s)
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, &domain.ValidationError{Message: field + " must be a hex address"}
	}
	return common.HexToAddress(s), nil
}

// hashParam reads a hash URL parameter, writing a 400 on failure.
func hashParam(w http.ResponseWriter, r *http.Request, name string) (common.Hash, bool) {
	h, err := parseHash(name, chi.URLParam(r, name))
	if err != nil {
		writeDomainError(w, err)
		return common.Hash{}, false
	}
	return h, true
}

// addressParam reads an address URL parameter, writing a 400 on failure.
func addressParam(w http.ResponseWriter, r *http.Request, name string) (common.Address, bool) {
	a, err := parseAddress(name, chi.URLParam(r, name))
	if err != nil {
		writeDomainError(w, err)
		return common.Address{}, false
	}
	return a, true
}

// caller returns the authenticated caller. Routes using it sit behind
// Authenticator.Require.
func caller(r *http.Request) common.Address {
	addr, _ := CallerFrom(r.Context())
	return addr
}

type intentResponse struct {
	IntentID      string `json:"intent_id"`
	Actor         string `json:"actor"`
	CommittedHash string `json:"committed_hash"`
	Asset         string `json:"asset"`
	CreatedAt     uint64 `json:"created_at"`
	ValidUntil    uint64 `json:"valid_until"`
	MandateRef    string `json:"mandate_ref,omitempty"`
	Active        bool   `json:"active"`
	Matched       bool   `json:"matched"`
	Valid         bool   `json:"valid"`

	// Present only for the intent's own actor.
	Side     *string `json:"side,omitempty"`
	Price    *string `json:"price,omitempty"`
	Quantity *uint64 `json:"quantity,omitempty"`
	Salt     *string `json:"salt,omitempty"`
}

func (f formatter) intent(v *service.IntentView) intentResponse {
	i := v.Intent
	resp := intentResponse{
		IntentID:      i.IntentID.Hex(),
		Actor:         i.Actor.Hex(),
		CommittedHash: i.CommittedHash.Hex(),
		Asset:         i.SettlementAsset,
		CreatedAt:     i.CreatedAt,
		ValidUntil:    i.ValidUntil,
		MandateRef:    hashOrEmpty(i.MandateRef),
		Active:        i.Active,
		Matched:       i.Matched,
		Valid:         v.Valid,
	}
	if p := v.Payload; p != nil {
		side := string(p.Side)
		price := f.amount(p.Asset, p.Price)
		qty := p.Quantity
		salt := p.Salt.Hex()
		resp.Side, resp.Price, resp.Quantity, resp.Salt = &side, &price, &qty, &salt
	}
	return resp
}

type matchResponse struct {
	MatchID         string `json:"match_id"`
	BidIntentID     string `json:"bid_intent_id"`
	AskIntentID     string `json:"ask_intent_id"`
	Bidder          string `json:"bidder"`
	Asker           string `json:"asker"`
	Asset           string `json:"asset"`
	MatchPrice      string `json:"match_price"`
	BidLocked       string `json:"bid_locked"`
	AskLocked       string `json:"ask_locked"`
	CreatedAt       uint64 `json:"created_at"`
	SettleDeadline  uint64 `json:"settle_deadline"`
	Status          string `json:"status"`
	PaymentRef      string `json:"payment_ref,omitempty"`
	PaymentProofRef string `json:"payment_proof_ref,omitempty"`
	DisputeReason   string `json:"dispute_reason,omitempty"`
}

func (f formatter) match(m *domain.Match) matchResponse {
	return matchResponse{
		MatchID:         m.MatchID.Hex(),
		BidIntentID:     m.BidIntentID.Hex(),
		AskIntentID:     m.AskIntentID.Hex(),
		Bidder:          m.Bidder.Hex(),
		Asker:           m.Asker.Hex(),
		Asset:           m.Asset,
		MatchPrice:      f.amount(m.Asset, m.MatchPrice),
		BidLocked:       f.amount(m.Asset, m.BidLocked),
		AskLocked:       f.amount(m.Asset, m.AskLocked),
		CreatedAt:       m.CreatedAt,
		SettleDeadline:  m.SettleDeadline,
		Status:          string(m.Status),
		PaymentRef:      hashOrEmpty(m.PaymentRef),
		PaymentProofRef: hashOrEmpty(m.PaymentProofRef),
		DisputeReason:   m.DisputeReason,
	}
}

func (f formatter) matches(ms []*domain.Match) []matchResponse {
	out := make([]matchResponse, len(ms))
	for i, m := range ms {
		out[i] = f.match(m)
	}
	return out
}
