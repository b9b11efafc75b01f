package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/arcclear/internal/domain"
	"github.com/efreitasn/arcclear/internal/index"
)

// maxQuantity bounds intent quantities so that price × quantity stays
// well inside 256 bits for any sane price.
const maxQuantity = 1_000_000_000_000

// IntentLedger is the part of the ledger the intent service drives.
type IntentLedger interface {
	RegisterIntent(caller common.Address, committed common.Hash, validUntil uint64, mandateRef common.Hash, asset string) (common.Hash, error)
	CancelIntent(caller common.Address, id common.Hash) error
	GetIntent(id common.Hash) (*domain.Intent, error)
	ActorIntents(actor common.Address) []*domain.Intent
	IsValid(id common.Hash) bool
}

// ExpiryScheduler is told about every indexed intent so it can prune the
// quote once the intent expires.
type ExpiryScheduler interface {
	Add(id common.Hash, validUntil uint64)
}

// SubmitIntentRequest represents the input for intent submission. Price
// is given in display units of the asset (e.g. "100.50").
type SubmitIntentRequest struct {
	Actor      common.Address
	Side       domain.Side
	Asset      string
	Price      string
	Quantity   uint64
	ValidUntil uint64
	MandateRef common.Hash
}

// IntentView is an intent together with its indexed payload, if any.
type IntentView struct {
	Intent  *domain.Intent
	Payload *domain.Payload
	Valid   bool
}

// IntentService commits intent payloads to the ledger and keeps the
// quote index in step with them.
type IntentService struct {
	ledger IntentLedger
	quotes index.Index
	expiry ExpiryScheduler
	assets *domain.AssetRegistry
	logger *slog.Logger
}

// NewIntentService creates a new IntentService. expiry may be nil.
func NewIntentService(l IntentLedger, quotes index.Index, expiry ExpiryScheduler, assets *domain.AssetRegistry, logger *slog.Logger) *IntentService {
	return &IntentService{
		ledger: l,
		quotes: quotes,
		expiry: expiry,
		assets: assets,
		logger: logger,
	}
}

// Submit validates the request, registers the commitment on the ledger
// and indexes the payload. If indexing fails the intent is cancelled
// again so that no unmatchable intent stays active.
func (s *IntentService) Submit(ctx context.Context, req SubmitIntentRequest) (*IntentView, error) {
	if req.Side != domain.SideBid && req.Side != domain.SideAsk {
		return nil, &domain.ValidationError{Message: "side must be 'bid' or 'ask'"}
	}
	asset, err := s.assets.Get(req.Asset)
	if err != nil {
		return nil, err
	}
	price, err := parseDisplayAmount("price", req.Price, asset.Decimals)
	if err != nil {
		return nil, err
	}
	if price.IsZero() {
		return nil, &domain.ValidationError{Message: "price must be greater than 0"}
	}
	if req.Quantity == 0 || req.Quantity > maxQuantity {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("quantity must be between 1 and %d", maxQuantity),
		}
	}

	var salt common.Hash
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	payload := domain.Payload{
		Side:     req.Side,
		Asset:    asset.Symbol,
		Price:    price,
		Quantity: req.Quantity,
		Salt:     salt,
	}

	id, err := s.ledger.RegisterIntent(req.Actor, payload.Commitment(), req.ValidUntil, req.MandateRef, asset.Symbol)
	if err != nil {
		return nil, err
	}

	if err := s.quotes.Put(ctx, index.Quote{IntentID: id, Payload: payload}); err != nil {
		if cerr := s.ledger.CancelIntent(req.Actor, id); cerr != nil {
			s.logger.Error("cancel after index failure",
				slog.String("intent_id", id.Hex()),
				slog.String("error", cerr.Error()),
			)
		}
		return nil, fmt.Errorf("indexing intent: %w", err)
	}
	if s.expiry != nil {
		s.expiry.Add(id, req.ValidUntil)
	}

	intent, err := s.ledger.GetIntent(id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("intent submitted",
		slog.String("intent_id", id.Hex()),
		slog.String("actor", req.Actor.Hex()),
		slog.String("asset", asset.Symbol),
		slog.String("side", string(req.Side)),
	)
	return &IntentView{Intent: intent, Payload: &payload, Valid: s.ledger.IsValid(id)}, nil
}

// Cancel deactivates the caller's intent. The projector removes its quote.
func (s *IntentService) Cancel(caller common.Address, id common.Hash) (*IntentView, error) {
	if err := s.ledger.CancelIntent(caller, id); err != nil {
		return nil, err
	}
	intent, err := s.ledger.GetIntent(id)
	if err != nil {
		return nil, err
	}
	return &IntentView{Intent: intent, Valid: false}, nil
}

// Get returns an intent with its payload. The payload is only revealed
// to the intent's actor; others see the commitment alone.
func (s *IntentService) Get(ctx context.Context, caller common.Address, id common.Hash) (*IntentView, error) {
	intent, err := s.ledger.GetIntent(id)
	if err != nil {
		return nil, err
	}
	view := &IntentView{Intent: intent, Valid: s.ledger.IsValid(id)}
	if caller != intent.Actor {
		return view, nil
	}
	q, err := s.quotes.Get(ctx, id)
	switch {
	case err == nil:
		view.Payload = &q.Payload
	case !errors.Is(err, domain.ErrQuoteNotFound):
		return nil, err
	}
	return view, nil
}

// ListByActor returns all intents registered by actor in registration order.
func (s *IntentService) ListByActor(actor common.Address) []*IntentView {
	intents := s.ledger.ActorIntents(actor)
	out := make([]*IntentView, 0, len(intents))
	for _, i := range intents {
		out = append(out, &IntentView{Intent: i, Valid: s.ledger.IsValid(i.IntentID)})
	}
	return out
}

// parseDisplayAmount parses a display-unit decimal string into base units.
func parseDisplayAmount(field, s string, decimals int32) (*uint256.Int, error) {
	if s == "" {
		return nil, &domain.ValidationError{Message: field + " is required"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, &domain.ValidationError{Message: field + " must be a decimal number"}
	}
	v, err := domain.ToBaseUnits(d, decimals)
	if err != nil {
		return nil, &domain.ValidationError{Message: field + ": " + err.Error()}
	}
	return v, nil
}
