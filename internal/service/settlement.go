package service

import (
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
)

const maxDisputeReasonLen = 512

// SettlementLedger is the escrow and bank surface of the ledger.
type SettlementLedger interface {
	CreateMatch(caller common.Address, bidID, askID common.Hash, price *uint256.Int) (common.Hash, error)
	GetIntent(id common.Hash) (*domain.Intent, error)
	FundEscrow(caller common.Address, matchID common.Hash, deposit *uint256.Int) error
	SettleMatch(caller common.Address, matchID, proofRef, paymentRef common.Hash) error
	DisputeMatch(caller common.Address, matchID common.Hash, reason string) error
	CancelMatch(caller common.Address, matchID common.Hash) error
	GetMatch(id common.Hash) (*domain.Match, error)
	GetEscrowBalance(matchID common.Hash, party common.Address) (*uint256.Int, error)
	PartyMatches(addr common.Address) []*domain.Match
	BalanceOf(account common.Address, asset string) *uint256.Int
	Transfer(caller, to common.Address, asset string, amount *uint256.Int) error
}

// ProposeRequest pairs a bid and an ask at a display price, as the
// matching engine would.
type ProposeRequest struct {
	Caller      common.Address
	BidIntentID common.Hash
	AskIntentID common.Hash
	Price       string
}

// SettleRequest settles a match against an external payment. ProofRef is
// optional and defaults to the payment reference.
type SettleRequest struct {
	MatchID   common.Hash
	PaymentID string
	ProofRef  string
}

// TransferRequest moves a display amount of asset between accounts.
type TransferRequest struct {
	From   common.Address
	To     common.Address
	Asset  string
	Amount string
}

// SettlementService drives the escrow lifecycle of matches and exposes
// account balances. Amounts cross this boundary in display units.
type SettlementService struct {
	ledger SettlementLedger
	assets *domain.AssetRegistry
	logger *slog.Logger
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(l SettlementLedger, assets *domain.AssetRegistry, logger *slog.Logger) *SettlementService {
	return &SettlementService{ledger: l, assets: assets, logger: logger}
}

// Propose creates a match directly. The price is read in the units of
// the bid's settlement asset; the ledger rejects pairs across assets.
func (s *SettlementService) Propose(req ProposeRequest) (*domain.Match, error) {
	bid, err := s.ledger.GetIntent(req.BidIntentID)
	if err != nil {
		return nil, err
	}
	price, err := s.amount(bid.SettlementAsset, req.Price)
	if err != nil {
		return nil, err
	}
	id, err := s.ledger.CreateMatch(req.Caller, req.BidIntentID, req.AskIntentID, price)
	if err != nil {
		return nil, err
	}
	s.logger.Info("match proposed",
		slog.String("match_id", id.Hex()),
		slog.String("proposer", req.Caller.Hex()),
	)
	return s.ledger.GetMatch(id)
}

// Fund locks the caller's deposit in the match.
func (s *SettlementService) Fund(caller common.Address, matchID common.Hash, amount string) (*domain.Match, error) {
	m, err := s.ledger.GetMatch(matchID)
	if err != nil {
		return nil, err
	}
	deposit, err := s.amount(m.Asset, amount)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.FundEscrow(caller, matchID, deposit); err != nil {
		return nil, err
	}
	return s.ledger.GetMatch(matchID)
}

// Settle releases a funded match once its payment has been verified.
func (s *SettlementService) Settle(caller common.Address, req SettleRequest) (*domain.Match, error) {
	if req.PaymentID == "" {
		return nil, &domain.ValidationError{Message: "payment_id is required"}
	}
	paymentRef := domain.PaymentRefOf(req.PaymentID)
	proofRef := paymentRef
	if req.ProofRef != "" {
		proofRef = domain.PaymentRefOf(req.ProofRef)
	}
	if err := s.ledger.SettleMatch(caller, req.MatchID, proofRef, paymentRef); err != nil {
		return nil, err
	}
	m, err := s.ledger.GetMatch(req.MatchID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("match settled",
		slog.String("match_id", req.MatchID.Hex()),
		slog.String("payment_ref", paymentRef.Hex()),
	)
	return m, nil
}

// Dispute flags the match. Arbitration happens outside the system.
func (s *SettlementService) Dispute(caller common.Address, matchID common.Hash, reason string) (*domain.Match, error) {
	if reason == "" {
		return nil, &domain.ValidationError{Message: "reason is required"}
	}
	if len(reason) > maxDisputeReasonLen {
		return nil, &domain.ValidationError{Message: "reason must be at most 512 characters"}
	}
	if err := s.ledger.DisputeMatch(caller, matchID, reason); err != nil {
		return nil, err
	}
	s.logger.Warn("match disputed",
		slog.String("match_id", matchID.Hex()),
		slog.String("party", caller.Hex()),
	)
	return s.ledger.GetMatch(matchID)
}

// Cancel unwinds a match past its settlement deadline.
func (s *SettlementService) Cancel(caller common.Address, matchID common.Hash) (*domain.Match, error) {
	if err := s.ledger.CancelMatch(caller, matchID); err != nil {
		return nil, err
	}
	return s.ledger.GetMatch(matchID)
}

func (s *SettlementService) Get(matchID common.Hash) (*domain.Match, error) {
	return s.ledger.GetMatch(matchID)
}

// EscrowBalance returns what party has locked in the match.
func (s *SettlementService) EscrowBalance(matchID common.Hash, party common.Address) (*uint256.Int, error) {
	return s.ledger.GetEscrowBalance(matchID, party)
}

func (s *SettlementService) ListByParty(party common.Address) []*domain.Match {
	return s.ledger.PartyMatches(party)
}

// Balance returns the account's balance in asset.
func (s *SettlementService) Balance(account common.Address, asset string) (*uint256.Int, error) {
	if _, err := s.assets.Get(asset); err != nil {
		return nil, err
	}
	return s.ledger.BalanceOf(account, asset), nil
}

// Transfer moves funds out of req.From, which must be the caller.
func (s *SettlementService) Transfer(req TransferRequest) error {
	if req.To == (common.Address{}) {
		return &domain.ValidationError{Message: "to is required"}
	}
	amount, err := s.amount(req.Asset, req.Amount)
	if err != nil {
		return err
	}
	return s.ledger.Transfer(req.From, req.To, req.Asset, amount)
}

func (s *SettlementService) amount(symbol, display string) (*uint256.Int, error) {
	asset, err := s.assets.Get(symbol)
	if err != nil {
		return nil, err
	}
	return parseDisplayAmount("amount", display, asset.Decimals)
}
