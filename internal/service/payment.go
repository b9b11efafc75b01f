package service

import (
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
)

// PaymentLedger is the verifier and access surface of the ledger.
type PaymentLedger interface {
	RecordVerification(caller common.Address, ref common.Hash, amount *uint256.Int, payer, payee common.Address, mandateRef common.Hash) error
	GetPaymentVerification(ref common.Hash) (*domain.PaymentVerification, error)

	Owner() common.Address
	TransferOwnership(caller, newOwner common.Address) error
	AuthorizeOracle(caller, oracle common.Address) error
	RevokeOracle(caller, oracle common.Address) error
	Oracles() []common.Address
	IsAuthorizedOracle(addr common.Address) bool
	AuthorizeMatcher(caller, matcher common.Address) error
	RevokeMatcher(caller, matcher common.Address) error
	Matchers() []common.Address
	IsAuthorizedMatcher(addr common.Address) bool
	IsMandateValid(ref common.Hash) bool
	RegisterMandate(caller common.Address, ref common.Hash, validUntil uint64) error
	RevokeMandate(caller common.Address, ref common.Hash) error
	GetMandate(ref common.Hash) (*domain.Mandate, error)
}

// RecordPaymentRequest is an oracle attestation of an external payment.
// Amount is in display units of Asset.
type RecordPaymentRequest struct {
	Oracle     common.Address
	PaymentID  string
	Asset      string
	Amount     string
	Payer      common.Address
	Payee      common.Address
	MandateRef common.Hash
}

// PaymentService records oracle attestations and administers the oracle
// and mandate allow-lists.
type PaymentService struct {
	ledger PaymentLedger
	assets *domain.AssetRegistry
	logger *slog.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(l PaymentLedger, assets *domain.AssetRegistry, logger *slog.Logger) *PaymentService {
	return &PaymentService{ledger: l, assets: assets, logger: logger}
}

// Record stores the verification of an external payment.
func (s *PaymentService) Record(req RecordPaymentRequest) (*domain.PaymentVerification, error) {
	if req.PaymentID == "" {
		return nil, &domain.ValidationError{Message: "payment_id is required"}
	}
	asset, err := s.assets.Get(req.Asset)
	if err != nil {
		return nil, err
	}
	amount, err := parseDisplayAmount("amount", req.Amount, asset.Decimals)
	if err != nil {
		return nil, err
	}
	ref := domain.PaymentRefOf(req.PaymentID)
	if err := s.ledger.RecordVerification(req.Oracle, ref, amount, req.Payer, req.Payee, req.MandateRef); err != nil {
		return nil, err
	}
	s.logger.Info("payment verified",
		slog.String("payment_ref", ref.Hex()),
		slog.String("oracle", req.Oracle.Hex()),
	)
	return s.ledger.GetPaymentVerification(ref)
}

// Get returns the verification recorded for an external payment id.
func (s *PaymentService) Get(paymentID string) (*domain.PaymentVerification, error) {
	return s.ledger.GetPaymentVerification(domain.PaymentRefOf(paymentID))
}

func (s *PaymentService) Owner() common.Address {
	return s.ledger.Owner()
}

func (s *PaymentService) TransferOwnership(caller, newOwner common.Address) error {
	if err := s.ledger.TransferOwnership(caller, newOwner); err != nil {
		return err
	}
	s.logger.Warn("ownership transferred", slog.String("owner", newOwner.Hex()))
	return nil
}

func (s *PaymentService) AuthorizeOracle(caller, oracle common.Address) error {
	if oracle == (common.Address{}) {
		return &domain.ValidationError{Message: "oracle address is required"}
	}
	return s.ledger.AuthorizeOracle(caller, oracle)
}

func (s *PaymentService) RevokeOracle(caller, oracle common.Address) error {
	return s.ledger.RevokeOracle(caller, oracle)
}

func (s *PaymentService) Oracles() []common.Address {
	return s.ledger.Oracles()
}

func (s *PaymentService) IsOracle(addr common.Address) bool {
	return s.ledger.IsAuthorizedOracle(addr)
}

// AuthorizeMatcher restricts match creation to the authorized matchers.
func (s *PaymentService) AuthorizeMatcher(caller, matcher common.Address) error {
	if matcher == (common.Address{}) {
		return &domain.ValidationError{Message: "matcher address is required"}
	}
	if err := s.ledger.AuthorizeMatcher(caller, matcher); err != nil {
		return err
	}
	s.logger.Info("matcher authorized", slog.String("matcher", matcher.Hex()))
	return nil
}

func (s *PaymentService) RevokeMatcher(caller, matcher common.Address) error {
	return s.ledger.RevokeMatcher(caller, matcher)
}

func (s *PaymentService) Matchers() []common.Address {
	return s.ledger.Matchers()
}

func (s *PaymentService) IsMatcher(addr common.Address) bool {
	return s.ledger.IsAuthorizedMatcher(addr)
}

// RegisterMandate registers or replaces a mandate. A zero validUntil
// never expires.
func (s *PaymentService) RegisterMandate(caller common.Address, ref common.Hash, validUntil uint64) (*domain.Mandate, error) {
	if ref == (common.Hash{}) {
		return nil, &domain.ValidationError{Message: "mandate ref is required"}
	}
	if err := s.ledger.RegisterMandate(caller, ref, validUntil); err != nil {
		return nil, err
	}
	return s.ledger.GetMandate(ref)
}

func (s *PaymentService) RevokeMandate(caller common.Address, ref common.Hash) error {
	return s.ledger.RevokeMandate(caller, ref)
}

// Mandate returns the mandate and whether it may back a payment now.
func (s *PaymentService) Mandate(ref common.Hash) (*domain.Mandate, bool, error) {
	m, err := s.ledger.GetMandate(ref)
	if err != nil {
		return nil, false, err
	}
	return m, s.ledger.IsMandateValid(ref), nil
}
