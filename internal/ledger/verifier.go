package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
)

// RecordVerification stores an oracle's attestation that the payment
// identified by ref completed. A ref can be recorded once.
func (l *Ledger) RecordVerification(caller common.Address, ref common.Hash, amount *uint256.Int, payer, payee common.Address, mandateRef common.Hash) error {
	return l.transact("record_verification", func(t *tx) error {
		if !l.access.isOracle(caller) {
			return domain.ErrUnauthorized
		}
		if amount == nil || amount.IsZero() {
			return domain.ErrInvalidAmount
		}
		if !l.access.mandateValid(mandateRef, t.now) {
			return domain.ErrInvalidMandate
		}
		err := l.verifications.Create(&domain.PaymentVerification{
			PaymentRef: ref,
			Amount:     amount.Clone(),
			Payer:      payer,
			Payee:      payee,
			VerifiedAt: t.now,
			MandateRef: mandateRef,
			Verified:   true,
		})
		if err != nil {
			return err
		}

		t.emit(domain.Event{
			Type:       domain.EventPaymentVerified,
			PaymentRef: ref,
			MandateRef: mandateRef,
			Actor:      caller,
			Parties:    []common.Address{payer, payee},
			Amount:     amount.Clone(),
		})
		return nil
	})
}

// Verify reports whether ref was verified for at least expected.
// Overpayment is accepted.
func (l *Ledger) Verify(ref common.Hash, expected *uint256.Int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verifyLocked(ref, expected)
}

func (l *Ledger) verifyLocked(ref common.Hash, expected *uint256.Int) bool {
	p, err := l.verifications.Get(ref)
	if err != nil || !p.Verified {
		return false
	}
	if expected == nil {
		return true
	}
	return !p.Amount.Lt(expected)
}

// GetPaymentVerification returns a copy of the record for ref.
func (l *Ledger) GetPaymentVerification(ref common.Hash) (*domain.PaymentVerification, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, err := l.verifications.Get(ref)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}
