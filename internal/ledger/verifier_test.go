package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
)

func TestRecordVerification(t *testing.T) {
	l, _ := newTestLedger()
	ref := domain.PaymentRefOf("pi_123")

	if err := l.RecordVerification(oracle, ref, uint256.NewInt(500), bidder, asker, mandate); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := l.GetPaymentVerification(ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Verified || p.Amount.Uint64() != 500 || p.Payer != bidder || p.Payee != asker {
		t.Fatalf("unexpected record %+v", p)
	}
	if p.VerifiedAt != genesisTime || p.MandateRef != mandate {
		t.Fatalf("unexpected record metadata %+v", p)
	}
}

func TestRecordVerification_Rejections(t *testing.T) {
	l, _ := newTestLedger()
	ref := domain.PaymentRefOf("pi_123")

	if err := l.RecordVerification(stranger, ref, uint256.NewInt(1), bidder, asker, mandate); err != domain.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := l.RecordVerification(oracle, ref, uint256.NewInt(0), bidder, asker, mandate); err != domain.ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := l.RecordVerification(oracle, ref, uint256.NewInt(1), bidder, asker, crypto.Keccak256Hash([]byte("x"))); err != domain.ErrInvalidMandate {
		t.Fatalf("expected ErrInvalidMandate, got %v", err)
	}
	if _, err := l.GetPaymentVerification(ref); err != domain.ErrVerificationNotFound {
		t.Fatalf("rejected calls must not record anything, got %v", err)
	}
}

func TestRecordVerification_RevokedMandate(t *testing.T) {
	l, _ := newTestLedger()
	_ = l.RevokeMandate(owner, mandate)

	err := l.RecordVerification(oracle, domain.PaymentRefOf("pi_1"), uint256.NewInt(1), bidder, asker, mandate)
	if err != domain.ErrInvalidMandate {
		t.Fatalf("expected ErrInvalidMandate, got %v", err)
	}
}

func TestVerify_AtLeastExpected(t *testing.T) {
	l, _ := newTestLedger()
	ref := recordPayment(t, l, "pi_1", 10050)

	if !l.Verify(ref, uint256.NewInt(10050)) {
		t.Fatal("expected exact amount to verify")
	}
	if !l.Verify(ref, uint256.NewInt(10000)) {
		t.Fatal("expected overpayment to verify")
	}
	if l.Verify(ref, uint256.NewInt(10051)) {
		t.Fatal("expected underpayment to fail")
	}
	if l.Verify(common.Hash{}, uint256.NewInt(1)) {
		t.Fatal("expected unknown ref to fail")
	}
}
