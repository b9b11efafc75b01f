package ledger

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"pgregory.net/rapid"

	"github.com/efreitasn/arcclear/internal/domain"
)

// Property: a payment reference is recorded at most once

func TestProperty_VerificationReplayRejected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l, _ := newTestLedger()
		ref := domain.PaymentRefOf(fmt.Sprintf("pi_%d", rapid.Int().Draw(t, "ref")))
		first := rapid.Uint64Range(1, 1<<40).Draw(t, "first")
		second := rapid.Uint64Range(1, 1<<40).Draw(t, "second")
		payer := common.BigToAddress(uint256.NewInt(rapid.Uint64().Draw(t, "payer")).ToBig())

		if err := l.RecordVerification(oracle, ref, uint256.NewInt(first), bidder, asker, mandate); err != nil {
			t.Fatalf("first record: %v", err)
		}
		if err := l.RecordVerification(oracle, ref, uint256.NewInt(second), payer, bidder, mandate); err != domain.ErrAlreadyVerified {
			t.Fatalf("expected ErrAlreadyVerified, got %v", err)
		}

		p, _ := l.GetPaymentVerification(ref)
		if p.Amount.Uint64() != first || p.Payer != bidder {
			t.Fatalf("record changed by replay: %+v", p)
		}
	})
}

// Property: verify accepts exactly the amounts at or below the recorded one

func TestProperty_VerifyIsAtLeast(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l, _ := newTestLedger()
		recorded := rapid.Uint64Range(1, 1<<40).Draw(t, "recorded")
		expected := rapid.Uint64Range(0, 1<<41).Draw(t, "expected")
		ref := domain.PaymentRefOf("pi_prop")
		_ = l.RecordVerification(oracle, ref, uint256.NewInt(recorded), bidder, asker, mandate)

		if got, want := l.Verify(ref, uint256.NewInt(expected)), recorded >= expected; got != want {
			t.Fatalf("Verify(recorded=%d, expected=%d) = %v, want %v", recorded, expected, got, want)
		}
	})
}
