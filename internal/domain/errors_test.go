package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Message: "quantity must be a positive integer"}
	if err.Error() != "quantity must be a positive integer" {
		t.Errorf("Error() = %q, want %q", err.Error(), "quantity must be a positive integer")
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	errs := []error{
		ErrInvalidExpiry,
		ErrInvalidAmount,
		ErrInvalidMandate,
		ErrInsufficientEscrow,
		ErrBalanceOverflow,
		ErrUnauthorized,
		ErrUnauthorizedParty,
		ErrDuplicateIntent,
		ErrAlreadyInactive,
		ErrNotActive,
		ErrInvalidIntents,
		ErrMatchAlreadyExists,
		ErrInvalidMatchStatus,
		ErrAlreadyVerified,
		ErrInvalidPaymentProof,
		ErrIntentNotFound,
		ErrMatchNotFound,
		ErrMatcherNotFound,
		ErrSettlementTimeoutNotReached,
		ErrDisputeWindowExpired,
	}
	for i := 0; i < len(errs); i++ {
		for j := i + 1; j < len(errs); j++ {
			if errors.Is(errs[i], errs[j]) {
				t.Errorf("sentinel errors %d and %d should be distinct", i, j)
			}
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{ErrInvalidExpiry, KindValidation},
		{ErrUnauthorizedParty, KindAuthorization},
		{ErrAlreadyVerified, KindState},
		{ErrMatchNotFound, KindNotFound},
		{ErrDisputeWindowExpired, KindTiming},
		{fmt.Errorf("create match: %w", ErrInvalidIntents), KindState},
		{errors.New("boom"), ""},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
