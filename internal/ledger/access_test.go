package ledger

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
)

func TestAccess_OwnerGated(t *testing.T) {
	l, _ := newTestLedger()
	ref := crypto.Keccak256Hash([]byte("m2"))

	if err := l.AuthorizeOracle(stranger, stranger); err != domain.ErrUnauthorized {
		t.Fatalf("AuthorizeOracle: expected ErrUnauthorized, got %v", err)
	}
	if err := l.RevokeOracle(stranger, oracle); err != domain.ErrUnauthorized {
		t.Fatalf("RevokeOracle: expected ErrUnauthorized, got %v", err)
	}
	if err := l.RegisterMandate(stranger, ref, 0); err != domain.ErrUnauthorized {
		t.Fatalf("RegisterMandate: expected ErrUnauthorized, got %v", err)
	}
	if err := l.RevokeMandate(stranger, mandate); err != domain.ErrUnauthorized {
		t.Fatalf("RevokeMandate: expected ErrUnauthorized, got %v", err)
	}
	if err := l.TransferOwnership(stranger, stranger); err != domain.ErrUnauthorized {
		t.Fatalf("TransferOwnership: expected ErrUnauthorized, got %v", err)
	}
	if !l.IsAuthorizedOracle(oracle) || !l.IsMandateValid(mandate) {
		t.Fatal("rejected calls changed the access configuration")
	}
}

func TestAccess_Oracles(t *testing.T) {
	l, _ := newTestLedger()
	other := common.HexToAddress("0x03")

	if err := l.AuthorizeOracle(owner, other); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.IsAuthorizedOracle(other) {
		t.Fatal("expected oracle to be authorized")
	}
	if got := l.Oracles(); len(got) != 2 || got[0] != oracle || got[1] != other {
		t.Fatalf("unexpected oracle list %v", got)
	}
	if err := l.RevokeOracle(owner, other); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.IsAuthorizedOracle(other) {
		t.Fatal("expected oracle to be revoked")
	}
	if err := l.RevokeOracle(owner, other); err != domain.ErrOracleNotFound {
		t.Fatalf("expected ErrOracleNotFound, got %v", err)
	}
}

func TestAccess_MandateLifecycle(t *testing.T) {
	l, clock := newTestLedger()
	ref := crypto.Keccak256Hash([]byte("expiring"))

	if err := l.RegisterMandate(owner, ref, genesisTime); err != domain.ErrInvalidExpiry {
		t.Fatalf("expected ErrInvalidExpiry, got %v", err)
	}
	if err := l.RegisterMandate(owner, ref, genesisTime+100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.IsMandateValid(ref) {
		t.Fatal("expected mandate to be valid")
	}

	clock.Advance(100)
	if l.IsMandateValid(ref) {
		t.Fatal("expected mandate to expire at validUntil")
	}

	if !l.IsMandateValid(mandate) {
		t.Fatal("open-ended mandate must not expire")
	}
	if err := l.RevokeMandate(owner, mandate); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.IsMandateValid(mandate) {
		t.Fatal("expected revoked mandate to be invalid")
	}
	m, err := l.GetMandate(mandate)
	if err != nil || !m.Revoked {
		t.Fatalf("expected revoked mandate record, got %+v, %v", m, err)
	}
	if err := l.RevokeMandate(owner, crypto.Keccak256Hash([]byte("none"))); err != domain.ErrMandateNotFound {
		t.Fatalf("expected ErrMandateNotFound, got %v", err)
	}
	if l.IsMandateValid(crypto.Keccak256Hash([]byte("none"))) {
		t.Fatal("unregistered mandate must not be valid")
	}
}

func TestAccess_TransferOwnership(t *testing.T) {
	l, _ := newTestLedger()

	var verr *domain.ValidationError
	if err := l.TransferOwnership(owner, common.Address{}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for zero owner, got %v", err)
	}
	if err := l.TransferOwnership(owner, stranger); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Owner() != stranger {
		t.Fatalf("expected owner %s, got %s", stranger.Hex(), l.Owner().Hex())
	}
	if err := l.AuthorizeOracle(owner, owner); err != domain.ErrUnauthorized {
		t.Fatalf("previous owner should be unauthorized, got %v", err)
	}
	if err := l.AuthorizeOracle(stranger, owner); err != nil {
		t.Fatalf("new owner should be authorized, got %v", err)
	}
}

func TestAccess_Matchers(t *testing.T) {
	l, _ := newTestLedger()
	matcher := common.HexToAddress("0x04")

	if err := l.AuthorizeMatcher(stranger, stranger); err != domain.ErrUnauthorized {
		t.Fatalf("AuthorizeMatcher: expected ErrUnauthorized, got %v", err)
	}
	if !l.IsAuthorizedMatcher(stranger) || len(l.Matchers()) != 0 {
		t.Fatal("expected an open matcher set before any authorization")
	}
	if err := l.AuthorizeMatcher(owner, matcher); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := l.Matchers(); len(got) != 1 || got[0] != matcher {
		t.Fatalf("unexpected matcher list %v", got)
	}
	if l.IsAuthorizedMatcher(stranger) {
		t.Fatal("stranger still authorized once a matcher is configured")
	}

	// Two asks: the ledger cannot tell sides apart, the allow-list is the gate.
	a1 := registerTestIntent(t, l, asker, "ask-1")
	a2 := registerTestIntent(t, l, bidder, "ask-2")
	if _, err := l.CreateMatch(stranger, a1, a2, uint256.NewInt(1)); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if !l.IsValid(a1) || !l.IsValid(a2) {
		t.Fatal("rejected CreateMatch consumed the intents")
	}
	if _, err := l.CreateMatch(matcher, a1, a2, uint256.NewInt(1)); err != nil {
		t.Fatalf("authorized matcher: %v", err)
	}

	if err := l.RevokeMatcher(stranger, matcher); err != domain.ErrUnauthorized {
		t.Fatalf("RevokeMatcher: expected ErrUnauthorized, got %v", err)
	}
	if err := l.RevokeMatcher(owner, matcher); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.RevokeMatcher(owner, matcher); err != domain.ErrMatcherNotFound {
		t.Fatalf("expected ErrMatcherNotFound, got %v", err)
	}
	if !l.IsAuthorizedMatcher(stranger) {
		t.Fatal("revoking the last matcher should reopen CreateMatch")
	}
}

func TestNew_GenesisMatchers(t *testing.T) {
	matcher := common.HexToAddress("0x04")
	l, err := New(Config{Owner: owner, Matchers: []common.Address{matcher}}, NewManualClock(genesisTime), nil)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	if !l.IsAuthorizedMatcher(matcher) || l.IsAuthorizedMatcher(owner) {
		t.Fatalf("unexpected matcher set %v", l.Matchers())
	}
}
