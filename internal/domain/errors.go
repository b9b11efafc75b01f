package domain

import "errors"

// ErrorKind classifies ledger errors. The handler layer maps kinds to
// HTTP status codes and the matching engine uses them to tell a lost race
// from a real rejection.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindState         ErrorKind = "state"
	KindNotFound      ErrorKind = "not_found"
	KindTiming        ErrorKind = "timing"
)

// Error is a ledger error. Every failing operation returns one of the
// sentinel values below, so callers compare with errors.Is.
type Error struct {
	Kind ErrorKind
	Code string
}

func (e *Error) Error() string {
	return e.Code
}

func newError(kind ErrorKind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

var (
	ErrInvalidExpiry      = newError(KindValidation, "invalid_expiry")
	ErrInvalidAmount      = newError(KindValidation, "invalid_amount")
	ErrInvalidMandate     = newError(KindValidation, "invalid_mandate")
	ErrInsufficientEscrow = newError(KindValidation, "insufficient_escrow")
	ErrInsufficientFunds  = newError(KindValidation, "insufficient_balance")
	ErrAssetMismatch      = newError(KindValidation, "asset_mismatch")
	ErrBalanceOverflow    = newError(KindValidation, "balance_overflow")

	ErrUnauthorized      = newError(KindAuthorization, "unauthorized")
	ErrUnauthorizedParty = newError(KindAuthorization, "unauthorized_party")

	ErrDuplicateIntent     = newError(KindState, "duplicate_intent")
	ErrAlreadyInactive     = newError(KindState, "already_inactive")
	ErrNotActive           = newError(KindState, "not_active")
	ErrInvalidIntents      = newError(KindState, "invalid_intents")
	ErrMatchAlreadyExists  = newError(KindState, "match_already_exists")
	ErrInvalidMatchStatus  = newError(KindState, "invalid_match_status")
	ErrAlreadyFunded       = newError(KindState, "already_funded")
	ErrAlreadyVerified     = newError(KindState, "already_verified")
	ErrInvalidPaymentProof = newError(KindState, "invalid_payment_proof")
	ErrPaymentRefConsumed  = newError(KindState, "payment_ref_consumed")

	ErrIntentNotFound       = newError(KindNotFound, "intent_not_found")
	ErrMatchNotFound        = newError(KindNotFound, "match_not_found")
	ErrVerificationNotFound = newError(KindNotFound, "verification_not_found")
	ErrMandateNotFound      = newError(KindNotFound, "mandate_not_found")
	ErrOracleNotFound       = newError(KindNotFound, "oracle_not_found")
	ErrMatcherNotFound      = newError(KindNotFound, "matcher_not_found")
	ErrQuoteNotFound        = newError(KindNotFound, "quote_not_found")
	ErrAssetNotFound        = newError(KindNotFound, "asset_not_found")
	ErrWebhookNotFound      = newError(KindNotFound, "webhook_not_found")

	ErrSettlementTimeoutNotReached = newError(KindTiming, "settlement_timeout_not_reached")
	ErrDisputeWindowExpired        = newError(KindTiming, "dispute_window_expired")
)

// KindOf returns the kind of a ledger error, or "" for any other error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
