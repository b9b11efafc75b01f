package handler

import (
	"errors"
	"net/http"

	"github.com/efreitasn/arcclear/internal/domain"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation:    http.StatusBadRequest,
	domain.KindAuthorization: http.StatusForbidden,
	domain.KindNotFound:      http.StatusNotFound,
	domain.KindState:         http.StatusConflict,
	domain.KindTiming:        http.StatusConflict,
}

// writeDomainError maps service and ledger errors to HTTP responses.
// Ledger errors carry their own code; anything unclassified is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	var ledgerErr *domain.Error
	if errors.As(err, &ledgerErr) {
		status, ok := kindStatus[ledgerErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		WriteError(w, status, ledgerErr.Code, errorMessage(ledgerErr))
		return
	}

	WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}

var messages = map[*domain.Error]string{
	domain.ErrInvalidExpiry:               "valid_until must be in the future",
	domain.ErrUnauthorized:                "caller is not allowed to perform this operation",
	domain.ErrUnauthorizedParty:           "caller is not a party to this match",
	domain.ErrInvalidIntents:              "one or both intents are no longer valid",
	domain.ErrInsufficientEscrow:          "deposit is below the match price",
	domain.ErrInsufficientFunds:           "balance is too low",
	domain.ErrInvalidPaymentProof:         "payment has not been verified for the match price",
	domain.ErrPaymentRefConsumed:          "payment has already settled another match",
	domain.ErrSettlementTimeoutNotReached: "settlement deadline has not passed yet",
	domain.ErrDisputeWindowExpired:        "dispute window has closed",
}

func errorMessage(e *domain.Error) string {
	if msg, ok := messages[e]; ok {
		return msg
	}
	return e.Code
}
