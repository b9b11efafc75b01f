package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EventType names a ledger event.
type EventType string

const (
	EventIntentRegistered  EventType = "intent.registered"
	EventIntentCancelled   EventType = "intent.cancelled"
	EventIntentMatched     EventType = "intent.matched"
	EventMatchCreated      EventType = "match.created"
	EventEscrowFunded      EventType = "escrow.funded"
	EventMatchFunded       EventType = "match.funded"
	EventMatchSettled      EventType = "match.settled"
	EventMatchDisputed     EventType = "match.disputed"
	EventMatchCancelled    EventType = "match.cancelled"
	EventPaymentVerified   EventType = "payment.verified"
	EventOracleAuthorized  EventType = "oracle.authorized"
	EventOracleRevoked     EventType = "oracle.revoked"
	EventMatcherAuthorized EventType = "matcher.authorized"
	EventMatcherRevoked    EventType = "matcher.revoked"
	EventMandateRegistered EventType = "mandate.registered"
	EventMandateRevoked    EventType = "mandate.revoked"
	EventOwnerChanged      EventType = "owner.changed"

	// EventIntentExpired is never journaled: expiry is implicit in ledger
	// time. It is only sent to webhook subscribers.
	EventIntentExpired EventType = "intent.expired"
)

// Event is an entry of the ledger journal. Read models are rebuilt by
// replaying events in Seq order.
type Event struct {
	Seq        uint64
	Type       EventType
	Time       uint64
	IntentID   common.Hash
	MatchID    common.Hash
	PaymentRef common.Hash
	MandateRef common.Hash
	Actor      common.Address
	Parties    []common.Address
	Asset      string
	Amount     *uint256.Int
}
