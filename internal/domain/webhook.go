package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Webhook is an actor's subscription to one ledger event type, keyed by
// (Actor, Event). Delivery counters are maintained by the store.
type Webhook struct {
	WebhookID string
	Actor     common.Address
	Event     EventType
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time

	Deliveries     uint64
	Failures       uint64
	LastDeliveryAt time.Time
	LastError      string
}
