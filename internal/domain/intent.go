package domain

import "github.com/ethereum/go-ethereum/common"

// Intent is the on-ledger commitment to a bid or ask. The payload it
// commits to (side, price, quantity) lives off-ledger.
type Intent struct {
	IntentID        common.Hash
	CommittedHash   common.Hash
	Actor           common.Address
	CreatedAt       uint64
	ValidUntil      uint64
	MandateRef      common.Hash
	SettlementAsset string
	Active          bool
	Matched         bool
}

// IsValidAt reports whether the intent can still be matched at ledger time now.
func (i *Intent) IsValidAt(now uint64) bool {
	return i.Active && !i.Matched && i.ValidUntil > now
}
