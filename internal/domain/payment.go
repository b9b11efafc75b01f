package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// PaymentVerification is an oracle attestation that an off-ledger payment
// completed. Records are immutable once written.
type PaymentVerification struct {
	PaymentRef common.Hash
	Amount     *uint256.Int
	Payer      common.Address
	Payee      common.Address
	VerifiedAt uint64
	MandateRef common.Hash
	Verified   bool
}

// Clone returns a deep copy of the record.
func (p *PaymentVerification) Clone() *PaymentVerification {
	c := *p
	c.Amount = cloneAmount(p.Amount)
	return &c
}

// Mandate is an externally issued credential authorizing payments on
// behalf of a payer. A zero ValidUntil never expires.
type Mandate struct {
	Ref          common.Hash
	RegisteredAt uint64
	ValidUntil   uint64
	Revoked      bool
}

// IsValidAt reports whether the mandate may back a payment at ledger time now.
func (m *Mandate) IsValidAt(now uint64) bool {
	if m.Revoked {
		return false
	}
	return m.ValidUntil == 0 || now < m.ValidUntil
}

// PaymentRefOf maps an external payment identifier to its fixed-size
// ledger reference. A 0x-prefixed 32-byte hex string is used as is, any
// other identifier (e.g. "pi_3Nx...") is hashed.
func PaymentRefOf(externalID string) common.Hash {
	if b, err := hexutil.Decode(externalID); err == nil && len(b) == common.HashLength {
		return common.BytesToHash(b)
	}
	return crypto.Keccak256Hash([]byte(externalID))
}
