package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Side indicates whether an intent is a bid (buy) or ask (sell).
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// Payload is the off-ledger body of an intent. Only its commitment is
// stored on the ledger.
type Payload struct {
	Side     Side
	Asset    string
	Price    *uint256.Int // smallest denomination per unit
	Quantity uint64
	Salt     common.Hash
}

// Commitment returns the hash registered on the ledger for this payload.
// The salt keeps equal orders from producing equal commitments.
func (p Payload) Commitment() common.Hash {
	price := cloneAmount(p.Price).Bytes32()
	return crypto.Keccak256Hash(
		[]byte(p.Side), []byte{0},
		[]byte(p.Asset), []byte{0},
		price[:],
		word(p.Quantity),
		p.Salt.Bytes(),
	)
}
