package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// DeriveIntentID computes keccak256(committedHash ‖ actor ‖ createdAt ‖ seq)
// with integers encoded as 32-byte big-endian words.
func DeriveIntentID(committed common.Hash, actor common.Address, createdAt, seq uint64) common.Hash {
	return crypto.Keccak256Hash(committed.Bytes(), actor.Bytes(), word(createdAt), word(seq))
}

// DeriveMatchID computes keccak256(bidID ‖ askID ‖ price ‖ createdAt).
func DeriveMatchID(bid, ask common.Hash, price *uint256.Int, createdAt uint64) common.Hash {
	p := cloneAmount(price).Bytes32()
	return crypto.Keccak256Hash(bid.Bytes(), ask.Bytes(), p[:], word(createdAt))
}

func word(v uint64) []byte {
	w := uint256.NewInt(v).Bytes32()
	return w[:]
}
