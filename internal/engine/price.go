package engine

import "github.com/holiman/uint256"

// settlementPrice returns the midpoint of a crossed pair rounded up, so
// an odd spread resolves in the asker's favour. bid must be >= ask.
// Computing ask + (bid-ask+1)/2 cannot overflow for any ask > 0.
func settlementPrice(bid, ask *uint256.Int) *uint256.Int {
	p := new(uint256.Int).Sub(bid, ask)
	p.AddUint64(p, 1)
	p.Rsh(p, 1)
	return p.Add(p, ask)
}

func minQuantity(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
