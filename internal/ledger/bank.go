package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/efreitasn/arcclear/internal/domain"
)

// EscrowAccount holds the funds locked in matches. Nothing but escrow code
// moves funds in or out of it.
var EscrowAccount = common.BytesToAddress(crypto.Keccak256([]byte("arcclear.escrow.custody"))[12:])

// BalanceOf returns the account's balance in asset.
func (l *Ledger) BalanceOf(account common.Address, asset string) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances.BalanceOf(account, asset)
}

// Transfer moves amount of asset from the caller to another account.
func (l *Ledger) Transfer(caller, to common.Address, asset string, amount *uint256.Int) error {
	return l.transact("transfer", func(t *tx) error {
		if amount == nil || amount.IsZero() {
			return domain.ErrInvalidAmount
		}
		if to == EscrowAccount {
			return domain.ErrUnauthorized
		}
		return l.balances.Move(caller, to, asset, amount)
	})
}
