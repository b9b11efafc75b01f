// Package index is the off-ledger read model mapping intent ids to the
// payloads they commit to. The matching engine reads it every cycle; the
// projector keeps it in step with ledger events.
package index

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/efreitasn/arcclear/internal/domain"
)

// Quote is an indexed intent payload.
type Quote struct {
	IntentID common.Hash
	Payload  domain.Payload
}

// Index stores quotes by intent id.
type Index interface {
	// Put inserts or replaces the quote for q.IntentID.
	Put(ctx context.Context, q Quote) error
	// Get returns domain.ErrQuoteNotFound if no quote is indexed for id.
	Get(ctx context.Context, id common.Hash) (Quote, error)
	// List returns every quote ordered by intent id.
	List(ctx context.Context) ([]Quote, error)
	// Delete removes a quote. Deleting a missing quote is a no-op.
	Delete(ctx context.Context, id common.Hash) error
}
