package index

import (
	"bytes"
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/btree"

	"github.com/efreitasn/arcclear/internal/domain"
)

func quoteLess(a, b Quote) bool {
	return bytes.Compare(a.IntentID[:], b.IntentID[:]) < 0
}

// MemoryIndex is an in-process Index backed by a B-tree.
type MemoryIndex struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[Quote]
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{tree: btree.NewG[Quote](16, quoteLess)}
}

func (m *MemoryIndex) Put(_ context.Context, q Quote) error {
	if q.Payload.Price != nil {
		q.Payload.Price = q.Payload.Price.Clone()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.ReplaceOrInsert(q)
	return nil
}

func (m *MemoryIndex) Get(_ context.Context, id common.Hash) (Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.tree.Get(Quote{IntentID: id})
	if !ok {
		return Quote{}, domain.ErrQuoteNotFound
	}
	return q, nil
}

func (m *MemoryIndex) List(_ context.Context) ([]Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Quote, 0, m.tree.Len())
	m.tree.Ascend(func(q Quote) bool {
		out = append(out, q)
		return true
	})
	return out, nil
}

func (m *MemoryIndex) Delete(_ context.Context, id common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.Delete(Quote{IntentID: id})
	return nil
}

// Len returns the number of indexed quotes.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}
