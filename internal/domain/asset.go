package domain

import (
	"sort"
	"sync"
)

// Asset is a settlement asset known to the gateway.
type Asset struct {
	Symbol   string
	Decimals int32
}

// AssetRegistry tracks the settlement assets intents may reference.
type AssetRegistry struct {
	mu     sync.RWMutex
	assets map[string]Asset
}

// NewAssetRegistry creates an empty AssetRegistry.
func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{
		assets: make(map[string]Asset),
	}
}

// Register adds or replaces an asset. Safe for concurrent use.
func (r *AssetRegistry) Register(a Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[a.Symbol] = a
}

// Get returns the asset registered under symbol.
func (r *AssetRegistry) Get(symbol string) (Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[symbol]
	if !ok {
		return Asset{}, ErrAssetNotFound
	}
	return a, nil
}

// List returns all registered assets ordered by symbol.
func (r *AssetRegistry) List() []Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Asset, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
