package wayfind

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jward/wayfind/internal/store"
)

// Fallback lookups are memoised per snapshot. A snapshot is replaced when
// the index changes, so entries only expire to bound memory.
const (
	lookupTTL     = 5 * time.Minute
	lookupCleanup = 10 * time.Minute
)

func newLookupCache() *cache.Cache {
	return cache.New(lookupTTL, lookupCleanup)
}

// symbolIndex is the name-keyed fallback lookup. *store.Store implements it.
type symbolIndex interface {
	SymbolMatchesByName(name string) ([]store.SymbolMatch, error)
}

var _ symbolIndex = (*store.Store)(nil)

// indexedSymbol is an index hit whose file is part of the snapshot.
type indexedSymbol struct {
	sym  *store.Symbol
	file FileID
}

// indexResolve returns the indexed symbols named exactly name, in index
// order. Symbols of files the snapshot does not know, or whose file was
// reindexed since the snapshot was taken, are dropped. Nothing is verified
// semantically.
func (a *Analysis) indexResolve(ctx context.Context, name string) ([]indexedSymbol, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cached, found := a.lookups.Get(name); found {
		return cached.([]indexedSymbol), nil
	}
	matches, err := a.index.SymbolMatchesByName(name)
	if err != nil {
		return nil, fmt.Errorf("symbol index: %w", err)
	}
	var hits []indexedSymbol
	for _, m := range matches {
		if m.FileID == nil {
			continue
		}
		sf, ok := a.storeFiles[*m.FileID]
		if !ok || sf.hash != m.FileHash {
			continue
		}
		hits = append(hits, indexedSymbol{sym: m.Symbol, file: sf.id})
	}
	a.lookups.Set(name, hits, cache.DefaultExpiration)
	return hits, nil
}
