// Package identity resolves accounts to their account holders. The index is
// the single lookup table used whenever transactions are aggregated at
// holder granularity.
package identity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/carbonlens/carbonlens/engine/domain"
	"github.com/carbonlens/carbonlens/engine/registry"
)

// Holder is the holder side of an account-to-holder mapping entry.
type Holder struct {
	ID   int64
	Name string
}

// HolderIndex maps account ids to their holder. Immutable once built; safe
// to share across concurrent analyses.
type HolderIndex struct {
	byAccount map[int64]Holder
}

// BuildHolderIndex constructs the account-to-holder index from the full
// account and holder tables. Accounts without a holder id are dropped (they
// cannot be aggregated to holder granularity). An account whose holder id is
// missing from the holder table is a hard ErrIntegrity failure: the mapping
// must be total.
func BuildHolderIndex(ctx context.Context, store registry.Store, logger *slog.Logger) (*HolderIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}

	accounts, err := store.AllAccountsWithHolder(ctx)
	if err != nil {
		return nil, err
	}
	holders, err := store.AllHolders(ctx)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(holders))
	for _, h := range holders {
		names[h.ID] = h.Name
	}

	idx := &HolderIndex{byAccount: make(map[int64]Holder, len(accounts))}
	dropped := 0
	for _, acc := range accounts {
		if acc.HolderID == nil {
			dropped++
			continue
		}
		name, ok := names[*acc.HolderID]
		if !ok {
			return nil, &domain.IntegrityError{AccountID: acc.ID}
		}
		idx.byAccount[acc.ID] = Holder{ID: *acc.HolderID, Name: name}
	}
	if dropped > 0 {
		logger.Warn("holder index: accounts without holder dropped", "count", dropped)
	}
	logger.Info("holder index built", "accounts", len(idx.byAccount), "holders", len(holders))
	return idx, nil
}

// Lookup returns the holder owning the account.
func (i *HolderIndex) Lookup(accountID int64) (Holder, bool) {
	h, ok := i.byAccount[accountID]
	return h, ok
}

// Len returns the number of mapped accounts.
func (i *HolderIndex) Len() int { return len(i.byAccount) }

// Cache builds the holder index at most once and reuses it afterwards. The
// once barrier makes first construction safe under concurrent analyses; the
// built index is never mutated.
type Cache struct {
	store  registry.Store
	logger *slog.Logger

	once sync.Once
	idx  *HolderIndex
	err  error
}

// NewCache creates a lazy holder-index cache over the store.
func NewCache(store registry.Store, logger *slog.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// Get returns the shared index, building it on first use. A failed build is
// sticky: the registry data is broken and retrying cannot fix it mid-run.
func (c *Cache) Get(ctx context.Context) (*HolderIndex, error) {
	c.once.Do(func() {
		c.idx, c.err = BuildHolderIndex(ctx, c.store, c.logger)
	})
	return c.idx, c.err
}
