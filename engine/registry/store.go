// Package registry exposes the read-only query interface over the emissions
// registry: accounts, account holders, and the transactions recorded against
// each account.
package registry

import (
	"context"

	"github.com/carbonlens/carbonlens/engine/domain"
	"github.com/carbonlens/carbonlens/pkg/fn"
)

// Store is the repository consumed by an analysis. Implementations must not
// be mutated by callers; every method is a pure read.
type Store interface {
	// AccountByID returns the single account with the given id.
	AccountByID(ctx context.Context, id int64) (domain.Account, error)
	// AccountsByHolder returns all accounts owned by the holder.
	AccountsByHolder(ctx context.Context, holderID int64) ([]domain.Account, error)
	// AccountsByCompany returns all accounts whose company registration
	// number equals registration. Company ids are not guaranteed numeric.
	AccountsByCompany(ctx context.Context, registration string) ([]domain.Account, error)
	// HolderByID returns the account holder with the given id.
	HolderByID(ctx context.Context, id int64) (domain.AccountHolder, error)
	// AllAccountsWithHolder returns every account that has a holder id.
	AllAccountsWithHolder(ctx context.Context) ([]domain.Account, error)
	// AllHolders returns every account holder.
	AllHolders(ctx context.Context) ([]domain.AccountHolder, error)
	// TransactionsForAccount returns the transactions recorded against an
	// account, on either endpoint. An empty page means no transactions.
	TransactionsForAccount(ctx context.Context, accountID int64) (TransactionPage, error)
}

// TransactionPage is one account's transaction table. Columns reports the
// column set actually present in the backing store so that schema drift is
// observable by the aggregator instead of crashing it.
type TransactionPage struct {
	Columns []string
	Rows    []domain.RawTransaction
}

// Empty reports whether the page holds no transactions.
func (p TransactionPage) Empty() bool { return len(p.Rows) == 0 }

// HasColumns reports whether every column in required is present.
func (p TransactionPage) HasColumns(required []string) bool {
	set := make(map[string]struct{}, len(p.Columns))
	for _, c := range p.Columns {
		set[c] = struct{}{}
	}
	for _, c := range required {
		if _, ok := set[c]; !ok {
			return false
		}
	}
	return true
}

// Merge concatenates pages. The merged column set is the intersection of the
// contributing pages, so partial schema drift surfaces as missing columns
// instead of hiding behind a union.
func Merge(pages []TransactionPage) TransactionPage {
	var merged TransactionPage
	first := true
	for _, p := range pages {
		if p.Empty() {
			continue
		}
		merged.Rows = append(merged.Rows, p.Rows...)
		if first {
			merged.Columns = append([]string(nil), p.Columns...)
			first = false
			continue
		}
		merged.Columns = intersect(merged.Columns, p.Columns)
	}
	return merged
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, c := range b {
		set[c] = struct{}{}
	}
	return fn.Filter(a, func(c string) bool {
		_, ok := set[c]
		return ok
	})
}
