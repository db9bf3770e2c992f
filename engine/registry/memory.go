package registry

import (
	"context"
	"sort"
	"strconv"

	"github.com/carbonlens/carbonlens/engine/domain"
	"github.com/carbonlens/carbonlens/pkg/fn"
)

// MemStore is an in-memory Store used in tests and examples. Lookups are
// deterministic: every listing is ordered by id.
type MemStore struct {
	Accounts     map[int64]domain.Account
	Holders      map[int64]domain.AccountHolder
	Transactions map[int64]TransactionPage // keyed by account id
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		Accounts:     make(map[int64]domain.Account),
		Holders:      make(map[int64]domain.AccountHolder),
		Transactions: make(map[int64]TransactionPage),
	}
}

// AddAccount registers an account.
func (m *MemStore) AddAccount(acc domain.Account) { m.Accounts[acc.ID] = acc }

// AddHolder registers an account holder.
func (m *MemStore) AddHolder(h domain.AccountHolder) { m.Holders[h.ID] = h }

// AddTransactions registers an account's transaction page.
func (m *MemStore) AddTransactions(accountID int64, page TransactionPage) {
	m.Transactions[accountID] = page
}

func (m *MemStore) AccountByID(_ context.Context, id int64) (domain.Account, error) {
	acc, ok := m.Accounts[id]
	if !ok {
		return domain.Account{}, &domain.NotFoundError{Entity: domain.EntityRef{Kind: domain.KindAccount, ID: strconv.FormatInt(id, 10)}}
	}
	return acc, nil
}

func (m *MemStore) HolderByID(_ context.Context, id int64) (domain.AccountHolder, error) {
	h, ok := m.Holders[id]
	if !ok {
		return domain.AccountHolder{}, &domain.NotFoundError{Entity: domain.EntityRef{Kind: domain.KindAccountHolder, ID: strconv.FormatInt(id, 10)}}
	}
	return h, nil
}

func (m *MemStore) AccountsByHolder(_ context.Context, holderID int64) ([]domain.Account, error) {
	return m.selectAccounts(func(a domain.Account) bool {
		return a.HolderID != nil && *a.HolderID == holderID
	}), nil
}

func (m *MemStore) AccountsByCompany(_ context.Context, registration string) ([]domain.Account, error) {
	return m.selectAccounts(func(a domain.Account) bool {
		return a.CompanyRegistration != "" && a.CompanyRegistration == registration
	}), nil
}

func (m *MemStore) AllAccountsWithHolder(_ context.Context) ([]domain.Account, error) {
	return m.selectAccounts(func(a domain.Account) bool { return a.HolderID != nil }), nil
}

func (m *MemStore) AllHolders(_ context.Context) ([]domain.AccountHolder, error) {
	holders := make([]domain.AccountHolder, 0, len(m.Holders))
	for _, h := range m.Holders {
		holders = append(holders, h)
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i].ID < holders[j].ID })
	return holders, nil
}

func (m *MemStore) TransactionsForAccount(_ context.Context, accountID int64) (TransactionPage, error) {
	return m.Transactions[accountID], nil
}

func (m *MemStore) selectAccounts(pred func(domain.Account) bool) []domain.Account {
	all := make([]domain.Account, 0, len(m.Accounts))
	for _, a := range m.Accounts {
		all = append(all, a)
	}
	out := fn.Filter(all, pred)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
