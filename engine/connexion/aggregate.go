package connexion

import (
	"context"
	"fmt"

	"github.com/carbonlens/carbonlens/engine/domain"
	"github.com/carbonlens/carbonlens/engine/identity"
	"github.com/carbonlens/carbonlens/engine/registry"
	"github.com/carbonlens/carbonlens/pkg/fn"
)

// aggregate fetches every resolved account's transaction page, merges them
// and re-keys both endpoints to the session's granularity. An entity with no
// transactions yields an empty table, which is a valid result. A merged page
// missing required columns degrades to an empty table with a warning instead
// of failing the analysis.
func (s *Session) aggregate(ctx context.Context, res resolution) ([]domain.NormalizedTransaction, error) {
	if s.ref.Kind == domain.KindCompany {
		return nil, fmt.Errorf("aggregate %s: %w", s.ref, domain.ErrCompanyAggregation)
	}

	pages := make([]registry.TransactionPage, 0, len(res.accounts))
	for _, acc := range res.accounts {
		page, err := s.deps.Store.TransactionsForAccount(ctx, acc.ID)
		if err != nil {
			return nil, fmt.Errorf("transactions of account %d: %w", acc.ID, err)
		}
		pages = append(pages, page)
	}

	merged := registry.Merge(pages)
	if merged.Empty() {
		return nil, nil
	}
	if !merged.HasColumns(domain.RequiredTransactionColumns()) {
		s.warn("transaction schema drift, analysis degraded to empty result",
			"entity", s.ref.String(), "columns", merged.Columns)
		return nil, nil
	}

	rows := merged.Rows
	if !s.period.From.IsZero() || !s.period.To.IsZero() {
		rows = fn.Filter(rows, func(r domain.RawTransaction) bool {
			return s.period.contains(r.Timestamp)
		})
	}

	switch s.ref.Kind {
	case domain.KindAccount:
		return s.normalizeAccounts(rows), nil
	case domain.KindAccountHolder:
		return s.normalizeHolders(ctx, rows)
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEntityKind, s.ref.Kind)
}

// normalizeAccounts re-keys endpoints at account granularity. The mapping is
// a rename; a missing endpoint account id becomes the sentinel entity so the
// edge survives into the graph.
func (s *Session) normalizeAccounts(rows []domain.RawTransaction) []domain.NormalizedTransaction {
	out := make([]domain.NormalizedTransaction, 0, len(rows))
	missing := 0
	for _, r := range rows {
		tr := domain.NormalizedTransaction{
			Datetime:            r.Timestamp,
			Amount:              r.Amount,
			TransferringName:    r.TransferringAccountName,
			TransferringType:    r.TransferringAccountType,
			AcquiringName:       r.AcquiringAccountName,
			AcquiringType:       r.AcquiringAccountType,
			TransactionTypeMain: r.TransactionTypeMain,
			TransactionTypeSupp: r.TransactionTypeSupp,
			UnitType:            r.UnitType,
		}
		if r.TransferringAccountID != nil {
			tr.TransferringID = *r.TransferringAccountID
		} else {
			tr.TransferringID = domain.SentinelEntityID
			tr.TransferringName = domain.SentinelEntityName
			tr.TransferringType = domain.SentinelEntityName
			missing++
		}
		if r.AcquiringAccountID != nil {
			tr.AcquiringID = *r.AcquiringAccountID
		} else {
			tr.AcquiringID = domain.SentinelEntityID
			tr.AcquiringName = domain.SentinelEntityName
			tr.AcquiringType = domain.SentinelEntityName
			missing++
		}
		out = append(out, tr)
	}
	if missing > 0 {
		s.warn("transactions with missing endpoint account id mapped to sentinel entity",
			"entity", s.ref.String(), "endpoints", missing)
	}
	return out
}

// normalizeHolders re-keys both endpoints to their account holders. Missing
// endpoint account ids become the sentinel entity; an account id that the
// holder index cannot resolve is an integrity failure. Transactions between
// two accounts of the same holder are internal transfers and are removed.
func (s *Session) normalizeHolders(ctx context.Context, rows []domain.RawTransaction) ([]domain.NormalizedTransaction, error) {
	idx, err := s.deps.Holders.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("holder index: %w", err)
	}

	out := make([]domain.NormalizedTransaction, 0, len(rows))
	missing := 0
	selfTrades := 0
	for _, r := range rows {
		fromID, fromName, err := holderEndpoint(idx, r.TransferringAccountID, "transferring", &missing)
		if err != nil {
			return nil, err
		}
		toID, toName, err := holderEndpoint(idx, r.AcquiringAccountID, "acquiring", &missing)
		if err != nil {
			return nil, err
		}

		// Two sentinel endpoints are distinct unknowns, not a self-trade.
		if fromID == toID && fromID != domain.SentinelEntityID {
			selfTrades++
			continue
		}

		out = append(out, domain.NormalizedTransaction{
			Datetime:            r.Timestamp,
			Amount:              r.Amount,
			TransferringID:      fromID,
			TransferringName:    fromName,
			TransferringType:    domain.SentinelEntityName,
			AcquiringID:         toID,
			AcquiringName:       toName,
			AcquiringType:       domain.SentinelEntityName,
			TransactionTypeMain: r.TransactionTypeMain,
			TransactionTypeSupp: r.TransactionTypeSupp,
			UnitType:            r.UnitType,
		})
	}

	if missing > 0 {
		s.warn("transactions with missing endpoint account id mapped to sentinel entity",
			"entity", s.ref.String(), "endpoints", missing)
	}
	if selfTrades > 0 {
		s.deps.Logger.Debug("intra-holder transfers removed",
			"entity", s.ref.String(), "count", selfTrades)
	}
	return out, nil
}

func holderEndpoint(idx *identity.HolderIndex, accountID *int64, side string, missing *int) (int64, string, error) {
	if accountID == nil {
		*missing++
		return domain.SentinelEntityID, domain.SentinelEntityName, nil
	}
	h, ok := idx.Lookup(*accountID)
	if !ok {
		return 0, "", &domain.IntegrityError{AccountID: *accountID, Side: side}
	}
	return h.ID, h.Name, nil
}
