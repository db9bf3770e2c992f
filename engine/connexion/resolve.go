package connexion

import (
	"context"
	"fmt"

	"github.com/carbonlens/carbonlens/engine/domain"
)

// resolution is the focal entity resolved to its accounts and display name.
type resolution struct {
	name      string
	focalID   int64  // graph node id for the focal entity
	focalType string // focal node type when it never trades
	accounts  []domain.Account
}

// resolve looks up the focal entity's accounts at the session's granularity.
// Account: the single account itself. AccountHolder: every account the
// holder owns. Company: every account registered under the company number;
// companies carry no display name in the registry.
func (s *Session) resolve(ctx context.Context) (resolution, error) {
	switch s.ref.Kind {
	case domain.KindAccount:
		acc, err := s.deps.Store.AccountByID(ctx, s.numericID)
		if err != nil {
			return resolution{}, fmt.Errorf("resolve %s: %w", s.ref, err)
		}
		return resolution{
			name:      acc.Name,
			focalID:   acc.ID,
			focalType: acc.Type,
			accounts:  []domain.Account{acc},
		}, nil

	case domain.KindAccountHolder:
		holder, err := s.deps.Store.HolderByID(ctx, s.numericID)
		if err != nil {
			return resolution{}, fmt.Errorf("resolve %s: %w", s.ref, err)
		}
		accounts, err := s.deps.Store.AccountsByHolder(ctx, s.numericID)
		if err != nil {
			return resolution{}, fmt.Errorf("accounts of %s: %w", s.ref, err)
		}
		return resolution{
			name:      holder.Name,
			focalID:   holder.ID,
			focalType: domain.SentinelEntityName,
			accounts:  accounts,
		}, nil

	case domain.KindCompany:
		accounts, err := s.deps.Store.AccountsByCompany(ctx, s.ref.ID)
		if err != nil {
			return resolution{}, fmt.Errorf("resolve %s: %w", s.ref, err)
		}
		if len(accounts) == 0 {
			return resolution{}, &domain.NotFoundError{Entity: s.ref}
		}
		return resolution{accounts: accounts}, nil
	}

	// NewSession already rejected every other kind.
	return resolution{}, fmt.Errorf("%w: %v", domain.ErrInvalidEntityKind, s.ref.Kind)
}
