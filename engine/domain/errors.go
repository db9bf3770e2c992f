package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for analysis failures. All of them abort the current
// analysis only; callers decide whether to retry with another entity.
var (
	// ErrInvalidEntityKind means the requested kind is not one of Account,
	// AccountHolder or Company. Raised before any repository access.
	ErrInvalidEntityKind = errors.New("invalid entity kind")

	// ErrNotFound means the entity id matched no account or holder.
	ErrNotFound = errors.New("entity not found")

	// ErrIntegrity means the account-to-holder mapping is not total: an
	// account id failed to resolve where it must. Indicates upstream data
	// corruption and must never be swallowed.
	ErrIntegrity = errors.New("registry integrity violation")

	// ErrGraphTooLarge means the transaction graph has too many nodes to
	// produce a readable diagram.
	ErrGraphTooLarge = errors.New("transaction graph too large")

	// ErrCompanyAggregation is returned for Company-granularity
	// aggregation, which the registry data model does not define yet.
	ErrCompanyAggregation = errors.New("company-granularity aggregation not implemented")
)

// IntegrityError wraps ErrIntegrity with the offending account.
type IntegrityError struct {
	AccountID int64
	Side      string // "transferring" or "acquiring", empty for index builds
}

func (e *IntegrityError) Error() string {
	if e.Side == "" {
		return fmt.Sprintf("%s: account %d has no matching holder", ErrIntegrity, e.AccountID)
	}
	return fmt.Sprintf("%s: %s account %d has no matching holder", ErrIntegrity, e.Side, e.AccountID)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// NotFoundError wraps ErrNotFound with the entity that was looked up.
type NotFoundError struct {
	Entity EntityRef
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotFound, e.Entity)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
