package domain

import (
	"errors"
	"fmt"
)

// ErrNegativeAmount means a transaction carried a negative amount, which the
// registry never records.
var ErrNegativeAmount = errors.New("negative transaction amount")

// ErrEmptyEntityID means an analysis was requested without an entity id.
var ErrEmptyEntityID = errors.New("empty entity id")

// ValidateRawTransaction checks the invariants the registry guarantees for a
// recorded transfer.
func ValidateRawTransaction(tx RawTransaction) error {
	if tx.Amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeAmount, tx.Amount)
	}
	return nil
}

// ValidateEntityRef checks that a focal entity reference is usable before any
// repository access: the kind must be supported and the id non-empty.
func ValidateEntityRef(ref EntityRef) error {
	if !ref.Kind.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidEntityKind, ref.Kind)
	}
	if ref.ID == "" {
		return fmt.Errorf("%w (kind %s)", ErrEmptyEntityID, ref.Kind)
	}
	return nil
}
