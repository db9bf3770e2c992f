// Package repo defines the generic read-only Repository interface and list
// options. The registry is never mutated by an analysis, so there is no
// write surface.
package repo

import (
	"context"
	"errors"
)

// ErrNotFound is wrapped by Get when no node matches the id.
var ErrNotFound = errors.New("not found")

// Repository is a generic read-only lookup interface.
type Repository[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (T, error)
	List(ctx context.Context, opts ListOpts) ([]T, error)
}

// ListOpts controls pagination and filtering for List operations.
type ListOpts struct {
	Offset int
	Limit  int
	Filter map[string]any
}
