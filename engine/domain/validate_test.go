package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateRawTransaction(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr error
	}{
		{"positive", "100", nil},
		{"zero", "0", nil},
		{"negative", "-1", ErrNegativeAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := RawTransaction{Amount: decimal.RequireFromString(tt.amount)}
			err := ValidateRawTransaction(tx)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEntityRef(t *testing.T) {
	tests := []struct {
		name    string
		ref     EntityRef
		wantErr error
	}{
		{"valid account", EntityRef{Kind: KindAccount, ID: "42"}, nil},
		{"valid company", EntityRef{Kind: KindCompany, ID: "FN 215854h"}, nil},
		{"bad kind", EntityRef{Kind: KindUnknown, ID: "42"}, ErrInvalidEntityKind},
		{"empty id", EntityRef{Kind: KindAccount, ID: ""}, ErrEmptyEntityID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntityRef(tt.ref)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	var err error = &IntegrityError{AccountID: 900, Side: "acquiring"}
	if !errors.Is(err, ErrIntegrity) {
		t.Error("IntegrityError should wrap ErrIntegrity")
	}
	err = &NotFoundError{Entity: EntityRef{Kind: KindAccount, ID: "7"}}
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should wrap ErrNotFound")
	}
}
