package domain

import (
	"errors"
	"testing"
)

func TestParseEntityKind(t *testing.T) {
	tests := []struct {
		input   string
		want    EntityKind
		wantErr bool
	}{
		{"Account", KindAccount, false},
		{"AccountHolder", KindAccountHolder, false},
		{"Company", KindCompany, false},
		{"account", KindUnknown, true},
		{"Holder", KindUnknown, true},
		{"", KindUnknown, true},
	}
	for _, tt := range tests {
		got, err := ParseEntityKind(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseEntityKind(%q): expected error", tt.input)
			}
			if !errors.Is(err, ErrInvalidEntityKind) {
				t.Errorf("ParseEntityKind(%q): error should wrap ErrInvalidEntityKind, got %v", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseEntityKind(%q): unexpected error %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseEntityKind(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestEntityKindString(t *testing.T) {
	if KindAccountHolder.String() != "AccountHolder" {
		t.Errorf("unexpected name: %s", KindAccountHolder)
	}
	if KindUnknown.Valid() {
		t.Error("KindUnknown must not be valid")
	}
	if !KindCompany.Valid() {
		t.Error("KindCompany must be valid")
	}
}

func TestEntityRefString(t *testing.T) {
	ref := EntityRef{Kind: KindAccountHolder, ID: "81"}
	if ref.String() != "AccountHolder:81" {
		t.Errorf("unexpected ref string: %s", ref)
	}
}
