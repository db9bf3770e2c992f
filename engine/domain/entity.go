// Package domain defines the core registry types shared across the engine:
// entity kinds, accounts, account holders, transactions, and the error
// taxonomy for analysis failures.
package domain

import "fmt"

// EntityKind selects the granularity at which transaction endpoints are
// resolved: a single account, an account holder, or a company.
type EntityKind int

const (
	KindUnknown EntityKind = iota
	KindAccount
	KindAccountHolder
	KindCompany
)

var kindNames = map[EntityKind]string{
	KindAccount:       "Account",
	KindAccountHolder: "AccountHolder",
	KindCompany:       "Company",
}

func (k EntityKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("EntityKind(%d)", int(k))
}

// Valid reports whether k is one of the three supported kinds.
func (k EntityKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseEntityKind converts a kind name ("Account", "AccountHolder",
// "Company") into an EntityKind. Unknown names return ErrInvalidEntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrInvalidEntityKind, s)
}

// EntityRef identifies the focal entity of an analysis. Account and
// AccountHolder ids are numeric; Company ids are registration numbers and
// stay strings.
type EntityRef struct {
	Kind EntityKind
	ID   string
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}
