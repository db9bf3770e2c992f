package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is one registry account. HolderID is nil for accounts with no
// recorded account holder; CompanyRegistration may be empty or carry a
// registry "missing" sentinel.
type Account struct {
	ID                  int64
	Name                string
	Type                string
	HolderID            *int64
	CompanyRegistration string
}

// AccountHolder owns one or more accounts.
type AccountHolder struct {
	ID   int64
	Name string
}

// SentinelEntityID replaces endpoint ids that are missing upstream so that
// edges are not silently dropped from the graph.
const SentinelEntityID int64 = -1

// SentinelEntityName is the display name paired with SentinelEntityID.
const SentinelEntityName = "unknown"

// RawTransaction is one transfer as recorded by the registry, keyed by
// account on both endpoints. Endpoint account ids are nullable in the source
// data.
type RawTransaction struct {
	Timestamp                time.Time
	Amount                   decimal.Decimal
	TransferringAccountID    *int64
	TransferringAccountName  string
	TransferringAccountType  string
	AcquiringAccountID       *int64
	AcquiringAccountName     string
	AcquiringAccountType     string
	TransactionTypeMain      string
	TransactionTypeSupp      string
	UnitType                 string
}

// NormalizedTransaction is a RawTransaction with both endpoints re-keyed to
// the requested entity granularity. The field set is identical for every
// granularity.
type NormalizedTransaction struct {
	Datetime            time.Time
	Amount              decimal.Decimal
	TransferringID      int64
	TransferringName    string
	TransferringType    string
	AcquiringID         int64
	AcquiringName       string
	AcquiringType       string
	TransactionTypeMain string
	TransactionTypeSupp string
	UnitType            string
}

// Raw transaction column names as exposed by the registry store. The
// aggregator refuses to normalize a transaction page that does not carry all
// of them.
const (
	ColDatetime                = "datetime"
	ColAmount                  = "amount"
	ColTransferringAccountID   = "transferringAccount_id"
	ColTransferringAccountName = "transferringAccountName"
	ColTransferringAccountType = "transferringAccountType"
	ColAcquiringAccountID      = "acquiringAccount_id"
	ColAcquiringAccountName    = "acquiringAccountName"
	ColAcquiringAccountType    = "acquiringAccountType"
	ColTransactionTypeMain     = "transactionTypeMain"
	ColTransactionTypeSupp     = "transactionTypeSupplementary"
	ColUnitType                = "unitType"
)

// RequiredTransactionColumns lists every column a transaction page must
// provide before it can be normalized.
func RequiredTransactionColumns() []string {
	return []string{
		ColDatetime, ColAmount,
		ColTransferringAccountID, ColTransferringAccountName, ColTransferringAccountType,
		ColAcquiringAccountID, ColAcquiringAccountName, ColAcquiringAccountType,
		ColTransactionTypeMain, ColTransactionTypeSupp, ColUnitType,
	}
}
