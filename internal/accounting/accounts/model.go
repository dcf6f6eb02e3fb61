package accounts

import (
	"time"

	"github.com/google/uuid"
)

// AccountType enumerates chart-of-accounts categories.
type AccountType string

const (
	TypeAsset     AccountType = "ASSET"
	TypeLiability AccountType = "LIABILITY"
	TypeEquity    AccountType = "EQUITY"
	TypeIncome    AccountType = "INCOME"
	TypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether the type is one of the five categories.
func (t AccountType) Valid() bool {
	switch t {
	case TypeAsset, TypeLiability, TypeEquity, TypeIncome, TypeExpense:
		return true
	}
	return false
}

// Account models a chart-of-accounts node. Code is unique per organization.
// Accounts are never hard-deleted, only deactivated, so posted journal
// lines always resolve.
type Account struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Code      string
	Name      string
	Type      AccountType
	ParentID  *uuid.UUID
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
