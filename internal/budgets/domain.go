package budgets

import (
	"time"

	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/ledger"
	"github.com/vecino-erp/vecino-erp/internal/platform/money"
)

// BudgetLine is a planned amount for one category account in one month.
// One line per (organization, year, month, kind, account).
type BudgetLine struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Year      int
	Month     time.Month
	Kind      ledger.TransactionKind
	AccountID uuid.UUID
	Planned   money.Cents
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VarianceRow compares a budget line against the amounts actually posted
// in its month. Variance is planned minus executed.
type VarianceRow struct {
	AccountID uuid.UUID
	Kind      ledger.TransactionKind
	Planned   money.Cents
	Executed  money.Cents
	Variance  money.Cents
}
