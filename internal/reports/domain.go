package reports

import (
	"time"

	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/ledger"
	"github.com/vecino-erp/vecino-erp/internal/platform/money"
)

// MonthlyTotals summarises posted income and expenses in a window.
// Net is income minus expense.
type MonthlyTotals struct {
	Start   time.Time   `json:"start"`
	End     time.Time   `json:"end"`
	Income  money.Cents `json:"income"`
	Expense money.Cents `json:"expense"`
	Net     money.Cents `json:"net"`
}

// AgingBucket groups outstanding document balances by days overdue.
type AgingBucket struct {
	Label   string      `json:"label"`
	Balance money.Cents `json:"balance"`
	Count   int         `json:"count"`
}

// AgingReport is the aging breakdown for one document kind.
type AgingReport struct {
	Kind    ledger.DocumentKind `json:"kind"`
	AsOf    time.Time           `json:"as_of"`
	Buckets []AgingBucket       `json:"buckets"`
	Total   money.Cents         `json:"total"`
}

// OutstandingDocument is an unpaid or partially paid document as the aging
// and overdue queries see it.
type OutstandingDocument struct {
	ID      uuid.UUID
	DueDate time.Time
	Total   money.Cents
	Paid    money.Cents
	Status  ledger.DocumentStatus
}
