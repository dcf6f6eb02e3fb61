package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/platform/money"
)

// DocumentKind distinguishes receivable from payable documents.
type DocumentKind string

const (
	// KindInvoice is an accounts-receivable document.
	KindInvoice DocumentKind = "INVOICE"
	// KindBill is an accounts-payable document.
	KindBill DocumentKind = "BILL"
)

// Valid reports whether the kind is known.
func (k DocumentKind) Valid() bool {
	return k == KindInvoice || k == KindBill
}

// DocumentStatus is the lifecycle state of an invoice or bill.
type DocumentStatus string

const (
	StatusIssued  DocumentStatus = "ISSUED"
	StatusPaid    DocumentStatus = "PAID"
	StatusOverdue DocumentStatus = "OVERDUE"
	StatusVoid    DocumentStatus = "VOID"
)

// TransactionKind distinguishes simple income from expense postings.
type TransactionKind string

const (
	TxIncome  TransactionKind = "INCOME"
	TxExpense TransactionKind = "EXPENSE"
)

// Transaction is a direct income or expense posting: money moved against a
// cash account in one step, with its balanced journal entry alongside.
type Transaction struct {
	ID                uuid.UUID
	OrgID             uuid.UUID
	Kind              TransactionKind
	Date              time.Time
	Description       string
	Amount            money.Cents
	CategoryAccountID uuid.UUID
	CashAccountID     uuid.UUID
	EntryID           uuid.UUID
	CreatedBy         uuid.UUID
	CreatedAt         time.Time
}

// Document is an AR invoice or AP bill. Total is always recomputed
// server-side as subtotal + tax - discount. Number is unique per
// organization and kind.
type Document struct {
	ID           uuid.UUID
	OrgID        uuid.UUID
	Kind         DocumentKind
	Number       int64
	Counterparty string
	IssueDate    time.Time
	DueDate      time.Time
	Subtotal     money.Cents
	Tax          money.Cents
	Discount     money.Cents
	Total        money.Cents
	Status       DocumentStatus
	// CounterAccountID is the receivable or payable account the document
	// was posted against; payments settle through it.
	CounterAccountID uuid.UUID
	EntryID          uuid.UUID
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Payment is money applied against a document. The sum of a document's
// payments never exceeds its total.
type Payment struct {
	ID            uuid.UUID
	OrgID         uuid.UUID
	DocumentID    uuid.UUID
	Date          time.Time
	Amount        money.Cents
	Method        string
	CashAccountID uuid.UUID
	EntryID       uuid.UUID
	CreatedBy     uuid.UUID
	CreatedAt     time.Time
}

// AccountDefaults holds the per-organization accounts used when a posting
// request does not name one. The chart-of-accounts defaulting rule lives
// here instead of being hardcoded per operation.
type AccountDefaults struct {
	OrgID            uuid.UUID
	CashAccountID    uuid.UUID
	IncomeAccountID  uuid.UUID
	ExpenseAccountID uuid.UUID
	ARAccountID      uuid.UUID
	APAccountID      uuid.UUID
	TaxAccountID     uuid.UUID
	UpdatedAt        time.Time
}
