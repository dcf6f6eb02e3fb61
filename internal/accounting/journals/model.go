package journals

import (
	"time"

	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/platform/money"
)

// Source modules recorded on journal entries. Each posting operation links
// its entry back to the row that caused it.
const (
	SourceIncome    = "INCOME"
	SourceExpense   = "EXPENSE"
	SourceARInvoice = "AR_INVOICE"
	SourceAPBill    = "AP_BILL"
	SourceARPayment = "AR_PAYMENT"
	SourceAPPayment = "AP_PAYMENT"
)

// JournalEntry captures one balanced accounting event. Entries are
// immutable once posted; corrections are made with reversing entries that
// reference the original via ReversesID.
type JournalEntry struct {
	ID           uuid.UUID
	OrgID        uuid.UUID
	Number       int64
	Date         time.Time
	Memo         string
	SourceModule string
	SourceID     uuid.UUID
	ReversesID   *uuid.UUID
	PostedBy     uuid.UUID
	PostedAt     time.Time
	Lines        []JournalLine
}

// JournalLine stores the debit or credit amount for one account. Exactly
// one side of a line is nonzero.
type JournalLine struct {
	ID        uuid.UUID
	EntryID   uuid.UUID
	AccountID uuid.UUID
	Debit     money.Cents
	Credit    money.Cents
}
