package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/platform/money"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// TransactionInput carries a direct income or expense posting. Account ids
// are optional; the organization's defaults fill the gaps.
type TransactionInput struct {
	Date              time.Time
	Description       string
	Amount            money.Cents
	CategoryAccountID uuid.UUID
	CashAccountID     uuid.UUID
	IdempotencyKey    string
}

func (in TransactionInput) validate() error {
	if in.Date.IsZero() {
		return fmt.Errorf("%w: date required", shared.ErrValidation)
	}
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	return nil
}

// DocumentInput carries an invoice or bill creation. Total is never taken
// from the caller; it is computed from the components.
type DocumentInput struct {
	Kind              DocumentKind
	Counterparty      string
	IssueDate         time.Time
	DueDate           time.Time
	Subtotal          money.Cents
	Tax               money.Cents
	Discount          money.Cents
	CounterAccountID  uuid.UUID
	CategoryAccountID uuid.UUID
	IdempotencyKey    string
}

func (in DocumentInput) validate() error {
	if !in.Kind.Valid() {
		return fmt.Errorf("%w: unknown document kind %q", shared.ErrValidation, in.Kind)
	}
	if in.Counterparty == "" {
		return fmt.Errorf("%w: counterparty required", shared.ErrValidation)
	}
	if in.IssueDate.IsZero() || in.DueDate.IsZero() {
		return fmt.Errorf("%w: issue and due dates required", shared.ErrValidation)
	}
	if in.DueDate.Before(in.IssueDate) {
		return fmt.Errorf("%w: due date precedes issue date", shared.ErrValidation)
	}
	if in.Subtotal <= 0 {
		return fmt.Errorf("%w: subtotal must be positive", shared.ErrValidation)
	}
	if in.Tax < 0 || in.Discount < 0 {
		return fmt.Errorf("%w: tax and discount cannot be negative", shared.ErrValidation)
	}
	if in.Discount >= in.Subtotal {
		return fmt.Errorf("%w: discount cannot reach the subtotal", shared.ErrValidation)
	}
	if in.total() <= 0 {
		return fmt.Errorf("%w: total must be positive", shared.ErrValidation)
	}
	return nil
}

func (in DocumentInput) total() money.Cents {
	return in.Subtotal + in.Tax - in.Discount
}

// PaymentInput applies money against a document.
type PaymentInput struct {
	DocumentID     uuid.UUID
	Date           time.Time
	Amount         money.Cents
	Method         string
	CashAccountID  uuid.UUID
	IdempotencyKey string
}

func (in PaymentInput) validate() error {
	if in.DocumentID == uuid.Nil {
		return fmt.Errorf("%w: document id required", shared.ErrValidation)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: date required", shared.ErrValidation)
	}
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	return nil
}
