package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/platform/money"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// LineInput describes one journal line for a posting request.
type LineInput struct {
	AccountID uuid.UUID
	Debit     money.Cents
	Credit    money.Cents
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	OrgID        uuid.UUID
	Date         time.Time
	Memo         string
	SourceModule string
	SourceID     uuid.UUID
	ReversesID   *uuid.UUID
	PostedBy     uuid.UUID
	Lines        []LineInput
}

// Validate enforces the double-entry balance law before anything touches
// the database: at least two lines, each line single-sided and
// non-negative, and total debits equal to total credits to the cent.
func (in PostingInput) Validate() error {
	if in.OrgID == uuid.Nil {
		return fmt.Errorf("%w: organization required", shared.ErrValidation)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: posting date required", shared.ErrValidation)
	}
	if in.SourceModule == "" {
		return fmt.Errorf("%w: source module required", shared.ErrValidation)
	}
	if in.SourceID == uuid.Nil {
		return fmt.Errorf("%w: source id required", shared.ErrValidation)
	}
	if len(in.Lines) < 2 {
		return fmt.Errorf("%w: journal entry needs at least two lines", shared.ErrValidation)
	}
	var debit, credit money.Cents
	for idx, line := range in.Lines {
		if line.AccountID == uuid.Nil {
			return fmt.Errorf("%w: line %d missing account", shared.ErrValidation, idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("%w: line %d has a negative amount", shared.ErrValidation, idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("%w: line %d cannot be both debit and credit", shared.ErrValidation, idx)
		}
		if line.Debit == 0 && line.Credit == 0 {
			return fmt.Errorf("%w: line %d is empty", shared.ErrValidation, idx)
		}
		debit += line.Debit
		credit += line.Credit
	}
	if debit != credit {
		return fmt.Errorf("%w: debit %s vs credit %s", shared.ErrUnbalanced, debit, credit)
	}
	return nil
}

// ReverseLines builds the mirrored lines for a reversing entry.
func ReverseLines(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountID: line.AccountID,
			Debit:     line.Credit,
			Credit:    line.Debit,
		})
	}
	return out
}
