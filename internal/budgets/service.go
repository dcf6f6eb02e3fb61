package budgets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/ledger"
	"github.com/vecino-erp/vecino-erp/internal/platform/money"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// AuditPort records budget changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wraps budget planning rules.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// List returns the budget lines for one month.
func (s *Service) List(ctx context.Context, rc shared.RequestContext, year int, month time.Month) ([]BudgetLine, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, rc.OrgID, year, month)
}

// UpsertInput groups fields for planning one line.
type UpsertInput struct {
	Year      int
	Month     time.Month
	Kind      ledger.TransactionKind
	AccountID uuid.UUID
	Planned   money.Cents
}

// Upsert stores a planned amount, replacing any previous plan for the same
// period, kind, and account.
func (s *Service) Upsert(ctx context.Context, rc shared.RequestContext, in UpsertInput) (BudgetLine, error) {
	if err := validatePeriod(in.Year, in.Month); err != nil {
		return BudgetLine{}, err
	}
	if in.Kind != ledger.TxIncome && in.Kind != ledger.TxExpense {
		return BudgetLine{}, fmt.Errorf("%w: unknown budget kind %q", shared.ErrValidation, in.Kind)
	}
	if in.AccountID == uuid.Nil {
		return BudgetLine{}, fmt.Errorf("%w: account required", shared.ErrValidation)
	}
	if in.Planned < 0 {
		return BudgetLine{}, fmt.Errorf("%w: planned amount cannot be negative", shared.ErrValidation)
	}
	line, err := s.repo.Upsert(ctx, BudgetLine{
		OrgID:     rc.OrgID,
		Year:      in.Year,
		Month:     in.Month,
		Kind:      in.Kind,
		AccountID: in.AccountID,
		Planned:   in.Planned,
	})
	if err != nil {
		return BudgetLine{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  rc.UserID,
			OrgID:    rc.OrgID,
			Action:   "budget.upsert",
			Entity:   "budget_line",
			EntityID: line.ID.String(),
			Meta:     map[string]any{"planned": line.Planned.String()},
			At:       s.now(),
		})
	}
	return line, nil
}

// Delete removes one budget line.
func (s *Service) Delete(ctx context.Context, rc shared.RequestContext, lineID uuid.UUID) error {
	if err := s.repo.Delete(ctx, rc.OrgID, lineID); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  rc.UserID,
			OrgID:    rc.OrgID,
			Action:   "budget.delete",
			Entity:   "budget_line",
			EntityID: lineID.String(),
			At:       s.now(),
		})
	}
	return nil
}

// Variance compares each planned line against the posted totals of its
// month. Executed amounts with no plan are reported with planned zero.
func (s *Service) Variance(ctx context.Context, rc shared.RequestContext, year int, month time.Month) ([]VarianceRow, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	lines, err := s.repo.List(ctx, rc.OrgID, year, month)
	if err != nil {
		return nil, err
	}
	executed, err := s.repo.ExecutedTotals(ctx, rc.OrgID, year, month)
	if err != nil {
		return nil, err
	}

	rows := make([]VarianceRow, 0, len(lines))
	for _, line := range lines {
		key := ExecutedKey{Kind: line.Kind, AccountID: line.AccountID}
		actual := executed[key]
		delete(executed, key)
		rows = append(rows, VarianceRow{
			AccountID: line.AccountID,
			Kind:      line.Kind,
			Planned:   line.Planned,
			Executed:  actual,
			Variance:  line.Planned - actual,
		})
	}
	for key, actual := range executed {
		rows = append(rows, VarianceRow{
			AccountID: key.AccountID,
			Kind:      key.Kind,
			Executed:  actual,
			Variance:  -actual,
		})
	}
	return rows, nil
}

func validatePeriod(year int, month time.Month) error {
	if year < 2000 || year > 2100 {
		return fmt.Errorf("%w: year out of range", shared.ErrValidation)
	}
	if month < time.January || month > time.December {
		return fmt.Errorf("%w: month out of range", shared.ErrValidation)
	}
	return nil
}
