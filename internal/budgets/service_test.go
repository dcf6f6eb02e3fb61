package budgets

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vecino-erp/vecino-erp/internal/ledger"
	"github.com/vecino-erp/vecino-erp/internal/platform/money"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

type memoryBudgetRepo struct {
	lines    map[uuid.UUID]BudgetLine
	executed map[ExecutedKey]money.Cents
}

func newMemoryBudgetRepo() *memoryBudgetRepo {
	return &memoryBudgetRepo{
		lines:    make(map[uuid.UUID]BudgetLine),
		executed: make(map[ExecutedKey]money.Cents),
	}
}

func (r *memoryBudgetRepo) List(ctx context.Context, orgID uuid.UUID, year int, month time.Month) ([]BudgetLine, error) {
	var out []BudgetLine
	for _, l := range r.lines {
		if l.OrgID == orgID && l.Year == year && l.Month == month {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memoryBudgetRepo) Upsert(ctx context.Context, line BudgetLine) (BudgetLine, error) {
	for id, existing := range r.lines {
		if existing.OrgID == line.OrgID && existing.Year == line.Year && existing.Month == line.Month &&
			existing.Kind == line.Kind && existing.AccountID == line.AccountID {
			existing.Planned = line.Planned
			r.lines[id] = existing
			return existing, nil
		}
	}
	line.ID = uuid.New()
	r.lines[line.ID] = line
	return line, nil
}

func (r *memoryBudgetRepo) Delete(ctx context.Context, orgID, lineID uuid.UUID) error {
	l, ok := r.lines[lineID]
	if !ok || l.OrgID != orgID {
		return shared.ErrNotFound
	}
	delete(r.lines, lineID)
	return nil
}

func (r *memoryBudgetRepo) ExecutedTotals(ctx context.Context, orgID uuid.UUID, year int, month time.Month) (map[ExecutedKey]money.Cents, error) {
	out := make(map[ExecutedKey]money.Cents, len(r.executed))
	for k, v := range r.executed {
		out[k] = v
	}
	return out, nil
}

func TestUpsertReplacesPlan(t *testing.T) {
	repo := newMemoryBudgetRepo()
	service := NewService(repo, nil)
	rc := shared.RequestContext{UserID: uuid.New(), OrgID: uuid.New(), Role: "contador"}
	account := uuid.New()

	first, err := service.Upsert(context.Background(), rc, UpsertInput{
		Year: 2026, Month: time.April, Kind: ledger.TxExpense, AccountID: account, Planned: money.Cents(50000),
	})
	require.NoError(t, err)

	second, err := service.Upsert(context.Background(), rc, UpsertInput{
		Year: 2026, Month: time.April, Kind: ledger.TxExpense, AccountID: account, Planned: money.Cents(70000),
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, money.Cents(70000), second.Planned)
	require.Len(t, repo.lines, 1)
}

func TestUpsertValidation(t *testing.T) {
	service := NewService(newMemoryBudgetRepo(), nil)
	rc := shared.RequestContext{UserID: uuid.New(), OrgID: uuid.New(), Role: "contador"}

	_, err := service.Upsert(context.Background(), rc, UpsertInput{
		Year: 2026, Month: 13, Kind: ledger.TxExpense, AccountID: uuid.New(), Planned: 100,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = service.Upsert(context.Background(), rc, UpsertInput{
		Year: 2026, Month: time.April, Kind: "CAPEX", AccountID: uuid.New(), Planned: 100,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = service.Upsert(context.Background(), rc, UpsertInput{
		Year: 2026, Month: time.April, Kind: ledger.TxExpense, AccountID: uuid.New(), Planned: -1,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestVariancePlannedMinusExecuted(t *testing.T) {
	repo := newMemoryBudgetRepo()
	service := NewService(repo, nil)
	rc := shared.RequestContext{UserID: uuid.New(), OrgID: uuid.New(), Role: "lector"}
	account := uuid.New()

	_, err := service.Upsert(context.Background(), rc, UpsertInput{
		Year: 2026, Month: time.April, Kind: ledger.TxExpense, AccountID: account, Planned: money.Cents(100000),
	})
	require.NoError(t, err)
	repo.executed[ExecutedKey{Kind: ledger.TxExpense, AccountID: account}] = money.Cents(65000)

	rows, err := service.Variance(context.Background(), rc, 2026, time.April)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, money.Cents(100000), rows[0].Planned)
	require.Equal(t, money.Cents(65000), rows[0].Executed)
	require.Equal(t, money.Cents(35000), rows[0].Variance)
}

func TestVarianceIncludesUnplannedSpending(t *testing.T) {
	repo := newMemoryBudgetRepo()
	service := NewService(repo, nil)
	rc := shared.RequestContext{UserID: uuid.New(), OrgID: uuid.New(), Role: "lector"}
	account := uuid.New()
	repo.executed[ExecutedKey{Kind: ledger.TxExpense, AccountID: account}] = money.Cents(12000)

	rows, err := service.Variance(context.Background(), rc, 2026, time.April)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, money.Cents(0), rows[0].Planned)
	require.Equal(t, money.Cents(-12000), rows[0].Variance)
}
