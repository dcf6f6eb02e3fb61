package budgets

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vecino-erp/vecino-erp/internal/ledger"
	"github.com/vecino-erp/vecino-erp/internal/platform/money"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// ExecutedKey identifies a posted total per kind and category account.
type ExecutedKey struct {
	Kind      ledger.TransactionKind
	AccountID uuid.UUID
}

// Repository persists budget lines and reads executed totals from the
// posted transactions.
type Repository interface {
	List(ctx context.Context, orgID uuid.UUID, year int, month time.Month) ([]BudgetLine, error)
	Upsert(ctx context.Context, line BudgetLine) (BudgetLine, error)
	Delete(ctx context.Context, orgID, lineID uuid.UUID) error
	ExecutedTotals(ctx context.Context, orgID uuid.UUID, year int, month time.Month) (map[ExecutedKey]money.Cents, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const lineColumns = `id, org_id, year, month, kind, account_id, planned, created_at, updated_at`

func (r *repository) List(ctx context.Context, orgID uuid.UUID, year int, month time.Month) ([]BudgetLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lineColumns+`
FROM budget_lines WHERE org_id=$1 AND year=$2 AND month=$3 ORDER BY kind, account_id`, orgID, year, int(month))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []BudgetLine
	for rows.Next() {
		var l BudgetLine
		var m int
		if err := rows.Scan(&l.ID, &l.OrgID, &l.Year, &m, &l.Kind, &l.AccountID, &l.Planned, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		l.Month = time.Month(m)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) Upsert(ctx context.Context, line BudgetLine) (BudgetLine, error) {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	var m int
	err := r.pool.QueryRow(ctx, `INSERT INTO budget_lines (id, org_id, year, month, kind, account_id, planned, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
ON CONFLICT (org_id, year, month, kind, account_id) DO UPDATE SET planned=EXCLUDED.planned, updated_at=NOW()
RETURNING `+lineColumns,
		line.ID, line.OrgID, line.Year, int(line.Month), line.Kind, line.AccountID, line.Planned).
		Scan(&line.ID, &line.OrgID, &line.Year, &m, &line.Kind, &line.AccountID, &line.Planned, &line.CreatedAt, &line.UpdatedAt)
	if err != nil {
		return BudgetLine{}, err
	}
	line.Month = time.Month(m)
	return line, nil
}

func (r *repository) Delete(ctx context.Context, orgID, lineID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM budget_lines WHERE org_id=$1 AND id=$2`, orgID, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) ExecutedTotals(ctx context.Context, orgID uuid.UUID, year int, month time.Month) (map[ExecutedKey]money.Cents, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	rows, err := r.pool.Query(ctx, `SELECT kind, category_account_id, COALESCE(SUM(amount), 0)
FROM ledger_transactions WHERE org_id=$1 AND date >= $2 AND date < $3
GROUP BY kind, category_account_id`, orgID, start, end)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return map[ExecutedKey]money.Cents{}, nil
		}
		return nil, err
	}
	defer rows.Close()
	totals := make(map[ExecutedKey]money.Cents)
	for rows.Next() {
		var key ExecutedKey
		var sum money.Cents
		if err := rows.Scan(&key.Kind, &key.AccountID, &sum); err != nil {
			return nil, err
		}
		totals[key] = sum
	}
	return totals, rows.Err()
}
