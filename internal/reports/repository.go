package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vecino-erp/vecino-erp/internal/ledger"
	"github.com/vecino-erp/vecino-erp/internal/platform/money"
)

// Repository reads committed ledger state for aggregation. All queries are
// organization-scoped; nothing here writes.
type Repository interface {
	SumTransactions(ctx context.Context, orgID uuid.UUID, kind ledger.TransactionKind, start, end time.Time) (money.Cents, error)
	OverdueTotal(ctx context.Context, orgID uuid.UUID, kind ledger.DocumentKind) (money.Cents, error)
	OutstandingDocuments(ctx context.Context, orgID uuid.UUID, kind ledger.DocumentKind) ([]OutstandingDocument, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) SumTransactions(ctx context.Context, orgID uuid.UUID, kind ledger.TransactionKind, start, end time.Time) (money.Cents, error) {
	var sum money.Cents
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)
FROM ledger_transactions WHERE org_id=$1 AND kind=$2 AND date >= $3 AND date <= $4`,
		orgID, kind, start, end).Scan(&sum)
	return sum, err
}

func (r *repository) OverdueTotal(ctx context.Context, orgID uuid.UUID, kind ledger.DocumentKind) (money.Cents, error) {
	var sum money.Cents
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total), 0)
FROM documents WHERE org_id=$1 AND kind=$2 AND status=$3`,
		orgID, kind, ledger.StatusOverdue).Scan(&sum)
	return sum, err
}

func (r *repository) OutstandingDocuments(ctx context.Context, orgID uuid.UUID, kind ledger.DocumentKind) ([]OutstandingDocument, error) {
	rows, err := r.pool.Query(ctx, `SELECT d.id, d.due_date, d.total, COALESCE(SUM(p.amount), 0), d.status
FROM documents d
LEFT JOIN payments p ON p.document_id = d.id
WHERE d.org_id=$1 AND d.kind=$2 AND d.status IN ($3, $4)
GROUP BY d.id, d.due_date, d.total, d.status
ORDER BY d.due_date ASC`,
		orgID, kind, ledger.StatusIssued, ledger.StatusOverdue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []OutstandingDocument
	for rows.Next() {
		var d OutstandingDocument
		if err := rows.Scan(&d.ID, &d.DueDate, &d.Total, &d.Paid, &d.Status); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
