package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// Repository encapsulates DB operations for the chart of accounts. Every
// query carries the organization id.
type Repository interface {
	List(ctx context.Context, orgID uuid.UUID, includeInactive bool) ([]Account, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (Account, error)
	Insert(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, a Account) (Account, error)
	SetActive(ctx context.Context, orgID, id uuid.UUID, active bool) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, org_id, code, name, type, parent_id, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context, orgID uuid.UUID, includeInactive bool) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE org_id=$1 ORDER BY code ASC`
	if !includeInactive {
		query = `SELECT ` + accountColumns + ` FROM accounts WHERE org_id=$1 AND is_active ORDER BY code ASC`
	}
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, orgID, id uuid.UUID) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 AND id=$2`, orgID, id))
}

func (r *repository) Insert(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (id, org_id, code, name, type, parent_id, is_active)
VALUES ($1, $2, $3, $4, $5, $6, TRUE)
RETURNING `+accountColumns, uuid.New(), a.OrgID, a.Code, a.Name, a.Type, a.ParentID)
	inserted, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, shared.ErrDuplicate
		}
		return Account{}, err
	}
	return inserted, nil
}

func (r *repository) Update(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE accounts
SET name=$3, parent_id=$4, updated_at=NOW()
WHERE org_id=$1 AND id=$2
RETURNING `+accountColumns, a.OrgID, a.ID, a.Name, a.ParentID)
	return scanAccount(row)
}

func (r *repository) SetActive(ctx context.Context, orgID, id uuid.UUID, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET is_active=$3, updated_at=NOW() WHERE org_id=$1 AND id=$2`,
		orgID, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
