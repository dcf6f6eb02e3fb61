package orgs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vecino-erp/vecino-erp/internal/rbac"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// Repository defines persistence operations for organizations and members.
type Repository interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Organization, error)
	Get(ctx context.Context, orgID uuid.UUID) (Organization, error)
	Create(ctx context.Context, name string, ownerID uuid.UUID) (Organization, error)
	GetMembership(ctx context.Context, orgID, userID uuid.UUID) (Member, error)
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]Member, error)
	UpsertMember(ctx context.Context, orgID, userID uuid.UUID, role rbac.Role) (Member, error)
	RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Organization, error) {
	rows, err := r.db.Query(ctx, `SELECT o.id, o.name, o.created_at, o.updated_at
FROM organizations o
JOIN org_members m ON m.org_id = o.id
WHERE m.user_id = $1
ORDER BY o.name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, orgID uuid.UUID) (Organization, error) {
	var o Organization
	err := r.db.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM organizations WHERE id=$1`, orgID).
		Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, shared.ErrNotFound
		}
		return Organization{}, err
	}
	return o, nil
}

// Create inserts the organization and its founding admin membership in one
// transaction so an organization never exists without an admin.
func (r *repository) Create(ctx context.Context, name string, ownerID uuid.UUID) (Organization, error) {
	var org Organization
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Organization{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	err = tx.QueryRow(ctx, `INSERT INTO organizations (id, name) VALUES ($1, $2)
RETURNING id, name, created_at, updated_at`, uuid.New(), name).
		Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return Organization{}, err
	}
	_, err = tx.Exec(ctx, `INSERT INTO org_members (org_id, user_id, role) VALUES ($1, $2, $3)`,
		org.ID, ownerID, rbac.RoleAdmin)
	if err != nil {
		return Organization{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Organization{}, err
	}
	return org, nil
}

func (r *repository) GetMembership(ctx context.Context, orgID, userID uuid.UUID) (Member, error) {
	var m Member
	err := r.db.QueryRow(ctx, `SELECT m.org_id, m.user_id, u.email, m.role, m.created_at, m.updated_at
FROM org_members m
JOIN users u ON u.id = m.user_id
WHERE m.org_id=$1 AND m.user_id=$2`, orgID, userID).
		Scan(&m.OrgID, &m.UserID, &m.Email, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, shared.ErrNotFound
		}
		return Member{}, err
	}
	return m, nil
}

func (r *repository) ListMembers(ctx context.Context, orgID uuid.UUID) ([]Member, error) {
	rows, err := r.db.Query(ctx, `SELECT m.org_id, m.user_id, u.email, m.role, m.created_at, m.updated_at
FROM org_members m
JOIN users u ON u.id = m.user_id
WHERE m.org_id=$1
ORDER BY u.email ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.OrgID, &m.UserID, &m.Email, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) UpsertMember(ctx context.Context, orgID, userID uuid.UUID, role rbac.Role) (Member, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO org_members (org_id, user_id, role) VALUES ($1, $2, $3)
ON CONFLICT (org_id, user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()`,
		orgID, userID, role)
	if err != nil {
		return Member{}, err
	}
	return r.GetMembership(ctx, orgID, userID)
}

func (r *repository) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM org_members WHERE org_id=$1 AND user_id=$2`, orgID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
