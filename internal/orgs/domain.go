package orgs

import (
	"time"

	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/rbac"
)

// Organization is the tenant boundary. Every other entity references one
// and no read or write crosses it.
type Organization struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member assigns a role to a user within one organization. A user holds at
// most one role per organization; assignments are upserted on the
// (org, user) pair.
type Member struct {
	OrgID     uuid.UUID
	UserID    uuid.UUID
	Email     string
	Role      rbac.Role
	CreatedAt time.Time
	UpdatedAt time.Time
}
