package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated identity. Tenancy and roles live on org
// memberships, not here.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
