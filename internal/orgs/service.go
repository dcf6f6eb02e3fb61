package orgs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/rbac"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// AuditPort records membership changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wraps organization and membership rules.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// ListForUser returns the organizations the user belongs to.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]Organization, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Create registers a new organization with the creator as admin.
func (s *Service) Create(ctx context.Context, name string, ownerID uuid.UUID) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, fmt.Errorf("%w: organization name required", shared.ErrValidation)
	}
	org, err := s.repo.Create(ctx, name, ownerID)
	if err != nil {
		return Organization{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  ownerID,
			OrgID:    org.ID,
			Action:   "org.create",
			Entity:   "organization",
			EntityID: org.ID.String(),
			At:       s.now(),
		})
	}
	return org, nil
}

// Select validates that the user belongs to the organization and returns
// the membership. Selection that does not resolve to a membership is a
// tenant-scope failure, never a silent default.
func (s *Service) Select(ctx context.Context, orgID, userID uuid.UUID) (Member, error) {
	member, err := s.repo.GetMembership(ctx, orgID, userID)
	if err != nil {
		return Member{}, fmt.Errorf("%w: not a member of organization", shared.ErrTenantScope)
	}
	return member, nil
}

// Membership re-validates the stored selection against the database.
func (s *Service) Membership(ctx context.Context, orgID, userID uuid.UUID) (Member, error) {
	return s.repo.GetMembership(ctx, orgID, userID)
}

// ListMembers returns members of the organization.
func (s *Service) ListMembers(ctx context.Context, rc shared.RequestContext) ([]Member, error) {
	return s.repo.ListMembers(ctx, rc.OrgID)
}

// AssignRole upserts the member's role. One role per (user, organization).
func (s *Service) AssignRole(ctx context.Context, rc shared.RequestContext, userID uuid.UUID, role rbac.Role) (Member, error) {
	if !role.Valid() {
		return Member{}, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, role)
	}
	member, err := s.repo.UpsertMember(ctx, rc.OrgID, userID, role)
	if err != nil {
		return Member{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  rc.UserID,
			OrgID:    rc.OrgID,
			Action:   "member.assign_role",
			Entity:   "org_member",
			EntityID: userID.String(),
			Meta:     map[string]any{"role": string(role)},
			At:       s.now(),
		})
	}
	return member, nil
}

// RemoveMember deletes a membership.
func (s *Service) RemoveMember(ctx context.Context, rc shared.RequestContext, userID uuid.UUID) error {
	if userID == rc.UserID {
		return fmt.Errorf("%w: cannot remove own membership", shared.ErrValidation)
	}
	if err := s.repo.RemoveMember(ctx, rc.OrgID, userID); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  rc.UserID,
			OrgID:    rc.OrgID,
			Action:   "member.remove",
			Entity:   "org_member",
			EntityID: userID.String(),
			At:       s.now(),
		})
	}
	return nil
}
