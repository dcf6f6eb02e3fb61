package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// AuditPort records catalog changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wraps chart-of-accounts rules.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// List returns the organization's accounts.
func (s *Service) List(ctx context.Context, rc shared.RequestContext, includeInactive bool) ([]Account, error) {
	return s.repo.List(ctx, rc.OrgID, includeInactive)
}

// Get fetches one account within the organization.
func (s *Service) Get(ctx context.Context, rc shared.RequestContext, id uuid.UUID) (Account, error) {
	return s.repo.Get(ctx, rc.OrgID, id)
}

// CreateInput groups fields for a new account.
type CreateInput struct {
	Code     string
	Name     string
	Type     AccountType
	ParentID *uuid.UUID
}

// Create inserts a new account after validating code, type, and parent.
func (s *Service) Create(ctx context.Context, rc shared.RequestContext, in CreateInput) (Account, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" {
		return Account{}, fmt.Errorf("%w: account code required", shared.ErrValidation)
	}
	if in.Name == "" {
		return Account{}, fmt.Errorf("%w: account name required", shared.ErrValidation)
	}
	if !in.Type.Valid() {
		return Account{}, fmt.Errorf("%w: unknown account type %q", shared.ErrValidation, in.Type)
	}
	if in.ParentID != nil {
		parent, err := s.repo.Get(ctx, rc.OrgID, *in.ParentID)
		if err != nil {
			return Account{}, fmt.Errorf("%w: parent account", shared.ErrValidation)
		}
		if parent.Type != in.Type {
			return Account{}, fmt.Errorf("%w: parent account type %s does not match %s", shared.ErrValidation, parent.Type, in.Type)
		}
	}
	created, err := s.repo.Insert(ctx, Account{
		OrgID:    rc.OrgID,
		Code:     in.Code,
		Name:     in.Name,
		Type:     in.Type,
		ParentID: in.ParentID,
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, rc, "account.create", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

// UpdateInput groups mutable account fields. Code and type are fixed after
// creation; posted lines depend on them.
type UpdateInput struct {
	ID       uuid.UUID
	Name     string
	ParentID *uuid.UUID
}

// Update renames an account or moves it in the tree, rejecting cycles.
func (s *Service) Update(ctx context.Context, rc shared.RequestContext, in UpdateInput) (Account, error) {
	current, err := s.repo.Get(ctx, rc.OrgID, in.ID)
	if err != nil {
		return Account{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Account{}, fmt.Errorf("%w: account name required", shared.ErrValidation)
	}
	if in.ParentID != nil {
		if *in.ParentID == in.ID {
			return Account{}, fmt.Errorf("%w: account cannot be its own parent", shared.ErrValidation)
		}
		if err := s.ensureNoCycle(ctx, rc.OrgID, in.ID, *in.ParentID); err != nil {
			return Account{}, err
		}
	}
	updated, err := s.repo.Update(ctx, Account{
		ID:       in.ID,
		OrgID:    rc.OrgID,
		Name:     in.Name,
		ParentID: in.ParentID,
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, rc, "account.update", updated.ID, map[string]any{"code": current.Code})
	return updated, nil
}

// Deactivate removes the account from posting without deleting it.
func (s *Service) Deactivate(ctx context.Context, rc shared.RequestContext, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, rc.OrgID, id, false); err != nil {
		return err
	}
	s.record(ctx, rc, "account.deactivate", id, nil)
	return nil
}

// Reactivate puts the account back into the posting catalog.
func (s *Service) Reactivate(ctx context.Context, rc shared.RequestContext, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, rc.OrgID, id, true); err != nil {
		return err
	}
	s.record(ctx, rc, "account.reactivate", id, nil)
	return nil
}

// ensureNoCycle walks up from the proposed parent; reaching the account
// being moved means the move would create a loop.
func (s *Service) ensureNoCycle(ctx context.Context, orgID, accountID, parentID uuid.UUID) error {
	seen := 0
	cursor := parentID
	for {
		node, err := s.repo.Get(ctx, orgID, cursor)
		if err != nil {
			return fmt.Errorf("%w: parent account", shared.ErrValidation)
		}
		if node.ID == accountID {
			return fmt.Errorf("%w: parent chain forms a cycle", shared.ErrValidation)
		}
		if node.ParentID == nil {
			return nil
		}
		cursor = *node.ParentID
		seen++
		if seen > 64 {
			return fmt.Errorf("%w: parent chain too deep", shared.ErrValidation)
		}
	}
}

func (s *Service) record(ctx context.Context, rc shared.RequestContext, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  rc.UserID,
		OrgID:    rc.OrgID,
		Action:   action,
		Entity:   "account",
		EntityID: id.String(),
		Meta:     meta,
		At:       s.now(),
	})
}
