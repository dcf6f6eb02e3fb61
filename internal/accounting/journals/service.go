package journals

import (
	"context"

	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// Service exposes read access to the journal. Posting and reversing happen
// in the ledger engine, which owns the transaction that pairs entries with
// their source records.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns posted entries for the organization, newest first.
func (s *Service) List(ctx context.Context, rc shared.RequestContext, limit, offset int) ([]JournalEntry, error) {
	return s.repo.List(ctx, rc.OrgID, limit, offset)
}

// Get returns one entry with its lines.
func (s *Service) Get(ctx context.Context, rc shared.RequestContext, entryID uuid.UUID) (JournalEntry, error) {
	return s.repo.Get(ctx, rc.OrgID, entryID)
}
