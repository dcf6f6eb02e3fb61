package journals

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// Repository reads posted journal entries for one organization. Inserts go
// through InsertEntryTx so they always share the ledger's transaction with
// the source record.
type Repository interface {
	List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]JournalEntry, error)
	Get(ctx context.Context, orgID, entryID uuid.UUID) (JournalEntry, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, org_id, number, date, memo, source_module, source_id, reverses_id, posted_by, posted_at`

func (r *repository) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]JournalEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+`
FROM journal_entries WHERE org_id=$1 ORDER BY number DESC LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.OrgID, &e.Number, &e.Date, &e.Memo, &e.SourceModule, &e.SourceID, &e.ReversesID, &e.PostedBy, &e.PostedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) Get(ctx context.Context, orgID, entryID uuid.UUID) (JournalEntry, error) {
	var e JournalEntry
	err := r.db.QueryRow(ctx, `SELECT `+entryColumns+`
FROM journal_entries WHERE org_id=$1 AND id=$2`, orgID, entryID).
		Scan(&e.ID, &e.OrgID, &e.Number, &e.Date, &e.Memo, &e.SourceModule, &e.SourceID, &e.ReversesID, &e.PostedBy, &e.PostedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrNotFound
		}
		return JournalEntry{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, je_id, account_id, debit, credit
FROM journal_lines WHERE je_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit); err != nil {
			return JournalEntry{}, err
		}
		e.Lines = append(e.Lines, line)
	}
	return e, rows.Err()
}

// InsertEntryTx writes the entry and its lines inside the caller's
// transaction. The per-organization entry number is assigned here.
func InsertEntryTx(ctx context.Context, tx pgx.Tx, in PostingInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	entry := JournalEntry{
		ID:           uuid.New(),
		OrgID:        in.OrgID,
		Date:         in.Date,
		Memo:         in.Memo,
		SourceModule: in.SourceModule,
		SourceID:     in.SourceID,
		ReversesID:   in.ReversesID,
		PostedBy:     in.PostedBy,
	}
	err := tx.QueryRow(ctx, `INSERT INTO journal_entries (id, org_id, number, date, memo, source_module, source_id, reverses_id, posted_by)
VALUES ($1, $2,
	(SELECT COALESCE(MAX(number), 0) + 1 FROM journal_entries WHERE org_id = $2),
	$3, $4, $5, $6, $7, $8)
RETURNING number, posted_at`,
		entry.ID, entry.OrgID, entry.Date, entry.Memo, entry.SourceModule, entry.SourceID, entry.ReversesID, entry.PostedBy).
		Scan(&entry.Number, &entry.PostedAt)
	if err != nil {
		return JournalEntry{}, err
	}
	for _, line := range in.Lines {
		l := JournalLine{
			ID:        uuid.New(),
			EntryID:   entry.ID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
		}
		if _, err := tx.Exec(ctx, `INSERT INTO journal_lines (id, je_id, account_id, debit, credit)
VALUES ($1, $2, $3, $4, $5)`, l.ID, l.EntryID, l.AccountID, l.Debit, l.Credit); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, l)
	}
	return entry, nil
}
