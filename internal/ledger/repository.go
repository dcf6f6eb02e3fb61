package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vecino-erp/vecino-erp/internal/accounting/accounts"
	"github.com/vecino-erp/vecino-erp/internal/accounting/journals"
	"github.com/vecino-erp/vecino-erp/internal/platform/db"
	"github.com/vecino-erp/vecino-erp/internal/platform/money"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// Repository persists ledger source records. Writes happen inside WithTx so
// the source row and its journal entry commit or roll back together.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetDocument(ctx context.Context, orgID, docID uuid.UUID) (Document, error)
	ListDocuments(ctx context.Context, orgID uuid.UUID, kind DocumentKind, limit, offset int) ([]Document, error)
	ListTransactions(ctx context.Context, orgID uuid.UUID, kind TransactionKind, limit, offset int) ([]Transaction, error)
	ListPayments(ctx context.Context, orgID, docID uuid.UUID) ([]Payment, error)
	GetDefaults(ctx context.Context, orgID uuid.UUID) (AccountDefaults, error)
	SetDefaults(ctx context.Context, d AccountDefaults) error
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// TxRepository is the transactional write surface used by the posting
// operations.
type TxRepository interface {
	GetAccount(ctx context.Context, orgID, accountID uuid.UUID) (accounts.Account, error)
	GetDefaults(ctx context.Context, orgID uuid.UUID) (AccountDefaults, error)
	GetDocumentForUpdate(ctx context.Context, orgID, docID uuid.UUID) (Document, error)
	SumPayments(ctx context.Context, docID uuid.UUID) (money.Cents, error)
	NextDocumentNumber(ctx context.Context, orgID uuid.UUID, kind DocumentKind) (int64, error)
	InsertTransaction(ctx context.Context, t Transaction) error
	InsertDocument(ctx context.Context, d Document) error
	InsertPayment(ctx context.Context, p Payment) error
	UpdateDocumentStatus(ctx context.Context, orgID, docID uuid.UUID, status DocumentStatus) error
	InsertEntry(ctx context.Context, in journals.PostingInput) (journals.JournalEntry, error)
	GetEntry(ctx context.Context, orgID, entryID uuid.UUID) (journals.JournalEntry, error)
	HasReversal(ctx context.Context, entryID uuid.UUID) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const documentColumns = `id, org_id, kind, number, counterparty, issue_date, due_date,
subtotal, tax, discount, total, status, counter_account_id, je_id, created_by, created_at, updated_at`

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.OrgID, &d.Kind, &d.Number, &d.Counterparty, &d.IssueDate, &d.DueDate,
		&d.Subtotal, &d.Tax, &d.Discount, &d.Total, &d.Status, &d.CounterAccountID, &d.EntryID, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, shared.ErrNotFound
	}
	return d, err
}

func (r *repository) GetDocument(ctx context.Context, orgID, docID uuid.UUID) (Document, error) {
	return scanDocument(r.pool.QueryRow(ctx, `SELECT `+documentColumns+`
FROM documents WHERE org_id=$1 AND id=$2`, orgID, docID))
}

func (r *repository) ListDocuments(ctx context.Context, orgID uuid.UUID, kind DocumentKind, limit, offset int) ([]Document, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+documentColumns+`
FROM documents WHERE org_id=$1 AND kind=$2 ORDER BY number DESC LIMIT $3 OFFSET $4`, orgID, kind, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *repository) ListTransactions(ctx context.Context, orgID uuid.UUID, kind TransactionKind, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, org_id, kind, date, description, amount, category_account_id, cash_account_id, je_id, created_by, created_at
FROM ledger_transactions WHERE org_id=$1 AND kind=$2 ORDER BY date DESC, created_at DESC LIMIT $3 OFFSET $4`, orgID, kind, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txs []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.OrgID, &t.Kind, &t.Date, &t.Description, &t.Amount,
			&t.CategoryAccountID, &t.CashAccountID, &t.EntryID, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *repository) ListPayments(ctx context.Context, orgID, docID uuid.UUID) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, org_id, document_id, date, amount, method, cash_account_id, je_id, created_by, created_at
FROM payments WHERE org_id=$1 AND document_id=$2 ORDER BY date ASC, created_at ASC`, orgID, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrgID, &p.DocumentID, &p.Date, &p.Amount, &p.Method,
			&p.CashAccountID, &p.EntryID, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

const defaultsQuery = `SELECT org_id, cash_account_id, income_account_id, expense_account_id, ar_account_id, ap_account_id, tax_account_id, updated_at
FROM account_defaults WHERE org_id=$1`

func scanDefaults(row pgx.Row) (AccountDefaults, error) {
	var d AccountDefaults
	err := row.Scan(&d.OrgID, &d.CashAccountID, &d.IncomeAccountID, &d.ExpenseAccountID, &d.ARAccountID, &d.APAccountID, &d.TaxAccountID, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return AccountDefaults{}, shared.ErrNotFound
	}
	return d, err
}

func (r *repository) GetDefaults(ctx context.Context, orgID uuid.UUID) (AccountDefaults, error) {
	return scanDefaults(r.pool.QueryRow(ctx, defaultsQuery, orgID))
}

func (r *repository) SetDefaults(ctx context.Context, d AccountDefaults) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO account_defaults (org_id, cash_account_id, income_account_id, expense_account_id, ar_account_id, ap_account_id, tax_account_id, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (org_id) DO UPDATE SET
	cash_account_id=EXCLUDED.cash_account_id,
	income_account_id=EXCLUDED.income_account_id,
	expense_account_id=EXCLUDED.expense_account_id,
	ar_account_id=EXCLUDED.ar_account_id,
	ap_account_id=EXCLUDED.ap_account_id,
	tax_account_id=EXCLUDED.tax_account_id,
	updated_at=NOW()`,
		d.OrgID, d.CashAccountID, d.IncomeAccountID, d.ExpenseAccountID, d.ARAccountID, d.APAccountID, d.TaxAccountID)
	return err
}

func (r *repository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE documents SET status=$1, updated_at=NOW()
WHERE status=$2 AND due_date < $3`, StatusOverdue, StatusIssued, asOf)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetAccount(ctx context.Context, orgID, accountID uuid.UUID) (accounts.Account, error) {
	var a accounts.Account
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, code, name, type, parent_id, is_active, created_at, updated_at
FROM accounts WHERE org_id=$1 AND id=$2`, orgID, accountID).
		Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return accounts.Account{}, shared.ErrNotFound
	}
	return a, err
}

func (r *txRepository) GetDefaults(ctx context.Context, orgID uuid.UUID) (AccountDefaults, error) {
	return scanDefaults(r.tx.QueryRow(ctx, defaultsQuery, orgID))
}

func (r *txRepository) GetDocumentForUpdate(ctx context.Context, orgID, docID uuid.UUID) (Document, error) {
	return scanDocument(r.tx.QueryRow(ctx, `SELECT `+documentColumns+`
FROM documents WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, docID))
}

func (r *txRepository) SumPayments(ctx context.Context, docID uuid.UUID) (money.Cents, error) {
	var sum money.Cents
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE document_id=$1`, docID).Scan(&sum)
	return sum, err
}

func (r *txRepository) NextDocumentNumber(ctx context.Context, orgID uuid.UUID, kind DocumentKind) (int64, error) {
	var n int64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(number), 0) + 1 FROM documents WHERE org_id=$1 AND kind=$2`, orgID, kind).Scan(&n)
	return n, err
}

func (r *txRepository) InsertTransaction(ctx context.Context, t Transaction) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO ledger_transactions (id, org_id, kind, date, description, amount, category_account_id, cash_account_id, je_id, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.OrgID, t.Kind, t.Date, t.Description, t.Amount, t.CategoryAccountID, t.CashAccountID, t.EntryID, t.CreatedBy, t.CreatedAt)
	return err
}

func (r *txRepository) InsertDocument(ctx context.Context, d Document) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO documents (id, org_id, kind, number, counterparty, issue_date, due_date, subtotal, tax, discount, total, status, counter_account_id, je_id, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)`,
		d.ID, d.OrgID, d.Kind, d.Number, d.Counterparty, d.IssueDate, d.DueDate,
		d.Subtotal, d.Tax, d.Discount, d.Total, d.Status, d.CounterAccountID, d.EntryID, d.CreatedBy, d.CreatedAt)
	return err
}

func (r *txRepository) InsertPayment(ctx context.Context, p Payment) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO payments (id, org_id, document_id, date, amount, method, cash_account_id, je_id, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.OrgID, p.DocumentID, p.Date, p.Amount, p.Method, p.CashAccountID, p.EntryID, p.CreatedBy, p.CreatedAt)
	return err
}

func (r *txRepository) UpdateDocumentStatus(ctx context.Context, orgID, docID uuid.UUID, status DocumentStatus) error {
	tag, err := r.tx.Exec(ctx, `UPDATE documents SET status=$1, updated_at=NOW() WHERE org_id=$2 AND id=$3`, status, orgID, docID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) InsertEntry(ctx context.Context, in journals.PostingInput) (journals.JournalEntry, error) {
	return journals.InsertEntryTx(ctx, r.tx, in)
}

func (r *txRepository) GetEntry(ctx context.Context, orgID, entryID uuid.UUID) (journals.JournalEntry, error) {
	var e journals.JournalEntry
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, number, date, memo, source_module, source_id, reverses_id, posted_by, posted_at
FROM journal_entries WHERE org_id=$1 AND id=$2`, orgID, entryID).
		Scan(&e.ID, &e.OrgID, &e.Number, &e.Date, &e.Memo, &e.SourceModule, &e.SourceID, &e.ReversesID, &e.PostedBy, &e.PostedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return journals.JournalEntry{}, shared.ErrNotFound
		}
		return journals.JournalEntry{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, je_id, account_id, debit, credit FROM journal_lines WHERE je_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line journals.JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit); err != nil {
			return journals.JournalEntry{}, err
		}
		e.Lines = append(e.Lines, line)
	}
	return e, rows.Err()
}

func (r *txRepository) HasReversal(ctx context.Context, entryID uuid.UUID) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE reverses_id=$1)`, entryID).Scan(&exists)
	return exists, err
}
