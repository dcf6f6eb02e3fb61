package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/accounting/accounts"
	"github.com/vecino-erp/vecino-erp/internal/accounting/journals"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// IdempotencyPort guards against double-posting on retried requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort records posting activity.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts posted entries and applied payments.
type MetricsPort interface {
	EntryPosted(source string)
	PaymentApplied()
}

// CachePort drops cached report figures for an organization after a write.
type CachePort interface {
	Invalidate(ctx context.Context, orgID uuid.UUID) error
}

const idempotencyModule = "ledger"

// Service is the posting engine. Every operation writes the source record
// and its balanced journal entry in one transaction; a partial write never
// survives.
type Service struct {
	repo    Repository
	idem    IdempotencyPort
	audit   AuditPort
	metrics MetricsPort
	cache   CachePort
	now     func() time.Time
}

// NewService constructs the posting engine. idem and audit may be nil in
// tests.
func NewService(repo Repository, idem IdempotencyPort, audit AuditPort) *Service {
	return &Service{repo: repo, idem: idem, audit: audit, now: time.Now}
}

// SetMetrics injects the metrics sink.
func (s *Service) SetMetrics(m MetricsPort) { s.metrics = m }

// SetCache injects the report-cache invalidation hook.
func (s *Service) SetCache(c CachePort) { s.cache = c }

// PostIncome records an income transaction: debit the cash account, credit
// the income account.
func (s *Service) PostIncome(ctx context.Context, rc shared.RequestContext, in TransactionInput) (Transaction, error) {
	return s.postTransaction(ctx, rc, TxIncome, in)
}

// PostExpense records an expense transaction: debit the expense account,
// credit the cash account.
func (s *Service) PostExpense(ctx context.Context, rc shared.RequestContext, in TransactionInput) (Transaction, error) {
	return s.postTransaction(ctx, rc, TxExpense, in)
}

func (s *Service) postTransaction(ctx context.Context, rc shared.RequestContext, kind TransactionKind, in TransactionInput) (Transaction, error) {
	if rc.OrgID == uuid.Nil {
		return Transaction{}, shared.ErrTenantScope
	}
	if err := in.validate(); err != nil {
		return Transaction{}, err
	}

	categoryType := accounts.TypeIncome
	source := journals.SourceIncome
	if kind == TxExpense {
		categoryType = accounts.TypeExpense
		source = journals.SourceExpense
	}

	release, err := s.beginIdempotent(ctx, in.IdempotencyKey)
	if err != nil {
		return Transaction{}, err
	}

	t := Transaction{
		ID:                uuid.New(),
		OrgID:             rc.OrgID,
		Kind:              kind,
		Date:              in.Date,
		Description:       in.Description,
		Amount:            in.Amount,
		CategoryAccountID: in.CategoryAccountID,
		CashAccountID:     in.CashAccountID,
		CreatedBy:         rc.UserID,
		CreatedAt:         s.now(),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		t.CategoryAccountID, err = s.resolveAccount(ctx, tx, rc.OrgID, t.CategoryAccountID, categoryType, func(d AccountDefaults) uuid.UUID {
			if kind == TxIncome {
				return d.IncomeAccountID
			}
			return d.ExpenseAccountID
		})
		if err != nil {
			return err
		}
		t.CashAccountID, err = s.resolveAccount(ctx, tx, rc.OrgID, t.CashAccountID, accounts.TypeAsset, func(d AccountDefaults) uuid.UUID {
			return d.CashAccountID
		})
		if err != nil {
			return err
		}

		lines := []journals.LineInput{
			{AccountID: t.CashAccountID, Debit: t.Amount},
			{AccountID: t.CategoryAccountID, Credit: t.Amount},
		}
		if kind == TxExpense {
			lines = []journals.LineInput{
				{AccountID: t.CategoryAccountID, Debit: t.Amount},
				{AccountID: t.CashAccountID, Credit: t.Amount},
			}
		}
		entry, err := tx.InsertEntry(ctx, journals.PostingInput{
			OrgID:        rc.OrgID,
			Date:         t.Date,
			Memo:         t.Description,
			SourceModule: source,
			SourceID:     t.ID,
			PostedBy:     rc.UserID,
			Lines:        lines,
		})
		if err != nil {
			return err
		}
		t.EntryID = entry.ID
		return tx.InsertTransaction(ctx, t)
	})
	release(err)
	if err != nil {
		return Transaction{}, err
	}

	s.afterPost(ctx, rc, source, strings.ToLower(string(kind))+".post", t.ID, map[string]any{"amount": t.Amount.String()})
	return t, nil
}

// PostInvoice creates an accounts-receivable document: debit the receivable
// account for the total, credit revenue and the tax account.
func (s *Service) PostInvoice(ctx context.Context, rc shared.RequestContext, in DocumentInput) (Document, error) {
	in.Kind = KindInvoice
	return s.postDocument(ctx, rc, in)
}

// PostBill creates an accounts-payable document: debit expense and the tax
// account, credit the payable account for the total.
func (s *Service) PostBill(ctx context.Context, rc shared.RequestContext, in DocumentInput) (Document, error) {
	in.Kind = KindBill
	return s.postDocument(ctx, rc, in)
}

func (s *Service) postDocument(ctx context.Context, rc shared.RequestContext, in DocumentInput) (Document, error) {
	if rc.OrgID == uuid.Nil {
		return Document{}, shared.ErrTenantScope
	}
	if err := in.validate(); err != nil {
		return Document{}, err
	}

	counterType := accounts.TypeAsset
	categoryType := accounts.TypeIncome
	source := journals.SourceARInvoice
	if in.Kind == KindBill {
		counterType = accounts.TypeLiability
		categoryType = accounts.TypeExpense
		source = journals.SourceAPBill
	}

	release, err := s.beginIdempotent(ctx, in.IdempotencyKey)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:           uuid.New(),
		OrgID:        rc.OrgID,
		Kind:         in.Kind,
		Counterparty: in.Counterparty,
		IssueDate:    in.IssueDate,
		DueDate:      in.DueDate,
		Subtotal:     in.Subtotal,
		Tax:          in.Tax,
		Discount:     in.Discount,
		Total:        in.total(),
		Status:       StatusIssued,
		CreatedBy:    rc.UserID,
		CreatedAt:    s.now(),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc.CounterAccountID, err = s.resolveAccount(ctx, tx, rc.OrgID, in.CounterAccountID, counterType, func(d AccountDefaults) uuid.UUID {
			if in.Kind == KindInvoice {
				return d.ARAccountID
			}
			return d.APAccountID
		})
		if err != nil {
			return err
		}
		categoryID, err := s.resolveAccount(ctx, tx, rc.OrgID, in.CategoryAccountID, categoryType, func(d AccountDefaults) uuid.UUID {
			if in.Kind == KindInvoice {
				return d.IncomeAccountID
			}
			return d.ExpenseAccountID
		})
		if err != nil {
			return err
		}
		var taxID uuid.UUID
		if doc.Tax > 0 {
			taxID, err = s.resolveAccount(ctx, tx, rc.OrgID, uuid.Nil, "", func(d AccountDefaults) uuid.UUID {
				return d.TaxAccountID
			})
			if err != nil {
				return err
			}
		}

		doc.Number, err = tx.NextDocumentNumber(ctx, rc.OrgID, doc.Kind)
		if err != nil {
			return err
		}

		// subtotal - discount balances against total - tax by construction
		var lines []journals.LineInput
		if in.Kind == KindInvoice {
			lines = []journals.LineInput{
				{AccountID: doc.CounterAccountID, Debit: doc.Total},
				{AccountID: categoryID, Credit: doc.Subtotal - doc.Discount},
			}
			if doc.Tax > 0 {
				lines = append(lines, journals.LineInput{AccountID: taxID, Credit: doc.Tax})
			}
		} else {
			lines = []journals.LineInput{
				{AccountID: categoryID, Debit: doc.Subtotal - doc.Discount},
			}
			if doc.Tax > 0 {
				lines = append(lines, journals.LineInput{AccountID: taxID, Debit: doc.Tax})
			}
			lines = append(lines, journals.LineInput{AccountID: doc.CounterAccountID, Credit: doc.Total})
		}

		entry, err := tx.InsertEntry(ctx, journals.PostingInput{
			OrgID:        rc.OrgID,
			Date:         doc.IssueDate,
			Memo:         fmt.Sprintf("%s %d %s", doc.Kind, doc.Number, doc.Counterparty),
			SourceModule: source,
			SourceID:     doc.ID,
			PostedBy:     rc.UserID,
			Lines:        lines,
		})
		if err != nil {
			return err
		}
		doc.EntryID = entry.ID
		doc.UpdatedAt = doc.CreatedAt
		return tx.InsertDocument(ctx, doc)
	})
	release(err)
	if err != nil {
		return Document{}, err
	}

	s.afterPost(ctx, rc, source, "document.post", doc.ID, map[string]any{
		"kind":  string(doc.Kind),
		"total": doc.Total.String(),
	})
	return doc, nil
}

// PostPayment applies money against a document and moves cash against the
// receivable or payable account. Cumulative payments never exceed the
// document total; an exact match transitions the document to PAID.
func (s *Service) PostPayment(ctx context.Context, rc shared.RequestContext, in PaymentInput) (Payment, error) {
	if rc.OrgID == uuid.Nil {
		return Payment{}, shared.ErrTenantScope
	}
	if err := in.validate(); err != nil {
		return Payment{}, err
	}

	release, err := s.beginIdempotent(ctx, in.IdempotencyKey)
	if err != nil {
		return Payment{}, err
	}

	p := Payment{
		ID:         uuid.New(),
		OrgID:      rc.OrgID,
		DocumentID: in.DocumentID,
		Date:       in.Date,
		Amount:     in.Amount,
		Method:     in.Method,
		CreatedBy:  rc.UserID,
		CreatedAt:  s.now(),
	}
	var source string
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetDocumentForUpdate(ctx, rc.OrgID, in.DocumentID)
		if err != nil {
			return err
		}
		switch doc.Status {
		case StatusVoid:
			return shared.ErrDocumentVoid
		case StatusPaid:
			return shared.ErrDocumentClosed
		}
		applied, err := tx.SumPayments(ctx, doc.ID)
		if err != nil {
			return err
		}
		if applied+in.Amount > doc.Total {
			return fmt.Errorf("%w: %s applied, %s remaining", shared.ErrOverpayment, applied, doc.Total-applied)
		}

		p.CashAccountID, err = s.resolveAccount(ctx, tx, rc.OrgID, in.CashAccountID, accounts.TypeAsset, func(d AccountDefaults) uuid.UUID {
			return d.CashAccountID
		})
		if err != nil {
			return err
		}

		source = journals.SourceARPayment
		lines := []journals.LineInput{
			{AccountID: p.CashAccountID, Debit: p.Amount},
			{AccountID: doc.CounterAccountID, Credit: p.Amount},
		}
		if doc.Kind == KindBill {
			source = journals.SourceAPPayment
			lines = []journals.LineInput{
				{AccountID: doc.CounterAccountID, Debit: p.Amount},
				{AccountID: p.CashAccountID, Credit: p.Amount},
			}
		}
		entry, err := tx.InsertEntry(ctx, journals.PostingInput{
			OrgID:        rc.OrgID,
			Date:         p.Date,
			Memo:         fmt.Sprintf("payment on %s %d", doc.Kind, doc.Number),
			SourceModule: source,
			SourceID:     p.ID,
			PostedBy:     rc.UserID,
			Lines:        lines,
		})
		if err != nil {
			return err
		}
		p.EntryID = entry.ID
		if err := tx.InsertPayment(ctx, p); err != nil {
			return err
		}
		if applied+in.Amount == doc.Total {
			return tx.UpdateDocumentStatus(ctx, rc.OrgID, doc.ID, StatusPaid)
		}
		return nil
	})
	release(err)
	if err != nil {
		return Payment{}, err
	}

	if s.metrics != nil {
		s.metrics.PaymentApplied()
	}
	s.afterPost(ctx, rc, source, "payment.post", p.ID, map[string]any{
		"document_id": p.DocumentID.String(),
		"amount":      p.Amount.String(),
	})
	return p, nil
}

// VoidDocument voids an unpaid document and backs its journal entry out
// with a reversing entry. Documents with payments cannot be voided.
func (s *Service) VoidDocument(ctx context.Context, rc shared.RequestContext, docID uuid.UUID) (Document, error) {
	if rc.OrgID == uuid.Nil {
		return Document{}, shared.ErrTenantScope
	}
	var doc Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetDocumentForUpdate(ctx, rc.OrgID, docID)
		if err != nil {
			return err
		}
		switch doc.Status {
		case StatusVoid:
			return shared.ErrDocumentVoid
		case StatusPaid:
			return shared.ErrDocumentClosed
		}
		applied, err := tx.SumPayments(ctx, doc.ID)
		if err != nil {
			return err
		}
		if applied > 0 {
			return fmt.Errorf("%w: cannot void a document with payments", shared.ErrValidation)
		}
		if _, err := s.reverseInTx(ctx, tx, rc, doc.EntryID, fmt.Sprintf("void %s %d", doc.Kind, doc.Number)); err != nil {
			return err
		}
		if err := tx.UpdateDocumentStatus(ctx, rc.OrgID, doc.ID, StatusVoid); err != nil {
			return err
		}
		doc.Status = StatusVoid
		return nil
	})
	if err != nil {
		return Document{}, err
	}

	s.afterPost(ctx, rc, "", "document.void", doc.ID, map[string]any{"kind": string(doc.Kind)})
	return doc, nil
}

// ReverseEntry posts the mirror image of an existing entry. An entry can
// be reversed once; entries are never edited in place.
func (s *Service) ReverseEntry(ctx context.Context, rc shared.RequestContext, entryID uuid.UUID, memo string) (journals.JournalEntry, error) {
	if rc.OrgID == uuid.Nil {
		return journals.JournalEntry{}, shared.ErrTenantScope
	}
	var reversal journals.JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		reversal, err = s.reverseInTx(ctx, tx, rc, entryID, memo)
		return err
	})
	if err != nil {
		return journals.JournalEntry{}, err
	}

	s.afterPost(ctx, rc, reversal.SourceModule, "journal.reverse", reversal.ID, map[string]any{
		"reverses": entryID.String(),
	})
	return reversal, nil
}

func (s *Service) reverseInTx(ctx context.Context, tx TxRepository, rc shared.RequestContext, entryID uuid.UUID, memo string) (journals.JournalEntry, error) {
	entry, err := tx.GetEntry(ctx, rc.OrgID, entryID)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	reversed, err := tx.HasReversal(ctx, entry.ID)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	if reversed {
		return journals.JournalEntry{}, fmt.Errorf("%w: entry already reversed", shared.ErrDuplicate)
	}
	if memo == "" {
		memo = fmt.Sprintf("reversal of entry %d", entry.Number)
	}
	return tx.InsertEntry(ctx, journals.PostingInput{
		OrgID:        rc.OrgID,
		Date:         s.now(),
		Memo:         memo,
		SourceModule: entry.SourceModule,
		SourceID:     entry.SourceID,
		ReversesID:   &entry.ID,
		PostedBy:     rc.UserID,
		Lines:        journals.ReverseLines(entry.Lines),
	})
}

// GetDocument returns one document within the organization.
func (s *Service) GetDocument(ctx context.Context, rc shared.RequestContext, docID uuid.UUID) (Document, error) {
	return s.repo.GetDocument(ctx, rc.OrgID, docID)
}

// ListDocuments returns documents of a kind, newest first.
func (s *Service) ListDocuments(ctx context.Context, rc shared.RequestContext, kind DocumentKind, limit, offset int) ([]Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown document kind %q", shared.ErrValidation, kind)
	}
	return s.repo.ListDocuments(ctx, rc.OrgID, kind, limit, offset)
}

// ListTransactions returns income or expense postings, newest first.
func (s *Service) ListTransactions(ctx context.Context, rc shared.RequestContext, kind TransactionKind, limit, offset int) ([]Transaction, error) {
	if kind != TxIncome && kind != TxExpense {
		return nil, fmt.Errorf("%w: unknown transaction kind %q", shared.ErrValidation, kind)
	}
	return s.repo.ListTransactions(ctx, rc.OrgID, kind, limit, offset)
}

// ListPayments returns the payment history of a document.
func (s *Service) ListPayments(ctx context.Context, rc shared.RequestContext, docID uuid.UUID) ([]Payment, error) {
	return s.repo.ListPayments(ctx, rc.OrgID, docID)
}

// Defaults returns the organization's default posting accounts.
func (s *Service) Defaults(ctx context.Context, rc shared.RequestContext) (AccountDefaults, error) {
	return s.repo.GetDefaults(ctx, rc.OrgID)
}

// SetDefaults stores the organization's default posting accounts after
// checking that each named account belongs to the organization, is active,
// and has the expected type.
func (s *Service) SetDefaults(ctx context.Context, rc shared.RequestContext, d AccountDefaults) error {
	d.OrgID = rc.OrgID
	checks := []struct {
		id       uuid.UUID
		wantType accounts.AccountType
	}{
		{d.CashAccountID, accounts.TypeAsset},
		{d.IncomeAccountID, accounts.TypeIncome},
		{d.ExpenseAccountID, accounts.TypeExpense},
		{d.ARAccountID, accounts.TypeAsset},
		{d.APAccountID, accounts.TypeLiability},
		{d.TaxAccountID, ""},
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, c := range checks {
			if c.id == uuid.Nil {
				continue
			}
			if err := s.checkAccount(ctx, tx, rc.OrgID, c.id, c.wantType); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.repo.SetDefaults(ctx, d); err != nil {
		return err
	}
	s.afterPost(ctx, rc, "", "defaults.set", rc.OrgID, nil)
	return nil
}

// resolveAccount picks the explicit account id or falls back to the
// organization's default, then verifies tenant, active flag, and type.
// Defaults are read through tx so they come from the same snapshot as the
// account checks.
func (s *Service) resolveAccount(ctx context.Context, tx TxRepository, orgID, explicit uuid.UUID, wantType accounts.AccountType, pick func(AccountDefaults) uuid.UUID) (uuid.UUID, error) {
	id := explicit
	if id == uuid.Nil {
		defaults, err := tx.GetDefaults(ctx, orgID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: no account given and no defaults configured", shared.ErrValidation)
		}
		id = pick(defaults)
		if id == uuid.Nil {
			return uuid.Nil, fmt.Errorf("%w: no account given and no default configured for it", shared.ErrValidation)
		}
	}
	if err := s.checkAccount(ctx, tx, orgID, id, wantType); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (s *Service) checkAccount(ctx context.Context, tx TxRepository, orgID, accountID uuid.UUID, wantType accounts.AccountType) error {
	account, err := tx.GetAccount(ctx, orgID, accountID)
	if err != nil {
		return fmt.Errorf("%w: account %s", shared.ErrAccountMismatch, accountID)
	}
	if !account.IsActive {
		return fmt.Errorf("%w: account %s is inactive", shared.ErrAccountMismatch, account.Code)
	}
	if wantType != "" && account.Type != wantType {
		return fmt.Errorf("%w: account %s is %s, want %s", shared.ErrAccountMismatch, account.Code, account.Type, wantType)
	}
	return nil
}

// beginIdempotent claims the client key before posting. The returned
// release deletes the key again when the posting failed, so a retry can
// succeed.
func (s *Service) beginIdempotent(ctx context.Context, key string) (func(error), error) {
	if key == "" || s.idem == nil {
		return func(error) {}, nil
	}
	if err := s.idem.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
		return nil, err
	}
	return func(err error) {
		if err != nil {
			_ = s.idem.Delete(ctx, key)
		}
	}, nil
}

func (s *Service) afterPost(ctx context.Context, rc shared.RequestContext, source, action string, entityID uuid.UUID, meta map[string]any) {
	if s.metrics != nil && source != "" {
		s.metrics.EntryPosted(source)
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, rc.OrgID)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  rc.UserID,
			OrgID:    rc.OrgID,
			Action:   action,
			Entity:   "ledger",
			EntityID: entityID.String(),
			Meta:     meta,
			At:       s.now(),
		})
	}
}
