package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vecino-erp/vecino-erp/internal/accounting/accounts"
	"github.com/vecino-erp/vecino-erp/internal/accounting/journals"
	"github.com/vecino-erp/vecino-erp/internal/platform/money"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

type memoryLedgerRepo struct {
	accounts     map[uuid.UUID]accounts.Account
	defaults     map[uuid.UUID]AccountDefaults
	transactions map[uuid.UUID]Transaction
	documents    map[uuid.UUID]Document
	payments     map[uuid.UUID]Payment
	entries      map[uuid.UUID]journals.JournalEntry
	entrySeq     int64

	// counts reads of defaults outside a transaction; posting paths must
	// read them through the tx surface instead.
	poolDefaultsReads int
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		accounts:     make(map[uuid.UUID]accounts.Account),
		defaults:     make(map[uuid.UUID]AccountDefaults),
		transactions: make(map[uuid.UUID]Transaction),
		documents:    make(map[uuid.UUID]Document),
		payments:     make(map[uuid.UUID]Payment),
		entries:      make(map[uuid.UUID]journals.JournalEntry),
	}
}

func (r *memoryLedgerRepo) snapshot() *memoryLedgerRepo {
	clone := newMemoryLedgerRepo()
	for k, v := range r.accounts {
		clone.accounts[k] = v
	}
	for k, v := range r.defaults {
		clone.defaults[k] = v
	}
	for k, v := range r.transactions {
		clone.transactions[k] = v
	}
	for k, v := range r.documents {
		clone.documents[k] = v
	}
	for k, v := range r.payments {
		clone.payments[k] = v
	}
	for k, v := range r.entries {
		clone.entries[k] = v
	}
	clone.entrySeq = r.entrySeq
	return clone
}

func (r *memoryLedgerRepo) restore(from *memoryLedgerRepo) {
	r.accounts = from.accounts
	r.defaults = from.defaults
	r.transactions = from.transactions
	r.documents = from.documents
	r.payments = from.payments
	r.entries = from.entries
	r.entrySeq = from.entrySeq
}

func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	before := r.snapshot()
	if err := fn(ctx, &memoryLedgerTx{repo: r}); err != nil {
		r.restore(before)
		return err
	}
	return nil
}

func (r *memoryLedgerRepo) GetDocument(ctx context.Context, orgID, docID uuid.UUID) (Document, error) {
	doc, ok := r.documents[docID]
	if !ok || doc.OrgID != orgID {
		return Document{}, shared.ErrNotFound
	}
	return doc, nil
}

func (r *memoryLedgerRepo) ListDocuments(ctx context.Context, orgID uuid.UUID, kind DocumentKind, limit, offset int) ([]Document, error) {
	var out []Document
	for _, d := range r.documents {
		if d.OrgID == orgID && d.Kind == kind {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) ListTransactions(ctx context.Context, orgID uuid.UUID, kind TransactionKind, limit, offset int) ([]Transaction, error) {
	var out []Transaction
	for _, t := range r.transactions {
		if t.OrgID == orgID && t.Kind == kind {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) ListPayments(ctx context.Context, orgID, docID uuid.UUID) ([]Payment, error) {
	var out []Payment
	for _, p := range r.payments {
		if p.OrgID == orgID && p.DocumentID == docID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) GetDefaults(ctx context.Context, orgID uuid.UUID) (AccountDefaults, error) {
	r.poolDefaultsReads++
	d, ok := r.defaults[orgID]
	if !ok {
		return AccountDefaults{}, shared.ErrNotFound
	}
	return d, nil
}

func (r *memoryLedgerRepo) SetDefaults(ctx context.Context, d AccountDefaults) error {
	r.defaults[d.OrgID] = d
	return nil
}

func (r *memoryLedgerRepo) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	var n int64
	for id, d := range r.documents {
		if d.Status == StatusIssued && d.DueDate.Before(asOf) {
			d.Status = StatusOverdue
			r.documents[id] = d
			n++
		}
	}
	return n, nil
}

type memoryLedgerTx struct {
	repo *memoryLedgerRepo
}

func (t *memoryLedgerTx) GetAccount(ctx context.Context, orgID, accountID uuid.UUID) (accounts.Account, error) {
	a, ok := t.repo.accounts[accountID]
	if !ok || a.OrgID != orgID {
		return accounts.Account{}, shared.ErrNotFound
	}
	return a, nil
}

func (t *memoryLedgerTx) GetDefaults(ctx context.Context, orgID uuid.UUID) (AccountDefaults, error) {
	d, ok := t.repo.defaults[orgID]
	if !ok {
		return AccountDefaults{}, shared.ErrNotFound
	}
	return d, nil
}

func (t *memoryLedgerTx) GetDocumentForUpdate(ctx context.Context, orgID, docID uuid.UUID) (Document, error) {
	return t.repo.GetDocument(ctx, orgID, docID)
}

func (t *memoryLedgerTx) SumPayments(ctx context.Context, docID uuid.UUID) (money.Cents, error) {
	var sum money.Cents
	for _, p := range t.repo.payments {
		if p.DocumentID == docID {
			sum += p.Amount
		}
	}
	return sum, nil
}

func (t *memoryLedgerTx) NextDocumentNumber(ctx context.Context, orgID uuid.UUID, kind DocumentKind) (int64, error) {
	var max int64
	for _, d := range t.repo.documents {
		if d.OrgID == orgID && d.Kind == kind && d.Number > max {
			max = d.Number
		}
	}
	return max + 1, nil
}

func (t *memoryLedgerTx) InsertTransaction(ctx context.Context, tx Transaction) error {
	t.repo.transactions[tx.ID] = tx
	return nil
}

func (t *memoryLedgerTx) InsertDocument(ctx context.Context, d Document) error {
	t.repo.documents[d.ID] = d
	return nil
}

func (t *memoryLedgerTx) InsertPayment(ctx context.Context, p Payment) error {
	t.repo.payments[p.ID] = p
	return nil
}

func (t *memoryLedgerTx) UpdateDocumentStatus(ctx context.Context, orgID, docID uuid.UUID, status DocumentStatus) error {
	d, ok := t.repo.documents[docID]
	if !ok || d.OrgID != orgID {
		return shared.ErrNotFound
	}
	d.Status = status
	t.repo.documents[docID] = d
	return nil
}

func (t *memoryLedgerTx) InsertEntry(ctx context.Context, in journals.PostingInput) (journals.JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return journals.JournalEntry{}, err
	}
	t.repo.entrySeq++
	entry := journals.JournalEntry{
		ID:           uuid.New(),
		OrgID:        in.OrgID,
		Number:       t.repo.entrySeq,
		Date:         in.Date,
		Memo:         in.Memo,
		SourceModule: in.SourceModule,
		SourceID:     in.SourceID,
		ReversesID:   in.ReversesID,
		PostedBy:     in.PostedBy,
		PostedAt:     time.Now(),
	}
	for _, line := range in.Lines {
		entry.Lines = append(entry.Lines, journals.JournalLine{
			ID:        uuid.New(),
			EntryID:   entry.ID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
		})
	}
	t.repo.entries[entry.ID] = entry
	return entry, nil
}

func (t *memoryLedgerTx) GetEntry(ctx context.Context, orgID, entryID uuid.UUID) (journals.JournalEntry, error) {
	e, ok := t.repo.entries[entryID]
	if !ok || e.OrgID != orgID {
		return journals.JournalEntry{}, shared.ErrNotFound
	}
	return e, nil
}

func (t *memoryLedgerTx) HasReversal(ctx context.Context, entryID uuid.UUID) (bool, error) {
	for _, e := range t.repo.entries {
		if e.ReversesID != nil && *e.ReversesID == entryID {
			return true, nil
		}
	}
	return false, nil
}

type memoryIdem struct {
	keys map[string]bool
}

func (m *memoryIdem) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.keys == nil {
		m.keys = make(map[string]bool)
	}
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdem) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type fixture struct {
	repo    *memoryLedgerRepo
	service *Service
	rc      shared.RequestContext
	cash    uuid.UUID
	income  uuid.UUID
	expense uuid.UUID
	ar      uuid.UUID
	ap      uuid.UUID
	tax     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemoryLedgerRepo()
	orgID := uuid.New()
	f := &fixture{
		repo:    repo,
		service: NewService(repo, nil, nil),
		rc:      shared.RequestContext{UserID: uuid.New(), OrgID: orgID, Role: "tesorero"},
	}
	f.cash = f.addAccount(orgID, "1100", accounts.TypeAsset)
	f.income = f.addAccount(orgID, "4100", accounts.TypeIncome)
	f.expense = f.addAccount(orgID, "5100", accounts.TypeExpense)
	f.ar = f.addAccount(orgID, "1200", accounts.TypeAsset)
	f.ap = f.addAccount(orgID, "2100", accounts.TypeLiability)
	f.tax = f.addAccount(orgID, "2200", accounts.TypeLiability)
	return f
}

func (f *fixture) addAccount(orgID uuid.UUID, code string, typ accounts.AccountType) uuid.UUID {
	id := uuid.New()
	f.repo.accounts[id] = accounts.Account{ID: id, OrgID: orgID, Code: code, Type: typ, IsActive: true}
	return id
}

func day(d int) time.Time {
	return time.Date(2026, 4, d, 0, 0, 0, 0, time.UTC)
}

func TestPostIncomeBalancedEntry(t *testing.T) {
	f := newFixture(t)
	posted, err := f.service.PostIncome(context.Background(), f.rc, TransactionInput{
		Date:              day(1),
		Description:       "monthly fee block A",
		Amount:            money.Cents(10000),
		CategoryAccountID: f.income,
		CashAccountID:     f.cash,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, posted.EntryID)

	entry := f.repo.entries[posted.EntryID]
	require.Len(t, entry.Lines, 2)
	require.Equal(t, f.cash, entry.Lines[0].AccountID)
	require.Equal(t, money.Cents(10000), entry.Lines[0].Debit)
	require.Equal(t, money.Cents(0), entry.Lines[0].Credit)
	require.Equal(t, f.income, entry.Lines[1].AccountID)
	require.Equal(t, money.Cents(10000), entry.Lines[1].Credit)
	require.Equal(t, journals.SourceIncome, entry.SourceModule)
	require.Equal(t, posted.ID, entry.SourceID)
}

func TestPostExpenseMirrorsSides(t *testing.T) {
	f := newFixture(t)
	posted, err := f.service.PostExpense(context.Background(), f.rc, TransactionInput{
		Date:              day(2),
		Description:       "gardening",
		Amount:            money.Cents(4500),
		CategoryAccountID: f.expense,
		CashAccountID:     f.cash,
	})
	require.NoError(t, err)

	entry := f.repo.entries[posted.EntryID]
	require.Equal(t, f.expense, entry.Lines[0].AccountID)
	require.Equal(t, money.Cents(4500), entry.Lines[0].Debit)
	require.Equal(t, f.cash, entry.Lines[1].AccountID)
	require.Equal(t, money.Cents(4500), entry.Lines[1].Credit)
}

func TestPostIncomeRejectsWrongTenantAccount(t *testing.T) {
	f := newFixture(t)
	foreign := f.addAccount(uuid.New(), "4100", accounts.TypeIncome)
	_, err := f.service.PostIncome(context.Background(), f.rc, TransactionInput{
		Date:              day(1),
		Description:       "fee",
		Amount:            money.Cents(100),
		CategoryAccountID: foreign,
		CashAccountID:     f.cash,
	})
	require.ErrorIs(t, err, shared.ErrAccountMismatch)
	require.Empty(t, f.repo.transactions)
	require.Empty(t, f.repo.entries)
}

func TestPostIncomeRejectsInactiveAccount(t *testing.T) {
	f := newFixture(t)
	a := f.repo.accounts[f.cash]
	a.IsActive = false
	f.repo.accounts[f.cash] = a
	_, err := f.service.PostIncome(context.Background(), f.rc, TransactionInput{
		Date:              day(1),
		Description:       "fee",
		Amount:            money.Cents(100),
		CategoryAccountID: f.income,
		CashAccountID:     f.cash,
	})
	require.ErrorIs(t, err, shared.ErrAccountMismatch)
}

func TestPostIncomeUsesDefaults(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.SetDefaults(context.Background(), AccountDefaults{
		OrgID:           f.rc.OrgID,
		CashAccountID:   f.cash,
		IncomeAccountID: f.income,
	}))
	posted, err := f.service.PostIncome(context.Background(), f.rc, TransactionInput{
		Date:        day(3),
		Description: "fee",
		Amount:      money.Cents(2500),
	})
	require.NoError(t, err)
	require.Equal(t, f.cash, posted.CashAccountID)
	require.Equal(t, f.income, posted.CategoryAccountID)
}

func TestPostingReadsDefaultsInsideTransaction(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.SetDefaults(context.Background(), AccountDefaults{
		OrgID:           f.rc.OrgID,
		CashAccountID:   f.cash,
		IncomeAccountID: f.income,
	}))
	f.repo.poolDefaultsReads = 0

	_, err := f.service.PostIncome(context.Background(), f.rc, TransactionInput{
		Date:        day(3),
		Description: "fee",
		Amount:      money.Cents(2500),
	})
	require.NoError(t, err)
	require.Zero(t, f.repo.poolDefaultsReads)
}

func TestPostIncomeWithoutDefaultsFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.PostIncome(context.Background(), f.rc, TransactionInput{
		Date:        day(3),
		Description: "fee",
		Amount:      money.Cents(2500),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPostInvoiceTotalsAndLines(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.SetDefaults(context.Background(), AccountDefaults{
		OrgID: f.rc.OrgID, TaxAccountID: f.tax,
	}))
	doc, err := f.service.PostInvoice(context.Background(), f.rc, DocumentInput{
		Counterparty:      "Condominio Vista Azul",
		IssueDate:         day(1),
		DueDate:           day(30),
		Subtotal:          money.Cents(100000),
		Tax:               money.Cents(19000),
		Discount:          0,
		CounterAccountID:  f.ar,
		CategoryAccountID: f.income,
	})
	require.NoError(t, err)
	require.Equal(t, money.Cents(119000), doc.Total)
	require.Equal(t, StatusIssued, doc.Status)
	require.Equal(t, int64(1), doc.Number)

	entry := f.repo.entries[doc.EntryID]
	require.Len(t, entry.Lines, 3)
	var debit, credit money.Cents
	for _, line := range entry.Lines {
		debit += line.Debit
		credit += line.Credit
	}
	require.Equal(t, debit, credit)
	require.Equal(t, money.Cents(119000), entry.Lines[0].Debit)
	require.Equal(t, f.ar, entry.Lines[0].AccountID)
}

func TestPostBillCreditsPayable(t *testing.T) {
	f := newFixture(t)
	doc, err := f.service.PostBill(context.Background(), f.rc, DocumentInput{
		Counterparty:      "Limpieza Total SA",
		IssueDate:         day(1),
		DueDate:           day(15),
		Subtotal:          money.Cents(50000),
		CounterAccountID:  f.ap,
		CategoryAccountID: f.expense,
	})
	require.NoError(t, err)
	require.Equal(t, money.Cents(50000), doc.Total)

	entry := f.repo.entries[doc.EntryID]
	require.Len(t, entry.Lines, 2)
	require.Equal(t, f.expense, entry.Lines[0].AccountID)
	require.Equal(t, money.Cents(50000), entry.Lines[0].Debit)
	require.Equal(t, f.ap, entry.Lines[1].AccountID)
	require.Equal(t, money.Cents(50000), entry.Lines[1].Credit)
}

func (f *fixture) issueInvoice(t *testing.T, subtotal, tax money.Cents) Document {
	t.Helper()
	require.NoError(t, f.repo.SetDefaults(context.Background(), AccountDefaults{
		OrgID: f.rc.OrgID, TaxAccountID: f.tax,
	}))
	doc, err := f.service.PostInvoice(context.Background(), f.rc, DocumentInput{
		Counterparty:      "Vecino",
		IssueDate:         day(1),
		DueDate:           day(30),
		Subtotal:          subtotal,
		Tax:               tax,
		CounterAccountID:  f.ar,
		CategoryAccountID: f.income,
	})
	require.NoError(t, err)
	return doc
}

func TestFullPaymentTransitionsToPaid(t *testing.T) {
	f := newFixture(t)
	doc := f.issueInvoice(t, money.Cents(100000), money.Cents(19000))

	payment, err := f.service.PostPayment(context.Background(), f.rc, PaymentInput{
		DocumentID:    doc.ID,
		Date:          day(10),
		Amount:        money.Cents(119000),
		CashAccountID: f.cash,
	})
	require.NoError(t, err)

	stored, err := f.repo.GetDocument(context.Background(), f.rc.OrgID, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, stored.Status)

	entry := f.repo.entries[payment.EntryID]
	require.Equal(t, journals.SourceARPayment, entry.SourceModule)
	require.Equal(t, f.cash, entry.Lines[0].AccountID)
	require.Equal(t, money.Cents(119000), entry.Lines[0].Debit)
	require.Equal(t, f.ar, entry.Lines[1].AccountID)
	require.Equal(t, money.Cents(119000), entry.Lines[1].Credit)
}

func TestPaymentOnPaidDocumentFails(t *testing.T) {
	f := newFixture(t)
	doc := f.issueInvoice(t, money.Cents(100000), money.Cents(19000))
	_, err := f.service.PostPayment(context.Background(), f.rc, PaymentInput{
		DocumentID: doc.ID, Date: day(10), Amount: money.Cents(119000), CashAccountID: f.cash,
	})
	require.NoError(t, err)

	_, err = f.service.PostPayment(context.Background(), f.rc, PaymentInput{
		DocumentID: doc.ID, Date: day(11), Amount: money.Cents(1), CashAccountID: f.cash,
	})
	require.ErrorIs(t, err, shared.ErrDocumentClosed)
}

func TestOverpaymentRejectedWithoutMutation(t *testing.T) {
	f := newFixture(t)
	doc := f.issueInvoice(t, money.Cents(100000), 0)
	_, err := f.service.PostPayment(context.Background(), f.rc, PaymentInput{
		DocumentID: doc.ID, Date: day(5), Amount: money.Cents(60000), CashAccountID: f.cash,
	})
	require.NoError(t, err)

	entriesBefore := len(f.repo.entries)
	paymentsBefore := len(f.repo.payments)

	_, err = f.service.PostPayment(context.Background(), f.rc, PaymentInput{
		DocumentID: doc.ID, Date: day(6), Amount: money.Cents(50000), CashAccountID: f.cash,
	})
	require.ErrorIs(t, err, shared.ErrOverpayment)

	require.Len(t, f.repo.entries, entriesBefore)
	require.Len(t, f.repo.payments, paymentsBefore)
	stored, err := f.repo.GetDocument(context.Background(), f.rc.OrgID, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusIssued, stored.Status)
}

func TestPartialPaymentKeepsStatus(t *testing.T) {
	f := newFixture(t)
	doc := f.issueInvoice(t, money.Cents(100000), 0)
	_, err := f.service.PostPayment(context.Background(), f.rc, PaymentInput{
		DocumentID: doc.ID, Date: day(5), Amount: money.Cents(40000), CashAccountID: f.cash,
	})
	require.NoError(t, err)

	stored, err := f.repo.GetDocument(context.Background(), f.rc.OrgID, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusIssued, stored.Status)

	payments, err := f.service.ListPayments(context.Background(), f.rc, doc.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
}

func TestPaymentOnVoidDocumentFails(t *testing.T) {
	f := newFixture(t)
	doc := f.issueInvoice(t, money.Cents(100000), 0)
	_, err := f.service.VoidDocument(context.Background(), f.rc, doc.ID)
	require.NoError(t, err)

	_, err = f.service.PostPayment(context.Background(), f.rc, PaymentInput{
		DocumentID: doc.ID, Date: day(5), Amount: money.Cents(1000), CashAccountID: f.cash,
	})
	require.ErrorIs(t, err, shared.ErrDocumentVoid)
}

func TestVoidPostsReversingEntry(t *testing.T) {
	f := newFixture(t)
	doc := f.issueInvoice(t, money.Cents(100000), money.Cents(19000))
	voided, err := f.service.VoidDocument(context.Background(), f.rc, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusVoid, voided.Status)

	var reversal *journals.JournalEntry
	for _, e := range f.repo.entries {
		if e.ReversesID != nil && *e.ReversesID == doc.EntryID {
			entry := e
			reversal = &entry
		}
	}
	require.NotNil(t, reversal)
	original := f.repo.entries[doc.EntryID]
	require.Equal(t, original.Lines[0].Debit, reversal.Lines[0].Credit)
	require.Equal(t, original.Lines[0].Credit, reversal.Lines[0].Debit)
}

func TestVoidAfterPaymentFails(t *testing.T) {
	f := newFixture(t)
	doc := f.issueInvoice(t, money.Cents(100000), 0)
	_, err := f.service.PostPayment(context.Background(), f.rc, PaymentInput{
		DocumentID: doc.ID, Date: day(5), Amount: money.Cents(1000), CashAccountID: f.cash,
	})
	require.NoError(t, err)

	_, err = f.service.VoidDocument(context.Background(), f.rc, doc.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestReverseEntryOnlyOnce(t *testing.T) {
	f := newFixture(t)
	posted, err := f.service.PostIncome(context.Background(), f.rc, TransactionInput{
		Date:              day(1),
		Description:       "fee",
		Amount:            money.Cents(10000),
		CategoryAccountID: f.income,
		CashAccountID:     f.cash,
	})
	require.NoError(t, err)

	reversal, err := f.service.ReverseEntry(context.Background(), f.rc, posted.EntryID, "posted in error")
	require.NoError(t, err)
	require.NotNil(t, reversal.ReversesID)
	require.Equal(t, posted.EntryID, *reversal.ReversesID)

	_, err = f.service.ReverseEntry(context.Background(), f.rc, posted.EntryID, "")
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestTenantIsolationOnDocuments(t *testing.T) {
	f := newFixture(t)
	doc := f.issueInvoice(t, money.Cents(100000), 0)

	other := shared.RequestContext{UserID: uuid.New(), OrgID: uuid.New(), Role: "admin"}
	_, err := f.service.GetDocument(context.Background(), other, doc.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.service.PostPayment(context.Background(), other, PaymentInput{
		DocumentID: doc.ID, Date: day(5), Amount: money.Cents(1000), CashAccountID: f.cash,
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestIdempotencyKeyBlocksDoublePost(t *testing.T) {
	f := newFixture(t)
	idem := &memoryIdem{}
	f.service = NewService(f.repo, idem, nil)

	in := TransactionInput{
		Date:              day(1),
		Description:       "fee",
		Amount:            money.Cents(10000),
		CategoryAccountID: f.income,
		CashAccountID:     f.cash,
		IdempotencyKey:    "op-123",
	}
	_, err := f.service.PostIncome(context.Background(), f.rc, in)
	require.NoError(t, err)

	_, err = f.service.PostIncome(context.Background(), f.rc, in)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Len(t, f.repo.transactions, 1)
}

func TestIdempotencyKeyReleasedOnFailure(t *testing.T) {
	f := newFixture(t)
	idem := &memoryIdem{}
	f.service = NewService(f.repo, idem, nil)

	in := TransactionInput{
		Date:           day(1),
		Description:    "fee",
		Amount:         money.Cents(10000),
		IdempotencyKey: "op-retry",
	}
	_, err := f.service.PostIncome(context.Background(), f.rc, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in.CategoryAccountID = f.income
	in.CashAccountID = f.cash
	_, err = f.service.PostIncome(context.Background(), f.rc, in)
	require.NoError(t, err)
}

func TestDueDateBeforeIssueRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.PostInvoice(context.Background(), f.rc, DocumentInput{
		Counterparty:      "Vecino",
		IssueDate:         day(10),
		DueDate:           day(5),
		Subtotal:          money.Cents(1000),
		CounterAccountID:  f.ar,
		CategoryAccountID: f.income,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestMarkOverdueFlipsIssuedOnly(t *testing.T) {
	f := newFixture(t)
	open := f.issueInvoice(t, money.Cents(1000), 0)
	paid := f.issueInvoice(t, money.Cents(2000), 0)
	_, err := f.service.PostPayment(context.Background(), f.rc, PaymentInput{
		DocumentID: paid.ID, Date: day(2), Amount: money.Cents(2000), CashAccountID: f.cash,
	})
	require.NoError(t, err)

	n, err := f.repo.MarkOverdue(context.Background(), day(31))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	stored, err := f.repo.GetDocument(context.Background(), f.rc.OrgID, open.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, stored.Status)

	stored, err = f.repo.GetDocument(context.Background(), f.rc.OrgID, paid.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, stored.Status)
}

func TestTotalRoundTrip(t *testing.T) {
	f := newFixture(t)
	doc := f.issueInvoice(t, money.Cents(123456), money.Cents(23457))
	stored, err := f.repo.GetDocument(context.Background(), f.rc.OrgID, doc.ID)
	require.NoError(t, err)
	require.Equal(t, stored.Subtotal+stored.Tax-stored.Discount, stored.Total)
}
