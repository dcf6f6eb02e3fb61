package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vecino-erp/vecino-erp/internal/ledger"
	"github.com/vecino-erp/vecino-erp/internal/platform/money"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

type reportsTxn struct {
	kind   ledger.TransactionKind
	date   time.Time
	amount money.Cents
}

type memoryReportsRepo struct {
	txns        map[uuid.UUID][]reportsTxn
	overdue     map[uuid.UUID]money.Cents
	outstanding map[uuid.UUID][]OutstandingDocument
}

func newMemoryReportsRepo() *memoryReportsRepo {
	return &memoryReportsRepo{
		txns:        make(map[uuid.UUID][]reportsTxn),
		overdue:     make(map[uuid.UUID]money.Cents),
		outstanding: make(map[uuid.UUID][]OutstandingDocument),
	}
}

func (r *memoryReportsRepo) addTxn(orgID uuid.UUID, kind ledger.TransactionKind, date time.Time, amount money.Cents) {
	r.txns[orgID] = append(r.txns[orgID], reportsTxn{kind: kind, date: date, amount: amount})
}

func (r *memoryReportsRepo) SumTransactions(ctx context.Context, orgID uuid.UUID, kind ledger.TransactionKind, start, end time.Time) (money.Cents, error) {
	var sum money.Cents
	for _, t := range r.txns[orgID] {
		if t.kind != kind || t.date.Before(start) || t.date.After(end) {
			continue
		}
		sum += t.amount
	}
	return sum, nil
}

func (r *memoryReportsRepo) OverdueTotal(ctx context.Context, orgID uuid.UUID, kind ledger.DocumentKind) (money.Cents, error) {
	return r.overdue[orgID], nil
}

func (r *memoryReportsRepo) OutstandingDocuments(ctx context.Context, orgID uuid.UUID, kind ledger.DocumentKind) ([]OutstandingDocument, error) {
	return r.outstanding[orgID], nil
}

func TestMonthlyTotalsNet(t *testing.T) {
	repo := newMemoryReportsRepo()
	rc := shared.RequestContext{UserID: uuid.New(), OrgID: uuid.New(), Role: "lector"}
	repo.addTxn(rc.OrgID, ledger.TxIncome, time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC), 250000)
	repo.addTxn(rc.OrgID, ledger.TxExpense, time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC), 180000)

	service := NewService(repo, nil)
	totals, err := service.MonthlyTotals(context.Background(), rc,
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, money.Cents(250000), totals.Income)
	require.Equal(t, money.Cents(180000), totals.Expense)
	require.Equal(t, money.Cents(70000), totals.Net)
}

func TestMonthlyTotalsWindowIsInclusive(t *testing.T) {
	repo := newMemoryReportsRepo()
	rc := shared.RequestContext{OrgID: uuid.New()}
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	repo.addTxn(rc.OrgID, ledger.TxIncome, start, 10000)                   // first day counts
	repo.addTxn(rc.OrgID, ledger.TxIncome, end, 20000)                     // last day counts
	repo.addTxn(rc.OrgID, ledger.TxIncome, start.AddDate(0, 0, -1), 40000) // March 31 excluded
	repo.addTxn(rc.OrgID, ledger.TxIncome, end.AddDate(0, 0, 1), 80000)    // May 1 excluded

	service := NewService(repo, nil)
	totals, err := service.MonthlyTotals(context.Background(), rc, start, end)
	require.NoError(t, err)
	require.Equal(t, money.Cents(30000), totals.Income)
}

func TestMonthlyTotalsSingleDayWindow(t *testing.T) {
	repo := newMemoryReportsRepo()
	rc := shared.RequestContext{OrgID: uuid.New()}
	day := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	repo.addTxn(rc.OrgID, ledger.TxExpense, day, 5000)

	service := NewService(repo, nil)
	totals, err := service.MonthlyTotals(context.Background(), rc, day, day)
	require.NoError(t, err)
	require.Equal(t, money.Cents(5000), totals.Expense)
}

func TestMonthlyTotalsRejectsReversedWindow(t *testing.T) {
	service := NewService(newMemoryReportsRepo(), nil)
	rc := shared.RequestContext{OrgID: uuid.New()}
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err := service.MonthlyTotals(context.Background(), rc, day, day.AddDate(0, 0, -1))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestOverdueTotalScopedPerOrg(t *testing.T) {
	repo := newMemoryReportsRepo()
	rcA := shared.RequestContext{OrgID: uuid.New()}
	rcB := shared.RequestContext{OrgID: uuid.New()}
	repo.overdue[rcA.OrgID] = money.Cents(99000)

	service := NewService(repo, nil)
	total, err := service.OverdueTotal(context.Background(), rcA, ledger.KindInvoice)
	require.NoError(t, err)
	require.Equal(t, money.Cents(99000), total)

	total, err = service.OverdueTotal(context.Background(), rcB, ledger.KindInvoice)
	require.NoError(t, err)
	require.Equal(t, money.Cents(0), total)
}

func TestAgingBuckets(t *testing.T) {
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	docs := []OutstandingDocument{
		{ID: uuid.New(), DueDate: asOf.AddDate(0, 0, 10), Total: 10000, Paid: 0},   // not yet due
		{ID: uuid.New(), DueDate: asOf.AddDate(0, 0, -5), Total: 20000, Paid: 0},   // 5 days
		{ID: uuid.New(), DueDate: asOf.AddDate(0, 0, -45), Total: 30000, Paid: 0},  // 45 days
		{ID: uuid.New(), DueDate: asOf.AddDate(0, 0, -200), Total: 40000, Paid: 0}, // way out
		{ID: uuid.New(), DueDate: asOf.AddDate(0, 0, -5), Total: 5000, Paid: 5000}, // settled balance
	}
	report := buildAging(ledger.KindInvoice, asOf, docs)
	require.Equal(t, money.Cents(100000), report.Total)
	require.Len(t, report.Buckets, 6)
	require.Equal(t, "current", report.Buckets[0].Label)
	require.Equal(t, money.Cents(10000), report.Buckets[0].Balance)
	require.Equal(t, money.Cents(20000), report.Buckets[1].Balance)
	require.Equal(t, money.Cents(30000), report.Buckets[2].Balance)
	require.Equal(t, money.Cents(40000), report.Buckets[5].Balance)
	require.Equal(t, 1, report.Buckets[5].Count)
}

func TestAgingPartialPaymentReducesBalance(t *testing.T) {
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	docs := []OutstandingDocument{
		{ID: uuid.New(), DueDate: asOf.AddDate(0, 0, -5), Total: 20000, Paid: 15000},
	}
	report := buildAging(ledger.KindBill, asOf, docs)
	require.Equal(t, money.Cents(5000), report.Total)
	require.Equal(t, money.Cents(5000), report.Buckets[1].Balance)
}
