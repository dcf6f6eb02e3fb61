package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/vecino-erp/vecino-erp/internal/ledger"
	"github.com/vecino-erp/vecino-erp/internal/platform/money"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// Service derives dashboard figures from committed ledger state. It only
// reads; the read-through cache keeps hot figures close.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// NewService constructs a Service. cache may be nil.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// MonthlyTotals sums income and expense independently over the inclusive
// window [start, end]. A start==end window covers that single day.
func (s *Service) MonthlyTotals(ctx context.Context, rc shared.RequestContext, start, end time.Time) (MonthlyTotals, error) {
	if end.Before(start) {
		return MonthlyTotals{}, fmt.Errorf("%w: end must not be before start", shared.ErrValidation)
	}
	suffix := start.Format("2006-01-02") + ":" + end.Format("2006-01-02")
	var totals MonthlyTotals
	if hit, err := s.cache.Get(ctx, "monthly", rc.OrgID, suffix, &totals); err == nil && hit {
		return totals, nil
	}

	income, err := s.repo.SumTransactions(ctx, rc.OrgID, ledger.TxIncome, start, end)
	if err != nil {
		return MonthlyTotals{}, err
	}
	expense, err := s.repo.SumTransactions(ctx, rc.OrgID, ledger.TxExpense, start, end)
	if err != nil {
		return MonthlyTotals{}, err
	}
	totals = MonthlyTotals{
		Start:   start,
		End:     end,
		Income:  income,
		Expense: expense,
		Net:     income - expense,
	}
	_ = s.cache.Set(ctx, "monthly", rc.OrgID, suffix, totals)
	return totals, nil
}

// OverdueTotal sums totals over documents of the kind with status OVERDUE.
func (s *Service) OverdueTotal(ctx context.Context, rc shared.RequestContext, kind ledger.DocumentKind) (money.Cents, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: unknown document kind %q", shared.ErrValidation, kind)
	}
	suffix := string(kind)
	var total money.Cents
	if hit, err := s.cache.Get(ctx, "overdue", rc.OrgID, suffix, &total); err == nil && hit {
		return total, nil
	}
	total, err := s.repo.OverdueTotal(ctx, rc.OrgID, kind)
	if err != nil {
		return 0, err
	}
	_ = s.cache.Set(ctx, "overdue", rc.OrgID, suffix, total)
	return total, nil
}

var agingEdges = []struct {
	label   string
	maxDays int
}{
	{"current", 0},
	{"1-30", 30},
	{"31-60", 60},
	{"61-90", 90},
	{"91-120", 120},
}

// Aging classifies outstanding balances by how many days past due they are
// as of asOf. Fully paid and void documents never appear.
func (s *Service) Aging(ctx context.Context, rc shared.RequestContext, kind ledger.DocumentKind, asOf time.Time) (AgingReport, error) {
	if !kind.Valid() {
		return AgingReport{}, fmt.Errorf("%w: unknown document kind %q", shared.ErrValidation, kind)
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	suffix := string(kind) + ":" + asOf.Format("2006-01-02")
	var report AgingReport
	if hit, err := s.cache.Get(ctx, "aging", rc.OrgID, suffix, &report); err == nil && hit {
		return report, nil
	}

	docs, err := s.repo.OutstandingDocuments(ctx, rc.OrgID, kind)
	if err != nil {
		return AgingReport{}, err
	}
	report = buildAging(kind, asOf, docs)
	_ = s.cache.Set(ctx, "aging", rc.OrgID, suffix, report)
	return report, nil
}

func buildAging(kind ledger.DocumentKind, asOf time.Time, docs []OutstandingDocument) AgingReport {
	report := AgingReport{Kind: kind, AsOf: asOf}
	buckets := make([]AgingBucket, len(agingEdges)+1)
	for i, edge := range agingEdges {
		buckets[i].Label = edge.label
	}
	buckets[len(agingEdges)].Label = "120+"

	for _, doc := range docs {
		balance := doc.Total - doc.Paid
		if balance <= 0 {
			continue
		}
		days := int(asOf.Sub(doc.DueDate).Hours() / 24)
		idx := len(agingEdges)
		for i, edge := range agingEdges {
			if days <= edge.maxDays {
				idx = i
				break
			}
		}
		buckets[idx].Balance += balance
		buckets[idx].Count++
		report.Total += balance
	}
	report.Buckets = buckets
	return report
}
