package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vecino-erp/vecino-erp/internal/ledger"
	"github.com/vecino-erp/vecino-erp/internal/platform/httpx"
	"github.com/vecino-erp/vecino-erp/internal/platform/money"
	"github.com/vecino-erp/vecino-erp/internal/rbac"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

const dateLayout = "2006-01-02"
const defaultCurrency = "CRC"

// Handler wires HTTP endpoints for dashboard figures.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers report routes. Everything here is a read.
func (h *Handler) MountRoutes(r chi.Router) {
	read := h.rbac.Require(rbac.PermViewReports)
	r.With(read).Get("/monthly", h.monthly)
	r.With(read).Get("/overdue", h.overdue)
	r.With(read).Get("/aging", h.aging)
}

type monthlyView struct {
	Start          string `json:"start"`
	End            string `json:"end"`
	Income         string `json:"income"`
	Expense        string `json:"expense"`
	Net            string `json:"net"`
	IncomeDisplay  string `json:"income_display"`
	ExpenseDisplay string `json:"expense_display"`
	NetDisplay     string `json:"net_display"`
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	start, err := time.Parse(dateLayout, r.URL.Query().Get("start"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, r.URL.Query().Get("end"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end must be YYYY-MM-DD")
		return
	}
	totals, err := h.service.MonthlyTotals(r.Context(), rc, start, end)
	if err != nil {
		h.logger.Error("monthly totals", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	currency := currencyParam(r)
	httpx.JSON(w, http.StatusOK, monthlyView{
		Start:          totals.Start.Format(dateLayout),
		End:            totals.End.Format(dateLayout),
		Income:         totals.Income.String(),
		Expense:        totals.Expense.String(),
		Net:            totals.Net.String(),
		IncomeDisplay:  money.Display(totals.Income, currency),
		ExpenseDisplay: money.Display(totals.Expense, currency),
		NetDisplay:     money.Display(totals.Net, currency),
	})
}

type overdueView struct {
	Kind         string `json:"kind"`
	Total        string `json:"total"`
	TotalDisplay string `json:"total_display"`
}

func (h *Handler) overdue(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	kind := ledger.DocumentKind(r.URL.Query().Get("kind"))
	total, err := h.service.OverdueTotal(r.Context(), rc, kind)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overdueView{
		Kind:         string(kind),
		Total:        total.String(),
		TotalDisplay: money.Display(total, currencyParam(r)),
	})
}

type agingBucketView struct {
	Label          string `json:"label"`
	Balance        string `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
	Count          int    `json:"count"`
}

type agingView struct {
	Kind    string            `json:"kind"`
	AsOf    string            `json:"as_of"`
	Buckets []agingBucketView `json:"buckets"`
	Total   string            `json:"total"`
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	kind := ledger.DocumentKind(r.URL.Query().Get("kind"))
	var asOf time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		var err error
		asOf, err = time.Parse(dateLayout, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return
		}
	}
	report, err := h.service.Aging(r.Context(), rc, kind, asOf)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	currency := currencyParam(r)
	view := agingView{
		Kind:  string(report.Kind),
		AsOf:  report.AsOf.Format(dateLayout),
		Total: report.Total.String(),
	}
	for _, b := range report.Buckets {
		view.Buckets = append(view.Buckets, agingBucketView{
			Label:          b.Label,
			Balance:        b.Balance.String(),
			BalanceDisplay: money.Display(b.Balance, currency),
			Count:          b.Count,
		})
	}
	httpx.JSON(w, http.StatusOK, view)
}

func currencyParam(r *http.Request) string {
	if c := r.URL.Query().Get("currency"); c != "" {
		return c
	}
	return defaultCurrency
}
