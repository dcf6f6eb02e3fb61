package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vecino-erp/vecino-erp/internal/accounting/accounts"
	"github.com/vecino-erp/vecino-erp/internal/accounting/journals"
	"github.com/vecino-erp/vecino-erp/internal/auth"
	"github.com/vecino-erp/vecino-erp/internal/budgets"
	"github.com/vecino-erp/vecino-erp/internal/ledger"
	"github.com/vecino-erp/vecino-erp/internal/observability"
	"github.com/vecino-erp/vecino-erp/internal/orgs"
	"github.com/vecino-erp/vecino-erp/internal/reports"
	"github.com/vecino-erp/vecino-erp/internal/shared"
	"github.com/vecino-erp/vecino-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	OrgMiddleware  orgs.Middleware

	AuthHandler     *auth.Handler
	OrgsHandler     *orgs.Handler
	AccountsHandler *accounts.Handler
	JournalsHandler *journals.Handler
	LedgerHandler   *ledger.Handler
	BudgetsHandler  *budgets.Handler
	ReportsHandler  *reports.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router. Everything below the org group runs
// with a resolved RequestContext; nothing in there executes without a
// validated membership.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/orgs", params.OrgsHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.OrgMiddleware.RequireOrg)

		r.Route("/orgs/members", params.OrgsHandler.MountMemberRoutes)
		r.Route("/accounts", params.AccountsHandler.MountRoutes)
		r.Route("/journal", params.JournalsHandler.MountRoutes)
		params.LedgerHandler.MountRoutes(r)
		r.Route("/budgets", params.BudgetsHandler.MountRoutes)
		r.Route("/reports", params.ReportsHandler.MountRoutes)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
