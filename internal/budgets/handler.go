package budgets

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/ledger"
	"github.com/vecino-erp/vecino-erp/internal/platform/httpx"
	"github.com/vecino-erp/vecino-erp/internal/platform/money"
	"github.com/vecino-erp/vecino-erp/internal/rbac"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// Handler wires HTTP endpoints for budget planning.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW, validator: validator.New()}
}

// MountRoutes registers budget routes. Reads need viewReports; planning
// needs manageCatalog.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(rbac.PermViewReports)).Get("/", h.list)
	r.With(h.rbac.Require(rbac.PermViewReports)).Get("/variance", h.variance)
	r.With(h.rbac.Require(rbac.PermManageCatalog)).Put("/", h.upsert)
	r.With(h.rbac.Require(rbac.PermManageCatalog)).Delete("/{lineID}", h.remove)
}

type lineView struct {
	ID        uuid.UUID `json:"id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Kind      string    `json:"kind"`
	AccountID uuid.UUID `json:"account_id"`
	Planned   string    `json:"planned"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toLineView(l BudgetLine) lineView {
	return lineView{
		ID:        l.ID,
		Year:      l.Year,
		Month:     int(l.Month),
		Kind:      string(l.Kind),
		AccountID: l.AccountID,
		Planned:   l.Planned.String(),
		UpdatedAt: l.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	year, month, ok := h.period(w, r)
	if !ok {
		return
	}
	lines, err := h.service.List(r.Context(), rc, year, month)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	out := make([]lineView, 0, len(lines))
	for _, l := range lines {
		out = append(out, toLineView(l))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type upsertRequest struct {
	Year      int    `json:"year" validate:"required"`
	Month     int    `json:"month" validate:"required,min=1,max=12"`
	Kind      string `json:"kind" validate:"required"`
	AccountID string `json:"account_id" validate:"required"`
	Planned   string `json:"planned" validate:"required"`
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	var req upsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "account_id must be a uuid")
		return
	}
	planned, err := money.Parse(req.Planned)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "planned: "+err.Error())
		return
	}
	line, err := h.service.Upsert(r.Context(), rc, UpsertInput{
		Year:      req.Year,
		Month:     time.Month(req.Month),
		Kind:      ledger.TransactionKind(req.Kind),
		AccountID: accountID,
		Planned:   planned,
	})
	if err != nil {
		h.logger.Error("upsert budget line", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toLineView(line))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "lineID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "lineID must be a uuid")
		return
	}
	if err := h.service.Delete(r.Context(), rc, id); err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

type varianceView struct {
	AccountID uuid.UUID `json:"account_id"`
	Kind      string    `json:"kind"`
	Planned   string    `json:"planned"`
	Executed  string    `json:"executed"`
	Variance  string    `json:"variance"`
}

func (h *Handler) variance(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	year, month, ok := h.period(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Variance(r.Context(), rc, year, month)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	out := make([]varianceView, 0, len(rows))
	for _, row := range rows {
		out = append(out, varianceView{
			AccountID: row.AccountID,
			Kind:      string(row.Kind),
			Planned:   row.Planned.String(),
			Executed:  row.Executed.String(),
			Variance:  row.Variance.String(),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) period(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year query parameter required")
		return 0, 0, false
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "month query parameter required")
		return 0, 0, false
	}
	return year, time.Month(month), true
}
