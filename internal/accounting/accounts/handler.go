package accounts

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/platform/httpx"
	"github.com/vecino-erp/vecino-erp/internal/rbac"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// Handler wires HTTP endpoints for the chart of accounts.
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

// MountRoutes registers catalog routes. Reads need viewReports; writes need
// manageCatalog.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(rbac.PermViewReports)).Get("/", h.list)
	r.With(h.rbac.Require(rbac.PermManageCatalog)).Post("/", h.create)
	r.With(h.rbac.Require(rbac.PermManageCatalog)).Put("/{accountID}", h.update)
	r.With(h.rbac.Require(rbac.PermManageCatalog)).Post("/{accountID}/deactivate", h.deactivate)
	r.With(h.rbac.Require(rbac.PermManageCatalog)).Post("/{accountID}/reactivate", h.reactivate)
}

type accountView struct {
	ID        uuid.UUID  `json:"id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

func toView(a Account) accountView {
	return accountView{
		ID:        a.ID,
		Code:      a.Code,
		Name:      a.Name,
		Type:      string(a.Type),
		ParentID:  a.ParentID,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	list, err := h.service.List(r.Context(), rc, includeInactive)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	out := make([]accountView, 0, len(list))
	for _, a := range list {
		out = append(out, toView(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createAccountRequest struct {
	Code     string  `json:"code" validate:"required,max=20"`
	Name     string  `json:"name" validate:"required,max=120"`
	Type     string  `json:"type" validate:"required"`
	ParentID *string `json:"parent_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	parentID, err := parseOptionalUUID(req.ParentID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "parent_id must be a uuid")
		return
	}
	created, err := h.service.Create(r.Context(), rc, CreateInput{
		Code:     req.Code,
		Name:     req.Name,
		Type:     AccountType(req.Type),
		ParentID: parentID,
	})
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toView(created))
}

type updateAccountRequest struct {
	Name     string  `json:"name" validate:"required,max=120"`
	ParentID *string `json:"parent_id"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "accountID must be a uuid")
		return
	}
	var req updateAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	parentID, err := parseOptionalUUID(req.ParentID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "parent_id must be a uuid")
		return
	}
	updated, err := h.service.Update(r.Context(), rc, UpdateInput{ID: id, Name: req.Name, ParentID: parentID})
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(updated))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "accountID must be a uuid")
		return
	}
	if active {
		err = h.service.Reactivate(r.Context(), rc, id)
	} else {
		err = h.service.Deactivate(r.Context(), rc, id)
	}
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
