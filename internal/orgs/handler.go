package orgs

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

// Handler wires HTTP endpoints for organization selection and membership.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      rbacMW,
		validator: validator.New(),
	}
}

// MountRoutes registers routes that only need an authenticated session:
// listing, creating, and selecting an organization happen before a tenant
// is resolved.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listMine)
	r.Post("/", h.create)
	r.Post("/select", h.selectOrg)
}

// MountMemberRoutes registers org-scoped membership management, guarded by
// the tenant middleware and the manageUsers permission.
func (h *Handler) MountMemberRoutes(r chi.Router) {
	r.With(h.rbac.Require(rbac.PermManageUsers)).Get("/", h.listMembers)
	r.With(h.rbac.Require(rbac.PermManageUsers)).Put("/{userID}", h.assignRole)
	r.With(h.rbac.Require(rbac.PermManageUsers)).Delete("/{userID}", h.removeMember)
}

type orgView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type memberView struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

func (h *Handler) currentUser(r *http.Request) (uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(sess.User())
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(r)
	if !ok {
		shared.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	list, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list organizations", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	out := make([]orgView, 0, len(list))
	for _, o := range list {
		out = append(out, orgView{ID: o.ID, Name: o.Name, CreatedAt: o.CreatedAt})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createOrgRequest struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(r)
	if !ok {
		shared.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	var req createOrgRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	org, err := h.service.Create(r.Context(), req.Name, userID)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, orgView{ID: org.ID, Name: org.Name, CreatedAt: org.CreatedAt})
}

type selectOrgRequest struct {
	OrgID string `json:"org_id" validate:"required,uuid4"`
}

func (h *Handler) selectOrg(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(r)
	if !ok {
		shared.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	var req selectOrgRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	orgID, err := uuid.Parse(req.OrgID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "org_id must be a uuid")
		return
	}
	member, err := h.service.Select(r.Context(), orgID, userID)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	sess.SetOrg(orgID.String())
	httpx.JSON(w, http.StatusOK, map[string]string{
		"org_id": orgID.String(),
		"role":   string(member.Role),
	})
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	members, err := h.service.ListMembers(r.Context(), rc)
	if err != nil {
		h.logger.Error("list members", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	out := make([]memberView, 0, len(members))
	for _, m := range members {
		out = append(out, memberView{UserID: m.UserID, Email: m.Email, Role: string(m.Role)})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type assignRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "userID must be a uuid")
		return
	}
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	member, err := h.service.AssignRole(r.Context(), rc, userID, rbac.Role(req.Role))
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, memberView{UserID: member.UserID, Email: member.Email, Role: string(member.Role)})
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "userID must be a uuid")
		return
	}
	if err := h.service.RemoveMember(r.Context(), rc, userID); err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
