package journals

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/platform/httpx"
	"github.com/vecino-erp/vecino-erp/internal/rbac"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// Reverser posts a reversing entry for an existing one. Implemented by the
// ledger engine.
type Reverser interface {
	ReverseEntry(ctx context.Context, rc shared.RequestContext, entryID uuid.UUID, memo string) (JournalEntry, error)
}

// Handler wires HTTP endpoints for browsing the journal.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	reverser Reverser
	rbac     rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, reverser Reverser, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, reverser: reverser, rbac: rbacMW}
}

// MountRoutes registers journal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(rbac.PermViewReports)).Get("/", h.list)
	r.With(h.rbac.Require(rbac.PermViewReports)).Get("/{entryID}", h.get)
	r.With(h.rbac.Require(rbac.PermPostTransactions)).Post("/{entryID}/reverse", h.reverse)
}

type lineView struct {
	AccountID uuid.UUID `json:"account_id"`
	Debit     string    `json:"debit"`
	Credit    string    `json:"credit"`
}

type entryView struct {
	ID           uuid.UUID  `json:"id"`
	Number       int64      `json:"number"`
	Date         time.Time  `json:"date"`
	Memo         string     `json:"memo"`
	SourceModule string     `json:"source_module"`
	SourceID     uuid.UUID  `json:"source_id"`
	ReversesID   *uuid.UUID `json:"reverses_id,omitempty"`
	PostedAt     time.Time  `json:"posted_at"`
	Lines        []lineView `json:"lines,omitempty"`
}

func toEntryView(e JournalEntry) entryView {
	v := entryView{
		ID:           e.ID,
		Number:       e.Number,
		Date:         e.Date,
		Memo:         e.Memo,
		SourceModule: e.SourceModule,
		SourceID:     e.SourceID,
		ReversesID:   e.ReversesID,
		PostedAt:     e.PostedAt,
	}
	for _, l := range e.Lines {
		v.Lines = append(v.Lines, lineView{AccountID: l.AccountID, Debit: l.Debit.String(), Credit: l.Credit.String()})
	}
	return v
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	entries, err := h.service.List(r.Context(), rc, limit, offset)
	if err != nil {
		h.logger.Error("list journal", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryView(e))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "entryID must be a uuid")
		return
	}
	entry, err := h.service.Get(r.Context(), rc, id)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryView(entry))
}

type reverseRequest struct {
	Memo string `json:"memo"`
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "entryID must be a uuid")
		return
	}
	var req reverseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	entry, err := h.reverser.ReverseEntry(r.Context(), rc, id, req.Memo)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryView(entry))
}
