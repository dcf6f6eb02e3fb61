package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/platform/httpx"
	"github.com/vecino-erp/vecino-erp/internal/platform/money"
	"github.com/vecino-erp/vecino-erp/internal/rbac"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

const dateLayout = "2006-01-02"

// IdempotencyHeader carries the client-supplied operation key that guards
// against double-posting on retries.
const IdempotencyHeader = "Idempotency-Key"

// Handler wires HTTP endpoints for the posting engine.
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

// MountRoutes registers income, expense, AR, AP, and defaults routes.
// Reads need viewReports, postings need postTransactions, defaults need
// manageCatalog.
func (h *Handler) MountRoutes(r chi.Router) {
	read := h.rbac.Require(rbac.PermViewReports)
	post := h.rbac.Require(rbac.PermPostTransactions)
	catalog := h.rbac.Require(rbac.PermManageCatalog)

	r.Route("/income", func(r chi.Router) {
		r.With(read).Get("/", h.listTransactions(TxIncome))
		r.With(post).Post("/", h.postTransaction(TxIncome))
	})
	r.Route("/expenses", func(r chi.Router) {
		r.With(read).Get("/", h.listTransactions(TxExpense))
		r.With(post).Post("/", h.postTransaction(TxExpense))
	})
	r.Route("/ar", func(r chi.Router) {
		h.mountDocumentRoutes(r, KindInvoice, read, post)
	})
	r.Route("/ap", func(r chi.Router) {
		h.mountDocumentRoutes(r, KindBill, read, post)
	})
	r.Route("/defaults", func(r chi.Router) {
		r.With(read).Get("/", h.getDefaults)
		r.With(catalog).Put("/", h.setDefaults)
	})
}

func (h *Handler) mountDocumentRoutes(r chi.Router, kind DocumentKind, read, post func(http.Handler) http.Handler) {
	r.With(read).Get("/", h.listDocuments(kind))
	r.With(post).Post("/", h.postDocument(kind))
	r.With(read).Get("/{documentID}", h.getDocument)
	r.With(read).Get("/{documentID}/payments", h.listPayments)
	r.With(post).Post("/{documentID}/payments", h.postPayment)
	r.With(post).Post("/{documentID}/void", h.voidDocument)
}

type transactionView struct {
	ID                uuid.UUID `json:"id"`
	Date              string    `json:"date"`
	Description       string    `json:"description"`
	Amount            string    `json:"amount"`
	CategoryAccountID uuid.UUID `json:"category_account_id"`
	CashAccountID     uuid.UUID `json:"cash_account_id"`
	EntryID           uuid.UUID `json:"journal_entry_id"`
	CreatedAt         time.Time `json:"created_at"`
}

func toTransactionView(t Transaction) transactionView {
	return transactionView{
		ID:                t.ID,
		Date:              t.Date.Format(dateLayout),
		Description:       t.Description,
		Amount:            t.Amount.String(),
		CategoryAccountID: t.CategoryAccountID,
		CashAccountID:     t.CashAccountID,
		EntryID:           t.EntryID,
		CreatedAt:         t.CreatedAt,
	}
}

type documentView struct {
	ID               uuid.UUID `json:"id"`
	Kind             string    `json:"kind"`
	Number           int64     `json:"number"`
	Counterparty     string    `json:"counterparty"`
	IssueDate        string    `json:"issue_date"`
	DueDate          string    `json:"due_date"`
	Subtotal         string    `json:"subtotal"`
	Tax              string    `json:"tax"`
	Discount         string    `json:"discount"`
	Total            string    `json:"total"`
	Status           string    `json:"status"`
	CounterAccountID uuid.UUID `json:"counter_account_id"`
	EntryID          uuid.UUID `json:"journal_entry_id"`
	CreatedAt        time.Time `json:"created_at"`
}

func toDocumentView(d Document) documentView {
	return documentView{
		ID:               d.ID,
		Kind:             string(d.Kind),
		Number:           d.Number,
		Counterparty:     d.Counterparty,
		IssueDate:        d.IssueDate.Format(dateLayout),
		DueDate:          d.DueDate.Format(dateLayout),
		Subtotal:         d.Subtotal.String(),
		Tax:              d.Tax.String(),
		Discount:         d.Discount.String(),
		Total:            d.Total.String(),
		Status:           string(d.Status),
		CounterAccountID: d.CounterAccountID,
		EntryID:          d.EntryID,
		CreatedAt:        d.CreatedAt,
	}
}

type paymentView struct {
	ID            uuid.UUID `json:"id"`
	DocumentID    uuid.UUID `json:"document_id"`
	Date          string    `json:"date"`
	Amount        string    `json:"amount"`
	Method        string    `json:"method"`
	CashAccountID uuid.UUID `json:"cash_account_id"`
	EntryID       uuid.UUID `json:"journal_entry_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func toPaymentView(p Payment) paymentView {
	return paymentView{
		ID:            p.ID,
		DocumentID:    p.DocumentID,
		Date:          p.Date.Format(dateLayout),
		Amount:        p.Amount.String(),
		Method:        p.Method,
		CashAccountID: p.CashAccountID,
		EntryID:       p.EntryID,
		CreatedAt:     p.CreatedAt,
	}
}

type postTransactionRequest struct {
	Date              string `json:"date" validate:"required"`
	Description       string `json:"description" validate:"required,max=255"`
	Amount            string `json:"amount" validate:"required"`
	CategoryAccountID string `json:"category_account_id"`
	CashAccountID     string `json:"cash_account_id"`
}

func (h *Handler) postTransaction(kind TransactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, _ := shared.RequestContextFromContext(r.Context())
		var req postTransactionRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		amount, err := money.Parse(req.Amount)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount: "+err.Error())
			return
		}
		category, err := parseUUIDOrNil(req.CategoryAccountID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "category_account_id must be a uuid")
			return
		}
		cash, err := parseUUIDOrNil(req.CashAccountID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cash_account_id must be a uuid")
			return
		}

		in := TransactionInput{
			Date:              date,
			Description:       req.Description,
			Amount:            amount,
			CategoryAccountID: category,
			CashAccountID:     cash,
			IdempotencyKey:    r.Header.Get(IdempotencyHeader),
		}
		var posted Transaction
		if kind == TxIncome {
			posted, err = h.service.PostIncome(r.Context(), rc, in)
		} else {
			posted, err = h.service.PostExpense(r.Context(), rc, in)
		}
		if err != nil {
			h.logger.Error("post transaction", slog.String("kind", string(kind)), slog.Any("error", err))
			shared.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, toTransactionView(posted))
	}
}

func (h *Handler) listTransactions(kind TransactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, _ := shared.RequestContextFromContext(r.Context())
		limit, offset := pagination(r)
		list, err := h.service.ListTransactions(r.Context(), rc, kind, limit, offset)
		if err != nil {
			shared.RespondError(w, err)
			return
		}
		out := make([]transactionView, 0, len(list))
		for _, t := range list {
			out = append(out, toTransactionView(t))
		}
		httpx.JSON(w, http.StatusOK, out)
	}
}

type postDocumentRequest struct {
	Counterparty      string `json:"counterparty" validate:"required,max=255"`
	IssueDate         string `json:"issue_date" validate:"required"`
	DueDate           string `json:"due_date" validate:"required"`
	Subtotal          string `json:"subtotal" validate:"required"`
	Tax               string `json:"tax"`
	Discount          string `json:"discount"`
	CounterAccountID  string `json:"counter_account_id"`
	CategoryAccountID string `json:"category_account_id"`
}

func (h *Handler) postDocument(kind DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, _ := shared.RequestContextFromContext(r.Context())
		var req postDocumentRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		issueDate, err := time.Parse(dateLayout, req.IssueDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "issue_date must be YYYY-MM-DD")
			return
		}
		dueDate, err := time.Parse(dateLayout, req.DueDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "due_date must be YYYY-MM-DD")
			return
		}
		subtotal, err := money.Parse(req.Subtotal)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "subtotal: "+err.Error())
			return
		}
		tax, err := parseMoneyOrZero(req.Tax)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tax: "+err.Error())
			return
		}
		discount, err := parseMoneyOrZero(req.Discount)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "discount: "+err.Error())
			return
		}
		counter, err := parseUUIDOrNil(req.CounterAccountID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "counter_account_id must be a uuid")
			return
		}
		category, err := parseUUIDOrNil(req.CategoryAccountID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "category_account_id must be a uuid")
			return
		}

		in := DocumentInput{
			Counterparty:      req.Counterparty,
			IssueDate:         issueDate,
			DueDate:           dueDate,
			Subtotal:          subtotal,
			Tax:               tax,
			Discount:          discount,
			CounterAccountID:  counter,
			CategoryAccountID: category,
			IdempotencyKey:    r.Header.Get(IdempotencyHeader),
		}
		var doc Document
		if kind == KindInvoice {
			doc, err = h.service.PostInvoice(r.Context(), rc, in)
		} else {
			doc, err = h.service.PostBill(r.Context(), rc, in)
		}
		if err != nil {
			h.logger.Error("post document", slog.String("kind", string(kind)), slog.Any("error", err))
			shared.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, toDocumentView(doc))
	}
}

func (h *Handler) listDocuments(kind DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, _ := shared.RequestContextFromContext(r.Context())
		limit, offset := pagination(r)
		list, err := h.service.ListDocuments(r.Context(), rc, kind, limit, offset)
		if err != nil {
			shared.RespondError(w, err)
			return
		}
		out := make([]documentView, 0, len(list))
		for _, d := range list {
			out = append(out, toDocumentView(d))
		}
		httpx.JSON(w, http.StatusOK, out)
	}
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.GetDocument(r.Context(), rc, id)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentView(doc))
}

type postPaymentRequest struct {
	Date          string `json:"date" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	Method        string `json:"method" validate:"max=40"`
	CashAccountID string `json:"cash_account_id"`
}

func (h *Handler) postPayment(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	var req postPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount: "+err.Error())
		return
	}
	cash, err := parseUUIDOrNil(req.CashAccountID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cash_account_id must be a uuid")
		return
	}

	payment, err := h.service.PostPayment(r.Context(), rc, PaymentInput{
		DocumentID:     docID,
		Date:           date,
		Amount:         amount,
		Method:         req.Method,
		CashAccountID:  cash,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.logger.Error("post payment", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPaymentView(payment))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListPayments(r.Context(), rc, docID)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	out := make([]paymentView, 0, len(list))
	for _, p := range list {
		out = append(out, toPaymentView(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) voidDocument(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.VoidDocument(r.Context(), rc, docID)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentView(doc))
}

type defaultsView struct {
	CashAccountID    string `json:"cash_account_id,omitempty"`
	IncomeAccountID  string `json:"income_account_id,omitempty"`
	ExpenseAccountID string `json:"expense_account_id,omitempty"`
	ARAccountID      string `json:"ar_account_id,omitempty"`
	APAccountID      string `json:"ap_account_id,omitempty"`
	TaxAccountID     string `json:"tax_account_id,omitempty"`
}

func (h *Handler) getDefaults(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	d, err := h.service.Defaults(r.Context(), rc)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, defaultsView{
		CashAccountID:    uuidOrEmpty(d.CashAccountID),
		IncomeAccountID:  uuidOrEmpty(d.IncomeAccountID),
		ExpenseAccountID: uuidOrEmpty(d.ExpenseAccountID),
		ARAccountID:      uuidOrEmpty(d.ARAccountID),
		APAccountID:      uuidOrEmpty(d.APAccountID),
		TaxAccountID:     uuidOrEmpty(d.TaxAccountID),
	})
}

func (h *Handler) setDefaults(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	var req defaultsView
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	var d AccountDefaults
	for _, f := range []struct {
		raw  string
		dest *uuid.UUID
		name string
	}{
		{req.CashAccountID, &d.CashAccountID, "cash_account_id"},
		{req.IncomeAccountID, &d.IncomeAccountID, "income_account_id"},
		{req.ExpenseAccountID, &d.ExpenseAccountID, "expense_account_id"},
		{req.ARAccountID, &d.ARAccountID, "ar_account_id"},
		{req.APAccountID, &d.APAccountID, "ap_account_id"},
		{req.TaxAccountID, &d.TaxAccountID, "tax_account_id"},
	} {
		id, err := parseUUIDOrNil(f.raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", f.name+" must be a uuid")
			return
		}
		*f.dest = id
	}
	if err := h.service.SetDefaults(r.Context(), rc, d); err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) documentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "documentID must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

func pagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func parseUUIDOrNil(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func parseMoneyOrZero(s string) (money.Cents, error) {
	if s == "" {
		return 0, nil
	}
	return money.Parse(s)
}

func uuidOrEmpty(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
