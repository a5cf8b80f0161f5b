package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spotlyte/spotlyte-api/internal/middleware"
	"github.com/spotlyte/spotlyte-api/internal/pkg/money"
	"github.com/spotlyte/spotlyte-api/internal/pkg/response"
	"github.com/spotlyte/spotlyte-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Get returns the caller's wallet, creating it on first access.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	wallet, err := h.svc.GetOrCreate(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, wallet)
}

// InitDeposit starts a deposit: creates the pending transaction and returns
// the gateway authorization URL.
func (h *Handler) InitDeposit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req InitDepositRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		response.BadRequest(w, "invalid amount")
		return
	}

	intent, err := h.svc.InitDeposit(r.Context(), userID, amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, intent)
}

// VerifyDeposit confirms a gateway reference and returns the updated wallet.
func (h *Handler) VerifyDeposit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req VerifyDepositRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	var expected *decimal.Decimal
	if req.ExpectedAmount != "" {
		amount, err := money.Parse(req.ExpectedAmount)
		if err != nil {
			response.BadRequest(w, "invalid expected_amount")
			return
		}
		expected = &amount
	}

	wallet, err := h.svc.VerifyDeposit(r.Context(), userID, req.Reference, expected)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, wallet)
}

// Transactions lists the caller's transactions, newest first.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, offset, page := pagination(r)
	transactions, total, err := h.svc.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	pages := (total + limit - 1) / limit
	response.WithMeta(w, transactions, response.Meta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	})
}

// Ledger lists the caller's ledger entries in creation order.
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, offset, _ := pagination(r)
	entries, err := h.svc.ListLedger(r.Context(), userID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, entries)
}

// Reconcile replays the caller's ledger against the stored balances.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	report, err := h.svc.Reconcile(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, report)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		response.NotFound(w, "user not found")
	case errors.Is(err, ErrWalletNotFound):
		response.NotFound(w, "wallet not found")
	case errors.Is(err, ErrInvalidAmount):
		response.BadRequest(w, "amount must be greater than zero")
	case errors.Is(err, ErrInsufficientFunds):
		response.Conflict(w, "insufficient wallet balance")
	case errors.Is(err, ErrVerificationFailed):
		response.Error(w, http.StatusBadRequest, "VERIFICATION_FAILED", "payment could not be verified")
	case errors.Is(err, ErrAmountMismatch):
		response.Error(w, http.StatusBadRequest, "AMOUNT_MISMATCH", "verified amount does not match expected amount, contact support")
	case errors.Is(err, ErrRecordedAmountMismatch):
		response.Error(w, http.StatusBadRequest, "AMOUNT_MISMATCH", "verified amount does not match the recorded transaction, contact support")
	case errors.Is(err, ErrGateway):
		response.Error(w, http.StatusBadGateway, "GATEWAY_ERROR", "payment gateway unavailable, try again")
	default:
		response.InternalError(w)
	}
}

func pagination(r *http.Request) (limit, offset, page int) {
	limit = 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	page = 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	offset = (page - 1) * limit
	return limit, offset, page
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.Get)
	r.Post("/deposit/init", h.InitDeposit)
	r.Post("/deposit/verify", h.VerifyDeposit)
	r.Get("/transactions", h.Transactions)
	r.Get("/ledger", h.Ledger)
	r.Get("/reconcile", h.Reconcile)
	return r
}
