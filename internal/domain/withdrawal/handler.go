package withdrawal

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/spotlyte/spotlyte-api/internal/domain/wallet"
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

// Create requests a withdrawal and runs it through the transfer flow. The
// response carries the final state: completed when the bank transfer went
// through, failed (with the hold refunded) when it did not.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateWithdrawalRequest
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

	input := RequestInput{
		Amount:        amount,
		AccountName:   req.AccountName,
		AccountNumber: req.AccountNumber,
		BankName:      req.BankName,
		BankCode:      req.BankCode,
	}
	if req.BankAccountID != nil {
		id, err := uuid.Parse(*req.BankAccountID)
		if err != nil {
			response.BadRequest(w, "invalid bank_account_id")
			return
		}
		input.BankAccountID = &id
	}

	wd, err := h.svc.Request(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, ErrTransferFailed) && wd != nil {
			response.ErrorWithData(w, http.StatusBadGateway, "TRANSFER_FAILED", "bank transfer failed, funds returned to wallet", wd)
			return
		}
		h.writeError(w, err)
		return
	}

	response.Created(w, wd)
}

// Get returns one of the caller's withdrawals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid withdrawal id")
		return
	}

	wd, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, wd)
}

// List returns a page of the caller's withdrawals, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, offset, page := pagination(r)
	withdrawals, total, err := h.svc.List(r.Context(), userID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	pages := (total + limit - 1) / limit
	response.WithMeta(w, withdrawals, response.Meta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	})
}

// CreateBankAccount saves a payout destination.
func (h *Handler) CreateBankAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateBankAccountRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	account, err := h.svc.AddBankAccount(r.Context(), userID, &BankAccount{
		AccountName:   req.AccountName,
		AccountNumber: req.AccountNumber,
		BankName:      req.BankName,
		BankCode:      req.BankCode,
		IsDefault:     req.IsDefault,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, account)
}

// ListBankAccounts returns the caller's saved payout destinations.
func (h *Handler) ListBankAccounts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	accounts, err := h.svc.ListBankAccounts(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, accounts)
}

// DeleteBankAccount removes one of the caller's saved destinations.
func (h *Handler) DeleteBankAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid bank account id")
		return
	}

	if err := h.svc.DeleteBankAccount(r.Context(), userID, id); err != nil {
		h.writeError(w, err)
		return
	}

	response.NoContent(w)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrWithdrawalNotFound):
		response.NotFound(w, "withdrawal not found")
	case errors.Is(err, ErrBankAccountNotFound):
		response.NotFound(w, "bank account not found")
	case errors.Is(err, ErrInvalidAmount):
		response.BadRequest(w, "amount must be greater than zero")
	case errors.Is(err, ErrAmountTooSmall):
		response.BadRequest(w, "amount does not cover the withdrawal fee")
	case errors.Is(err, ErrInvalidBankDetails):
		response.BadRequest(w, "provide either a saved bank account id or full bank details")
	case errors.Is(err, wallet.ErrInsufficientFunds):
		response.Conflict(w, "insufficient wallet balance")
	case errors.Is(err, wallet.ErrWalletNotFound):
		response.NotFound(w, "wallet not found")
	case errors.Is(err, ErrTransferFailed):
		response.Error(w, http.StatusBadGateway, "TRANSFER_FAILED", "bank transfer failed, funds returned to wallet")
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

// Routes returns the withdrawal routes behind the given middleware chain.
func (h *Handler) Routes(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	return r
}

// BankAccountRoutes returns the saved-destination routes.
func (h *Handler) BankAccountRoutes(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.Post("/", h.CreateBankAccount)
	r.Get("/", h.ListBankAccounts)
	r.Delete("/{id}", h.DeleteBankAccount)
	return r
}
