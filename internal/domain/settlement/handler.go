package settlement

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tokenbay/tokenbay-api/internal/domain/ledger"
	"github.com/tokenbay/tokenbay-api/internal/domain/wallet"
	"github.com/tokenbay/tokenbay-api/internal/middleware"
	"github.com/tokenbay/tokenbay-api/internal/pkg/response"
	"github.com/tokenbay/tokenbay-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type requestWithdrawalRequest struct {
	Amount  string            `json:"amount" validate:"required,money"`
	Method  string            `json:"method" validate:"required,withdraw_method"`
	Details map[string]string `json:"details"`
}

type rejectWithdrawalRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req requestWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationFailed(w, details)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.BadRequest(w, "invalid amount")
		return
	}

	withdrawalDetails := make(map[string]any, len(req.Details))
	for k, v := range req.Details {
		withdrawalDetails[k] = v
	}

	entry, err := h.svc.RequestWithdrawal(r.Context(), userID, amount, req.Method, withdrawalDetails)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "amount must be greater than zero")
		case errors.Is(err, ErrAmountOutOfBounds):
			response.UnprocessableEntity(w, "amount outside withdrawal limits")
		case errors.Is(err, ErrInsufficientBalance):
			response.UnprocessableEntity(w, "insufficient wallet balance")
		case errors.Is(err, wallet.ErrNotFound):
			response.NotFound(w, "no active wallet for this user")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, entry)
}

func (h *Handler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid withdrawal id")
		return
	}

	entry, err := h.svc.ApproveWithdrawal(r.Context(), entryID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrEntryNotFound):
			response.NotFound(w, "withdrawal not found")
		case errors.Is(err, ErrNotWithdrawal):
			response.Conflict(w, "entry is not a withdrawal")
		case errors.Is(err, ledger.ErrNotPending):
			response.Conflict(w, "withdrawal already decided")
		case errors.Is(err, ErrInsufficientBalance):
			response.UnprocessableEntity(w, "insufficient wallet balance")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, entry)
}

func (h *Handler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid withdrawal id")
		return
	}

	var req rejectWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationFailed(w, details)
		return
	}

	entry, err := h.svc.RejectWithdrawal(r.Context(), entryID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrEntryNotFound):
			response.NotFound(w, "withdrawal not found")
		case errors.Is(err, ErrNotWithdrawal):
			response.Conflict(w, "entry is not a withdrawal")
		case errors.Is(err, ledger.ErrNotPending):
			response.Conflict(w, "withdrawal already decided")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, entry)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.RequestWithdrawal)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin())
		r.Post("/{id}/approve", h.ApproveWithdrawal)
		r.Post("/{id}/reject", h.RejectWithdrawal)
	})
	return r
}
