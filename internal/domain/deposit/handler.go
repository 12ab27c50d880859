package deposit

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

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

type createIntentRequest struct {
	Amount string `json:"amount" validate:"required,money"`
}

type intentResponse struct {
	Intent  *Intent `json:"intent"`
	Address string  `json:"address,omitempty"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req createIntentRequest
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

	intent, address, err := h.svc.CreateIntent(r.Context(), userID, amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "amount must be greater than zero")
		case errors.Is(err, wallet.ErrNotFound):
			response.NotFound(w, "no active wallet for this user")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, intentResponse{Intent: intent, Address: address})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	intentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid intent id")
		return
	}

	intent, err := h.svc.store.GetIntent(r.Context(), intentID)
	if err != nil {
		if errors.Is(err, ErrIntentNotFound) {
			response.NotFound(w, "deposit intent not found")
			return
		}
		response.InternalError(w)
		return
	}
	if intent.UserID != userID {
		response.NotFound(w, "deposit intent not found")
		return
	}

	response.OK(w, intentResponse{Intent: intent})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	intentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid intent id")
		return
	}

	// Ownership check before touching the chain.
	intent, err := h.svc.store.GetIntent(r.Context(), intentID)
	if err != nil {
		if errors.Is(err, ErrIntentNotFound) {
			response.NotFound(w, "deposit intent not found")
			return
		}
		response.InternalError(w)
		return
	}
	if intent.UserID != userID {
		response.NotFound(w, "deposit intent not found")
		return
	}

	verified, err := h.svc.VerifyIntent(r.Context(), intentID)
	if err != nil {
		if errors.Is(err, ErrProviderUnavailable) {
			response.BadGateway(w, "blockchain provider unavailable, try again later")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, intentResponse{Intent: verified})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/verify", h.Verify)
	return r
}
