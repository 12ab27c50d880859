package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tokenbay/tokenbay-api/internal/domain/settlement"
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

type checkoutItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type checkoutRequest struct {
	Items []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) CheckoutWithWallet(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationFailed(w, details)
		return
	}

	items := make([]CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			response.BadRequest(w, "invalid product id")
			return
		}
		items = append(items, CheckoutItem{ProductID: productID, Quantity: item.Quantity})
	}

	o, err := h.svc.CheckoutWithWallet(r.Context(), userID, items)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyOrder), errors.Is(err, ErrInvalidQuantity):
			response.BadRequest(w, "invalid order items")
		case errors.Is(err, ErrProductNotFound):
			response.NotFound(w, "one or more products not found")
		case errors.Is(err, wallet.ErrNotFound):
			response.NotFound(w, "no active wallet for this user")
		case errors.Is(err, settlement.ErrInsufficientBalance):
			response.UnprocessableEntity(w, "insufficient wallet balance")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, o)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	o, err := h.svc.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "order not found")
			return
		}
		response.InternalError(w)
		return
	}
	if o.UserID != userID {
		response.NotFound(w, "order not found")
		return
	}

	response.OK(w, o)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/wallet", h.CheckoutWithWallet)
	r.Get("/{id}", h.Get)
	return r
}
