package wallet

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tokenbay/tokenbay-api/internal/middleware"
	"github.com/tokenbay/tokenbay-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	pub, err := h.svc.Create(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			response.Conflict(w, "wallet already exists for this user")
			return
		}
		response.InternalError(w)
		return
	}

	response.Created(w, pub)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	pub, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "wallet not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, pub)
}

// RevealKey is admin-only: used when a user needs to import the custodial
// wallet into an external signer.
func (h *Handler) RevealKey(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	key, err := h.svc.RevealKey(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "wallet not found")
		case errors.Is(err, ErrKeyCorrupted):
			// Fatal storage problem; no detail leaks to the client.
			response.InternalError(w)
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]string{"private_key": key})
}
