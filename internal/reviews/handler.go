package reviews

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sweepdesk/sweepdesk/internal/platform/httpx"
	"github.com/sweepdesk/sweepdesk/internal/rbac"
	"github.com/sweepdesk/sweepdesk/internal/shared"
)

// Handler manages review endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers review routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.With(h.guard.RequirePermissions(rbac.PermViewAllReviews)).Get("/", h.list)
}

type createRequest struct {
	BookingRef string `json:"booking_ref" validate:"required,uuid4"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Comment    string `json:"comment" validate:"max=2000"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusUnprocessableEntity, "Malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.FailWithDetail(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	review, err := h.service.Create(r.Context(), id.UserID, CreateInput{
		BookingRef: req.BookingRef,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			httpx.Fail(w, http.StatusNotFound, "Booking not found")
		case errors.Is(err, ErrNotReviewable):
			httpx.Fail(w, http.StatusForbidden, err.Error())
		case errors.Is(err, ErrAlreadyReviewed):
			httpx.Fail(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("create review", slog.Any("error", err))
			httpx.Fail(w, http.StatusInternalServerError, "Request failed")
		}
		return
	}
	httpx.OK(w, http.StatusCreated, "Review recorded", review)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list reviews", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Request failed")
		return
	}
	httpx.OK(w, http.StatusOK, "", reviews)
}
