package bookings

import (
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sweepdesk/sweepdesk/internal/platform/httpx"
	"github.com/sweepdesk/sweepdesk/internal/rbac"
	"github.com/sweepdesk/sweepdesk/internal/shared"
)

// Handler manages booking endpoints.
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

// MountRoutes registers booking routes. Authentication is applied by the
// router; each route adds its authorization policy.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequirePermissions(rbac.PermCreateBooking)).Post("/", h.create)
	r.Get("/mine", h.mine)
	r.With(h.guard.RequirePermissions(rbac.PermGetAssignedBooking)).Get("/assigned", h.assigned)
	r.With(h.guard.RequirePermissions(rbac.PermUpdateBooking)).Patch("/{ref}", h.update)
	r.With(h.guard.RequirePermissions(rbac.PermUpdateAssign)).Patch("/{ref}/assign", h.assign)
	r.With(h.guard.RequirePermissions(rbac.PermUpdateBeforePhoto)).Patch("/{ref}/photos/before", h.beforePhoto)
	r.With(h.guard.RequirePermissions(rbac.PermUpdateAfterPhoto)).Patch("/{ref}/photos/after", h.afterPhoto)
}

type bookingRequest struct {
	ServiceType string    `json:"service_type" validate:"required,min=3"`
	Address     string    `json:"address" validate:"required,min=5"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Notes       string    `json:"notes"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	var req bookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusUnprocessableEntity, "Malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.FailWithDetail(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	booking, err := h.service.Create(r.Context(), id.UserID, CreateInput{
		ServiceType: req.ServiceType,
		Address:     req.Address,
		ScheduledAt: req.ScheduledAt,
		Notes:       req.Notes,
	})
	if err != nil {
		h.respondErr(w, "create booking", err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Booking created", booking)
}

func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	list, err := h.service.Mine(r.Context(), id.UserID)
	if err != nil {
		h.respondErr(w, "list own bookings", err)
		return
	}
	httpx.OK(w, http.StatusOK, "", list)
}

func (h *Handler) assigned(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	list, err := h.service.Assigned(r.Context(), id.UserID)
	if err != nil {
		h.respondErr(w, "list assigned bookings", err)
		return
	}
	httpx.OK(w, http.StatusOK, "", list)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	var req bookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusUnprocessableEntity, "Malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.FailWithDetail(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	booking, err := h.service.Update(r.Context(), id, chi.URLParam(r, "ref"), CreateInput{
		ServiceType: req.ServiceType,
		Address:     req.Address,
		ScheduledAt: req.ScheduledAt,
		Notes:       req.Notes,
	})
	if err != nil {
		h.respondErr(w, "update booking", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Booking updated", booking)
}

type assignRequest struct {
	EmployeeID int64 `json:"employee_id" validate:"required,gt=0"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusUnprocessableEntity, "Malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.FailWithDetail(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	booking, err := h.service.Assign(r.Context(), chi.URLParam(r, "ref"), req.EmployeeID)
	if err != nil {
		h.respondErr(w, "assign booking", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Booking assigned", booking)
}

type photoRequest struct {
	URL string `json:"url" validate:"required,url"`
}

func (h *Handler) beforePhoto(w http.ResponseWriter, r *http.Request) {
	h.attachPhoto(w, r, false)
}

func (h *Handler) afterPhoto(w http.ResponseWriter, r *http.Request) {
	h.attachPhoto(w, r, true)
}

func (h *Handler) attachPhoto(w http.ResponseWriter, r *http.Request, after bool) {
	id, _ := shared.IdentityFromContext(r.Context())
	var req photoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusUnprocessableEntity, "Malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.FailWithDetail(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	booking, err := h.service.AttachPhoto(r.Context(), id, chi.URLParam(r, "ref"), after, req.URL)
	if err != nil {
		h.respondErr(w, "attach photo", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Photo recorded", booking)
}

func (h *Handler) respondErr(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, rbac.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "Booking not found")
	case errors.Is(err, ErrNotOwner), errors.Is(err, ErrNotAssignee):
		httpx.Fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotEmployee):
		httpx.Fail(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(msg, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Request failed")
	}
}
