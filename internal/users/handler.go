package users

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sweepdesk/sweepdesk/internal/platform/httpx"
	"github.com/sweepdesk/sweepdesk/internal/rbac"
	"github.com/sweepdesk/sweepdesk/internal/shared"
)

// Handler manages account endpoints.
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

// MountRoutes registers account routes. The authentication gate is applied by
// the router; routes here add their authorization policy.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequirePermissions(rbac.PermGetProfileSelf)).Get("/me", h.getProfile)
	r.With(h.guard.RequirePermissions(rbac.PermUpdateProfileSelf)).Patch("/me", h.updateProfile)
	r.With(h.guard.RequirePermissions(rbac.PermDeleteProfileSelf)).Delete("/me", h.deleteSelf)

	r.With(h.guard.RequirePermissions(rbac.PermGetAllAccounts)).Get("/", h.listAccounts)
	r.With(h.guard.RequirePermissions(rbac.PermDeleteAccount)).Delete("/{id}", h.deleteAccount)
	r.With(h.guard.RequireRoles(rbac.RoleAdmin, rbac.RoleSuperAdmin)).Patch("/{id}/active", h.setActive)

	r.With(h.guard.RequirePermissions(rbac.PermCreateOrgEmp)).Post("/staff", h.createStaff)
	r.With(
		h.guard.RequireRoles(rbac.RoleSuperAdmin),
		h.guard.RequirePermissions(rbac.PermCreateAdmin),
	).Post("/admins", h.createAdmin)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	user, err := h.service.Profile(r.Context(), id.UserID)
	if err != nil {
		h.respondErr(w, "load profile", err)
		return
	}
	httpx.OK(w, http.StatusOK, "", user)
}

type updateProfileRequest struct {
	Name  string `json:"name" validate:"required,min=2"`
	Phone string `json:"phone" validate:"omitempty,min=6"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	var req updateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusUnprocessableEntity, "Malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.FailWithDetail(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), id.UserID, req.Name, req.Phone)
	if err != nil {
		h.respondErr(w, "update profile", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Profile updated", user)
}

func (h *Handler) deleteSelf(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.DeleteAccount(r.Context(), id.UserID, id.UserID); err != nil {
		h.respondErr(w, "delete own account", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Account deleted", nil)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.respondErr(w, "list accounts", err)
		return
	}
	httpx.OK(w, http.StatusOK, "", users)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	targetID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusUnprocessableEntity, "Invalid account id")
		return
	}
	if err := h.service.DeleteAccount(r.Context(), id.UserID, targetID); err != nil {
		h.respondErr(w, "delete account", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Account deleted", nil)
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	targetID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusUnprocessableEntity, "Invalid account id")
		return
	}
	var req setActiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Active == nil {
		httpx.Fail(w, http.StatusUnprocessableEntity, "Malformed request body")
		return
	}
	if err := h.service.SetActive(r.Context(), id.UserID, targetID, *req.Active); err != nil {
		h.respondErr(w, "set active flag", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Account updated", nil)
}

type createAccountRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone" validate:"omitempty,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=org emp"`
}

func (h *Handler) createStaff(w http.ResponseWriter, r *http.Request) {
	h.createAccount(w, r, false)
}

func (h *Handler) createAdmin(w http.ResponseWriter, r *http.Request) {
	h.createAccount(w, r, true)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request, admin bool) {
	id, _ := shared.IdentityFromContext(r.Context())
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusUnprocessableEntity, "Malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.FailWithDetail(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	in := CreateStaffInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     req.Role,
	}

	var (
		user *User
		err  error
	)
	if admin {
		user, err = h.service.CreateAdmin(r.Context(), id.UserID, in)
	} else {
		if in.Role == "" {
			httpx.Fail(w, http.StatusUnprocessableEntity, "A staff role (org or emp) is required")
			return
		}
		user, err = h.service.CreateStaff(r.Context(), id.UserID, in)
	}
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			httpx.Fail(w, http.StatusConflict, "Email is already registered")
			return
		}
		h.respondErr(w, "create account", err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Account created", user)
}

func (h *Handler) respondErr(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, shared.ErrNotFound) || errors.Is(err, rbac.ErrNotFound) {
		httpx.Fail(w, http.StatusNotFound, "Account not found")
		return
	}
	h.logger.Error(msg, slog.Any("error", err))
	httpx.Fail(w, http.StatusInternalServerError, "Request failed")
}
