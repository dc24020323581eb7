// Package roles exposes the back-office role and permission catalog.
package roles

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/sweepdesk/sweepdesk/internal/platform/httpx"
	"github.com/sweepdesk/sweepdesk/internal/rbac"
)

// Handler manages role catalog endpoints.
type Handler struct {
	logger  *slog.Logger
	service *rbac.Service
	guard   rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *rbac.Service, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers role catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRoles(rbac.RoleAdmin, rbac.RoleSuperAdmin))
		r.Get("/", h.listRoles)
		r.Get("/{id}", h.getRole)
	})
}

// MountPermissionRoutes registers the permission catalog listing.
func (h *Handler) MountPermissionRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRoles(rbac.RoleAdmin, rbac.RoleSuperAdmin))
		r.Get("/", h.listPermissions)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Request failed")
		return
	}
	httpx.OK(w, http.StatusOK, "", roles)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusUnprocessableEntity, "Invalid role id")
		return
	}
	role, err := h.service.RoleWithPermissions(r.Context(), id)
	if err != nil {
		if errors.Is(err, rbac.ErrNotFound) {
			httpx.Fail(w, http.StatusNotFound, "Role not found")
			return
		}
		h.logger.Error("load role", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Request failed")
		return
	}
	httpx.OK(w, http.StatusOK, "", role)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Request failed")
		return
	}
	httpx.OK(w, http.StatusOK, "", perms)
}
