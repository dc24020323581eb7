package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/sweepdesk/sweepdesk/internal/platform/httpx"
	"github.com/sweepdesk/sweepdesk/internal/rbac"
	"github.com/sweepdesk/sweepdesk/internal/shared"
	"github.com/sweepdesk/sweepdesk/internal/token"
)

// TokenRevoker invalidates tokens at logout.
type TokenRevoker interface {
	Revoke(ctx context.Context, raw string, until time.Time) error
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	access     rbac.AccessResolver
	codec      *token.Codec
	revoker    TokenRevoker
	validator  *validator.Validate
	production bool
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, access rbac.AccessResolver, codec *token.Codec, revoker TokenRevoker, production bool) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		access:     access,
		codec:      codec,
		revoker:    revoker,
		validator:  validator.New(),
		production: production,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.With(httprate.LimitByIP(10, time.Minute)).Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone" validate:"omitempty,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userPayload struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusUnprocessableEntity, "Malformed request body")
		return
	}
	if detail, ok := h.validate(req); !ok {
		httpx.FailWithDetail(w, http.StatusUnprocessableEntity, "Validation failed", detail)
		return
	}
	user, err := h.service.Register(r.Context(), RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httpx.Fail(w, http.StatusConflict, "Email is already registered")
			return
		}
		h.logger.Error("register account", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	httpx.OK(w, http.StatusCreated, "Account created", userPayload{
		ID: user.ID, Name: user.Name, Email: user.Email, Role: user.RoleName,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusUnprocessableEntity, "Malformed request body")
		return
	}
	if detail, ok := h.validate(req); !ok {
		httpx.FailWithDetail(w, http.StatusUnprocessableEntity, "Validation failed", detail)
		return
	}
	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Fail(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Login failed")
		return
	}

	// The issued token denormalizes the role and its permission codes as of
	// this login; role-set checks read this snapshot, permission checks
	// re-resolve from the database.
	access, err := h.access.PrincipalAccess(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("resolve access at login", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Login failed")
		return
	}
	signed, err := h.codec.Issue(user.ID, token.RoleSnapshot(access.RoleName, access.Permissions))
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Login failed")
		return
	}

	http.SetCookie(w, h.tokenCookie(signed, h.codec.TTL()))
	httpx.OK(w, http.StatusOK, "Logged in", map[string]any{
		"token": signed,
		"user": userPayload{
			ID: user.ID, Name: user.Name, Email: user.Email, Role: access.RoleName,
		},
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if raw := rbac.TokenFromRequest(r); raw != "" && h.revoker != nil {
		if claims, err := h.codec.Verify(raw); err == nil && claims.ExpiresAt != nil {
			if err := h.revoker.Revoke(r.Context(), raw, claims.ExpiresAt.Time); err != nil {
				h.logger.Warn("revoke token", slog.Any("error", err))
			}
		}
	}
	expired := h.tokenCookie("", 0)
	expired.MaxAge = -1
	http.SetCookie(w, expired)
	httpx.OK(w, http.StatusOK, "Logged out", nil)
}

// tokenCookie applies the transport contract: HttpOnly always; Secure with
// SameSite=None in production so the separately hosted front end can send it,
// Lax otherwise.
func (h *Handler) tokenCookie(value string, ttl time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     rbac.TokenCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
	}
	if h.production {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	} else {
		cookie.SameSite = http.SameSiteLaxMode
	}
	return cookie
}

func (h *Handler) validate(payload any) (string, bool) {
	err := h.validator.Struct(payload)
	if err == nil {
		return "", true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Error(), false
	}
	return "invalid payload", false
}
