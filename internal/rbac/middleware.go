package rbac

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"log/slog"

	"github.com/sweepdesk/sweepdesk/internal/platform/httpx"
	"github.com/sweepdesk/sweepdesk/internal/shared"
	"github.com/sweepdesk/sweepdesk/internal/token"
)

// TokenCookie is the cookie the authentication gate reads before falling back
// to the Authorization header.
const TokenCookie = "token"

// AccessResolver resolves a principal's fresh role and permission view.
type AccessResolver interface {
	PrincipalAccess(ctx context.Context, userID int64) (*Access, error)
}

// RevocationChecker reports whether a presented token has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, raw string) (bool, error)
}

// BypassAuditor records super-role bypass events.
type BypassAuditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Middleware wires the authentication and authorization gates for HTTP
// handlers. The gates always run in order: Authenticate first, then one of
// the authorization policies.
type Middleware struct {
	Codec    *token.Codec
	Resolver AccessResolver
	Revoker  RevocationChecker
	Auditor  BypassAuditor
	Logger   *slog.Logger
}

// TokenFromRequest extracts the raw token, cookie taking precedence over the
// Authorization bearer header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Authenticate verifies the presented token and attaches the identity to the
// request context. No database access happens on this path; failures are
// always 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := TokenFromRequest(r)
		if raw == "" {
			httpx.Fail(w, http.StatusUnauthorized, "No token provided")
			return
		}
		claims, err := m.Codec.Verify(raw)
		if err != nil {
			httpx.Fail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if m.Revoker != nil {
			revoked, err := m.Revoker.IsRevoked(r.Context(), raw)
			if err != nil {
				m.logError("revocation check", err)
				httpx.Fail(w, http.StatusInternalServerError, "Authentication check failed")
				return
			}
			if revoked {
				httpx.Fail(w, http.StatusUnauthorized, "Token has been revoked")
				return
			}
		}
		userID, err := claims.SubjectID()
		if err != nil {
			httpx.Fail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		roleName := NormalizeRoleName(claims.Role.Name)
		if !ValidRoleName(roleName) {
			httpx.Fail(w, http.StatusUnauthorized, "Unknown role in token")
			return
		}
		ctx := shared.ContextWithIdentity(r.Context(), shared.Identity{UserID: userID, Role: roleName})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles allows the request only when the caller's role, as carried in
// the token snapshot, is in the allow-list. Stateless, no I/O; the empty list
// rejects everything. The super-role gets no special treatment here.
func (m Middleware) RequireRoles(names ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = NormalizeRoleName(n)
		if n != "" {
			allowed[n] = struct{}{}
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.Fail(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				httpx.Fail(w, http.StatusForbidden, fmt.Sprintf("Role %q is not allowed to access this resource", id.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermissions allows the request only when the caller's freshly
// resolved role carries every required code. This is the policy that performs
// I/O: the principal is reloaded through the user→role→permissions join so
// out-of-band permission edits take effect without re-login. Resolution
// failures are 500, never a silent allow or deny.
func (m Middleware) RequirePermissions(codes ...string) func(http.Handler) http.Handler {
	required := normalizePermissionCodes(codes)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.Fail(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			access, err := m.Resolver.PrincipalAccess(r.Context(), id.UserID)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					httpx.Fail(w, http.StatusForbidden, "Account or role no longer exists")
					return
				}
				m.logError("resolve principal access", err)
				httpx.Fail(w, http.StatusInternalServerError, "Permission check failed")
				return
			}
			if access.RoleName == SuperRole {
				// The single, deliberate privilege-escalation branch.
				m.auditBypass(r, access, required)
				next.ServeHTTP(w, r)
				return
			}
			missing := missingPermissions(access, required)
			if len(missing) > 0 {
				httpx.FailWithDetail(w, http.StatusForbidden,
					"Missing required permissions",
					strings.Join(missing, ", "))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) auditBypass(r *http.Request, access *Access, required []string) {
	if m.Auditor == nil {
		return
	}
	err := m.Auditor.Record(r.Context(), shared.AuditLog{
		ActorID:  access.UserID,
		Action:   "rbac.super_role_bypass",
		Entity:   "route",
		EntityID: r.Method + " " + r.URL.Path,
		Meta:     map[string]any{"required": required},
	})
	if err != nil && m.Logger != nil {
		m.Logger.Warn("audit super-role bypass", slog.Any("error", err))
	}
}

func (m Middleware) logError(msg string, err error) {
	if m.Logger != nil {
		m.Logger.Error(msg, slog.Any("error", err))
	}
}

func normalizePermissionCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	normalized := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		normalized = append(normalized, c)
	}
	return normalized
}

func missingPermissions(access *Access, required []string) []string {
	granted := make(map[string]struct{}, len(access.Permissions))
	for _, p := range access.Permissions {
		granted[strings.ToUpper(p)] = struct{}{}
	}
	var missing []string
	for _, code := range required {
		if _, ok := granted[code]; !ok {
			missing = append(missing, code)
		}
	}
	return missing
}
