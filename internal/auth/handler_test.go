package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/sweepdesk/sweepdesk/internal/auth"
	"github.com/sweepdesk/sweepdesk/internal/rbac"
	"github.com/sweepdesk/sweepdesk/internal/token"
	_ "github.com/sweepdesk/sweepdesk/testing"
)

type stubAccess struct {
	access *rbac.Access
	err    error
}

func (s *stubAccess) PrincipalAccess(ctx context.Context, userID int64) (*rbac.Access, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.access, nil
}

func newAuthRouter(t *testing.T, repo auth.Repository, access rbac.AccessResolver) (chi.Router, *token.Codec, *token.Revoker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	codec, err := token.NewCodec("handler-secret", "sweepdesk", time.Hour)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	revoker := token.NewRevoker(client)

	service := auth.NewService(repo, &stubRoles{role: &rbac.Role{ID: 3, Name: rbac.RoleUser}})
	handler := auth.NewHandler(nil, service, access, codec, revoker, false)

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r, codec, revoker
}

func TestLoginIssuesSnapshotTokenAndCookie(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID: 7, Name: "Jo", Email: "jo@test.local",
		PasswordHash: hash(t, "correct horse"), IsActive: true,
	}}
	access := &stubAccess{access: &rbac.Access{
		UserID: 7, RoleName: "user",
		Permissions: []string{"CREATE_BOOKING", "GET_PROFILE_SELF"},
	}}
	router, codec, _ := newAuthRouter(t, repo, access)

	body := `{"email":"jo@test.local","password":"correct horse"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var env struct {
		Data struct {
			Token string `json:"token"`
			User  struct {
				Role string `json:"role"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if env.Data.User.Role != "user" {
		t.Fatalf("expected role user, got %q", env.Data.User.Role)
	}

	claims, err := codec.Verify(env.Data.Token)
	if err != nil {
		t.Fatalf("issued token must verify: %v", err)
	}
	if !claims.Role.IsSnapshot() {
		t.Fatal("login must embed a role snapshot")
	}
	if len(claims.Role.Permissions) != 2 {
		t.Fatalf("snapshot must carry the resolved codes, got %v", claims.Role.Permissions)
	}

	cookies := res.Result().Cookies()
	var tokenCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == rbac.TokenCookie {
			tokenCookie = c
		}
	}
	if tokenCookie == nil {
		t.Fatal("token cookie not set")
	}
	if !tokenCookie.HttpOnly {
		t.Fatal("token cookie must be HttpOnly")
	}
	if tokenCookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("non-production cookie must be Lax, got %v", tokenCookie.SameSite)
	}
}

func TestLoginBadPassword(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID: 7, Email: "jo@test.local", PasswordHash: hash(t, "correct horse"), IsActive: true,
	}}
	router, _, _ := newAuthRouter(t, repo, &stubAccess{})

	body := `{"email":"jo@test.local","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if strings.Contains(res.Body.String(), "hash") {
		t.Fatal("response must not leak hash details")
	}
}

func TestLoginUnknownEmailSameMessage(t *testing.T) {
	router, _, _ := newAuthRouter(t, &stubRepo{}, &stubAccess{})

	body := `{"email":"ghost@test.local","password":"whatever1"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Invalid email or password") {
		t.Fatalf("unknown account and bad password must be indistinguishable: %s", res.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	router, _, _ := newAuthRouter(t, &stubRepo{}, &stubAccess{})

	body := `{"name":"J","email":"not-an-email","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
}

func TestLogoutRevokesPresentedToken(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID: 7, Email: "jo@test.local", PasswordHash: hash(t, "correct horse"), IsActive: true,
	}}
	router, codec, revoker := newAuthRouter(t, repo, &stubAccess{})

	raw, err := codec.Issue(7, token.RoleName("user"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: rbac.TokenCookie, Value: raw})
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	revoked, err := revoker.IsRevoked(context.Background(), raw)
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatal("logout must revoke the presented token")
	}

	var cleared *http.Cookie
	for _, c := range res.Result().Cookies() {
		if c.Name == rbac.TokenCookie {
			cleared = c
		}
	}
	if cleared == nil || cleared.MaxAge != -1 {
		t.Fatalf("logout must clear the cookie, got %+v", cleared)
	}
}
