package token_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweepdesk/sweepdesk/internal/token"
	_ "github.com/sweepdesk/sweepdesk/testing"
)

func newCodec(t *testing.T) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec("test-secret", "sweepdesk", time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec
}

func TestNewCodecRejectsEmptySecret(t *testing.T) {
	if _, err := token.NewCodec("", "sweepdesk", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestRoundTripBareRoleName(t *testing.T) {
	codec := newCodec(t)

	raw, err := codec.Issue(42, token.RoleName("admin"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := codec.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	id, err := claims.SubjectID()
	if err != nil {
		t.Fatalf("subject id: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected subject 42, got %d", id)
	}
	if claims.Role.Name != "admin" {
		t.Fatalf("expected role admin, got %q", claims.Role.Name)
	}
	if claims.Role.IsSnapshot() {
		t.Fatal("bare name must not round-trip as a snapshot")
	}
}

func TestRoundTripRoleSnapshot(t *testing.T) {
	codec := newCodec(t)

	perms := []string{"CREATE_BOOKING", "UPDATE_BOOKING"}
	raw, err := codec.Issue(7, token.RoleSnapshot("user", perms))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := codec.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if claims.Role.Name != "user" {
		t.Fatalf("expected role user, got %q", claims.Role.Name)
	}
	if !claims.Role.IsSnapshot() {
		t.Fatal("expected snapshot claim")
	}
	if len(claims.Role.Permissions) != 2 {
		t.Fatalf("expected 2 permissions, got %v", claims.Role.Permissions)
	}
}

func TestRoundTripEmptySnapshotPermissions(t *testing.T) {
	codec := newCodec(t)

	// A super-admin style snapshot: named role, no explicit permissions.
	raw, err := codec.Issue(1, token.RoleSnapshot("super-admin", nil))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := codec.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Role.Name != "super-admin" {
		t.Fatalf("expected super-admin, got %q", claims.Role.Name)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	codec := newCodec(t)

	raw, err := codec.IssueWithTTL(42, token.RoleName("user"), -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := codec.Verify(raw); !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	codec := newCodec(t)
	other, err := token.NewCodec("other-secret", "sweepdesk", time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	raw, err := codec.Issue(42, token.RoleName("user"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Verify(raw); !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	codec := newCodec(t)
	if _, err := codec.Verify("not.a.token"); !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestIssueRejectsEmptyRoleName(t *testing.T) {
	codec := newCodec(t)
	if _, err := codec.Issue(42, token.RoleClaim{}); !errors.Is(err, token.ErrBadRoleClaim) {
		t.Fatalf("expected ErrBadRoleClaim, got %v", err)
	}
}

func TestRoleClaimDecodeFailsClosed(t *testing.T) {
	cases := map[string]string{
		"number":        `5`,
		"array":         `["admin"]`,
		"empty string":  `""`,
		"nameless":      `{"permissions":["X"]}`,
		"empty object":  `{}`,
		"null":          `null`,
		"boolean claim": `true`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			var claim token.RoleClaim
			if err := json.Unmarshal([]byte(payload), &claim); !errors.Is(err, token.ErrBadRoleClaim) {
				t.Fatalf("expected ErrBadRoleClaim for %s, got %v", payload, err)
			}
		})
	}
}

func TestRoleClaimWireShapes(t *testing.T) {
	bare, err := json.Marshal(token.RoleName("emp"))
	if err != nil {
		t.Fatalf("marshal bare: %v", err)
	}
	if string(bare) != `"emp"` {
		t.Fatalf("bare claim must encode as a string, got %s", bare)
	}

	snap, err := json.Marshal(token.RoleSnapshot("emp", []string{"GET_ASSIGNED_BOOKING"}))
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(snap, &obj); err != nil {
		t.Fatalf("snapshot must encode as an object, got %s", snap)
	}
	if obj["name"] != "emp" {
		t.Fatalf("expected name emp in %s", snap)
	}
}
