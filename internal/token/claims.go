package token

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// ErrBadRoleClaim indicates a role claim that is neither a role-name string
// nor an object carrying a non-empty name. Such claims are rejected outright
// instead of being coerced into an unpredictable role string.
var ErrBadRoleClaim = errors.New("token: malformed role claim")

// RoleClaim is the role carried inside a token. It is a tagged variant: either
// a bare role name, or a snapshot of the role taken at issuance time with its
// permission codes denormalized in. Snapshots reflect the role as of login and
// go stale if permissions are edited afterwards; fresh checks must re-resolve.
type RoleClaim struct {
	Name        string
	Permissions []string

	snapshot bool
}

// RoleName builds a bare-name claim.
func RoleName(name string) RoleClaim {
	return RoleClaim{Name: name}
}

// RoleSnapshot builds a denormalized role snapshot claim.
func RoleSnapshot(name string, permissions []string) RoleClaim {
	return RoleClaim{Name: name, Permissions: permissions, snapshot: true}
}

// IsSnapshot reports whether the claim embeds a permission snapshot.
func (c RoleClaim) IsSnapshot() bool {
	return c.snapshot
}

type roleObject struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions,omitempty"`
}

// MarshalJSON encodes a bare name as a JSON string and a snapshot as an
// object, matching the wire contract consumed by existing clients.
func (c RoleClaim) MarshalJSON() ([]byte, error) {
	if c.Name == "" {
		return nil, ErrBadRoleClaim
	}
	if !c.snapshot {
		return json.Marshal(c.Name)
	}
	return json.Marshal(roleObject{Name: c.Name, Permissions: c.Permissions})
}

// UnmarshalJSON accepts exactly the two supported shapes and fails closed on
// anything else.
func (c *RoleClaim) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if name == "" {
			return ErrBadRoleClaim
		}
		*c = RoleClaim{Name: name}
		return nil
	}
	var obj roleObject
	if err := json.Unmarshal(data, &obj); err != nil || obj.Name == "" {
		return ErrBadRoleClaim
	}
	*c = RoleClaim{Name: obj.Name, Permissions: obj.Permissions, snapshot: true}
	return nil
}

// Claims is the signed token payload.
type Claims struct {
	jwt.RegisteredClaims
	Role RoleClaim `json:"role"`
}

// SubjectID parses the registered subject as the principal's numeric id.
func (c *Claims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, errors.New("token: non-numeric subject")
	}
	return id, nil
}
