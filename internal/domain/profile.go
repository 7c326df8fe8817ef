package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the fixed participant category of a profile.
type Role string

const (
	RoleOwner       Role = "owner"
	RoleHousekeeper Role = "housekeeper"
)

// ParseRole converts raw input into a Role.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleOwner:
		return RoleOwner, nil
	case RoleHousekeeper:
		return RoleHousekeeper, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleHousekeeper:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Profile is the public face of a user. Exactly one exists per user and its
// role never changes after creation.
type Profile struct {
	ID        string
	UserID    string
	Name      string
	Role      Role
	CreatedAt time.Time
}

// Identity is the verified caller carried by an access token.
type Identity struct {
	UserID string
	Role   Role
}
