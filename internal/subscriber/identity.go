package subscriber

import (
	"errors"

	"github.com/goevery/notifier/internal/ierr"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleStaff        Role = "staff"
	RoleReceptionist Role = "receptionist"
	RoleClient       Role = "client"
)

func ParseRole(raw string) (Role, error) {
	role := Role(raw)

	switch role {
	case RoleAdmin, RoleStaff, RoleReceptionist, RoleClient:
		return role, nil
	default:
		return "", ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("unknown role: "+raw))
	}
}

// Identity is the routing identity of a logged-in user. It is never mutated,
// a re-login replaces it wholesale.
type Identity struct {
	ID   string `json:"subscriberId"`
	Role Role   `json:"role"`
}

func NewIdentity(id string, rawRole string) (Identity, error) {
	if id == "" {
		return Identity{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("subscriberId cannot be empty"))
	}

	role, err := ParseRole(rawRole)
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		ID:   id,
		Role: role,
	}, nil
}
