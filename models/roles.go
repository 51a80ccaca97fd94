package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRole      = errors.New("invalid user role")
	ErrInvalidActorRole = errors.New("invalid actor role")
)

// Role is the account role stored in users.role.
type Role string

const (
	RoleRegular Role = "regular"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleRegular || r == RoleAdmin
}

// ParseRole validates a role coming from outside the process.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// ActorRole says which side of a user game made a move.
type ActorRole string

const (
	ActorUser  ActorRole = "user"
	ActorModel ActorRole = "model"
)

func (r ActorRole) Valid() bool {
	return r == ActorUser || r == ActorModel
}

func ParseActorRole(s string) (ActorRole, error) {
	r := ActorRole(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidActorRole, s)
	}
	return r, nil
}
