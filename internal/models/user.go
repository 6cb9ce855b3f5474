package models

import (
	"fmt"
	"time"
)

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleGuard      Role = "GUARD"
)

// Roles lists every role, widest first.
var Roles = []Role{RoleAdmin, RoleSupervisor, RoleGuard}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleSupervisor, RoleGuard:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// OrgWide reports whether the role sees every site of its organization.
func (r Role) OrgWide() bool {
	return r == RoleAdmin || r == RoleSupervisor
}

// User is a human principal. SiteID only scopes a guard, it does not own the user.
type User struct {
	ID           int64
	OrgID        int64
	SiteID       *int64
	Name         string
	Email        string // unique within the organization
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
}
