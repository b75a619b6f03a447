package domain

import "time"

// Role enumerates access levels.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

// DefaultTeam is assigned when no team is given.
const DefaultTeam = "general"

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleUser:
		return true
	}
	return false
}

// Staff reports whether the role handles tickets.
func (r Role) Staff() bool {
	return r == RoleAdmin || r == RoleAgent
}

// User is an account: customers, agents and administrators.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Team         string
	IsActive     bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
