package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the role of a school staff member.
type UserRole string

const (
	RoleAdmin        UserRole = "ADMIN"
	RoleHeadTeacher  UserRole = "HEAD_TEACHER"
	RoleClassTeacher UserRole = "CLASS_TEACHER"
	RoleTeacher      UserRole = "TEACHER"
	RoleBursar       UserRole = "BURSAR"
	RoleSystem       UserRole = "SYSTEM"
)

// Actor identifies who performs an operation. It is always passed explicitly.
type Actor struct {
	UserID     string   `json:"userId"`
	Role       UserRole `json:"role"`
	Department string   `json:"department,omitempty"`
}

// SystemActor is used by unattended setup runs.
var SystemActor = Actor{UserID: "system", Role: RoleSystem}

// Label returns a printable identity for audit fields.
func (a Actor) Label() string {
	if a.UserID == "" {
		return string(RoleSystem)
	}
	return a.UserID
}

// JWTClaims describes the token payload used to identify the actor.
type JWTClaims struct {
	UserID     string   `json:"uid"`
	Role       UserRole `json:"role"`
	Department string   `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into an Actor.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{UserID: c.UserID, Role: c.Role, Department: c.Department}
}

// Staff is a school employee seeded by setup.
type Staff struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Role         UserRole `json:"role"`
	Department   string   `json:"department"`
	PasswordHash string   `json:"passwordHash,omitempty"`
}
