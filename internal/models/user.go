package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// UserRole is the global role of a user. The set is closed.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// ErrInvalidRole is returned by ParseRole for anything outside the closed role set.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole converts raw input into a UserRole. It never panics; unknown
// values yield ErrInvalidRole.
func ParseRole(raw string) (UserRole, error) {
	switch UserRole(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleTeacher:
		return RoleTeacher, nil
	case RoleStudent:
		return RoleStudent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// IsStaff reports whether the role may author and grade class work.
func (r UserRole) IsStaff() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// UnmarshalText makes JSON and form binding reject unknown roles.
func (r *UserRole) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"user_id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         UserRole  `db:"role" json:"role"`
	ProfilePhoto *string   `db:"profile_photo" json:"profile_photo,omitempty"`
	BirthPlace   *string   `db:"birth_place" json:"birth_place,omitempty"`
	BirthDate    *Date     `db:"birth_date" json:"birth_date,omitempty"`
	Bio          *string   `db:"bio" json:"bio,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserInfo is the public subset of a user embedded in other payloads.
type UserInfo struct {
	ID           string   `db:"user_id" json:"user_id"`
	Email        string   `db:"email" json:"email"`
	FullName     string   `db:"full_name" json:"full_name"`
	Role         UserRole `db:"role" json:"role"`
	ProfilePhoto *string  `db:"profile_photo" json:"profile_photo,omitempty"`
}

// Info returns the public view of u.
func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role, ProfilePhoto: u.ProfilePhoto}
}
