package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role in the store.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// User represents a store account.
type User struct {
	ID         uuid.UUID  `json:"id"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Password   string     `json:"-"`
	DOB        *time.Time `json:"dob,omitempty"`
	Role       Role       `json:"role"`
	IsVerified bool       `json:"isVerified"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// IsAdmin reports whether the user may manage catalog and discounts.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
