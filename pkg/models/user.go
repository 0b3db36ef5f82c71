package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an authenticated actor. Staff users bypass resource-level
// authorization everywhere except the explicit carve-outs in pkg/authz.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsStaff     bool      `json:"is_staff"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizeEmail lowercases the domain part of an email address.
// The local part is left untouched since it is case-sensitive per RFC 5321.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}
