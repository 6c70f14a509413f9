package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is the customer profile served by the account collaborators
type User struct {
	ID            uuid.UUID
	Email         string
	Phone         string
	FirstName     string
	MiddleName    string
	LastName      string
	DateOfBirth   time.Time
	AccountNumber string
	AccountType   string
	Balance       decimal.Decimal
	Currency      string
	IsVerified    bool
	PasswordHash  string
}

// Validate ensures the profile can be stored
func (u *User) Validate() error {
	if !looksLikeEmail(u.Email) {
		return NewValidationError("Invalid Email", "email", "email address is invalid")
	}
	if strings.TrimSpace(u.FirstName) == "" {
		return errors.New("first name cannot be empty")
	}
	return nil
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserUpdate is a partial profile update; nil fields are left unchanged
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Email     *string
}

// IsEmpty reports whether the update changes nothing
func (u UserUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Phone == nil && u.Email == nil
}

// Validate checks the fields that are being changed
func (u UserUpdate) Validate() error {
	if u.Email != nil && !looksLikeEmail(*u.Email) {
		return NewValidationError("Invalid Email", "email", "email address is invalid")
	}
	if u.FirstName != nil && strings.TrimSpace(*u.FirstName) == "" {
		return NewValidationError("Invalid Name", "firstName", "first name cannot be empty")
	}
	return nil
}

// Apply copies the set fields onto user
func (u UserUpdate) Apply(user *User) {
	if u.FirstName != nil {
		user.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		user.LastName = *u.LastName
	}
	if u.Phone != nil {
		user.Phone = *u.Phone
	}
	if u.Email != nil {
		user.Email = NormalizeEmail(*u.Email)
	}
}

// NormalizeEmail lower-cases and trims an email identifier
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func looksLikeEmail(s string) bool {
	s = strings.TrimSpace(s)
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && !strings.Contains(s[at+1:], "@")
}
