package domain

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Recipient is a saved transfer counterparty.
// Recipients are never deleted; the directory owns them and drafts only hold copies.
type Recipient struct {
	ID                uuid.UUID
	DisplayName       string
	Initials          string
	Email             string
	Phone             string
	MaskedAccountHint string // cosmetic, e.g. "•••• 4821"; not derived from AccountNumber
	BankAccountName   string
	BankName          string
	RoutingNumber     string
	AccountNumber     string
}

// Validate ensures the recipient can be stored
func (r *Recipient) Validate() error {
	if strings.TrimSpace(r.DisplayName) == "" {
		return NewValidationError("Name Required", "displayName", "recipient display name cannot be empty")
	}
	if r.RoutingNumber != "" && !IsRoutingNumber(r.RoutingNumber) {
		return NewValidationError("Invalid Routing Number", "routingNumber", "routing number must be exactly 9 digits")
	}
	return nil
}

// IsTransferReady reports whether every bank field needed by a draft is filled in
func (r *Recipient) IsTransferReady() bool {
	return r.BankAccountName != "" &&
		r.BankName != "" &&
		r.RoutingNumber != "" &&
		r.AccountNumber != ""
}

// InitialsFor returns the upper-cased first letters of the first two words of name
func InitialsFor(name string) string {
	initials := make([]rune, 0, 2)
	for _, word := range strings.Fields(name) {
		initials = append(initials, unicode.ToUpper([]rune(word)[0]))
		if len(initials) == 2 {
			break
		}
	}
	return string(initials)
}

// IsRoutingNumber checks the 9-digit format only; no ABA checksum is applied
func IsRoutingNumber(s string) bool {
	return len(s) == 9 && IsDigits(s)
}

// IsDigits reports whether s is non-empty and made only of ASCII digits
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
