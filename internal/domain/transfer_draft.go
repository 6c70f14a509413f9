package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferType represents the rail a transfer is sent over
type TransferType string

const (
	TransferTypeACH      TransferType = "ACH"
	TransferTypeWire     TransferType = "WIRE"
	TransferTypeInternal TransferType = "INTERNAL"
)

// TransferTypeInfo describes how a transfer type is presented and priced
type TransferTypeInfo struct {
	DisplayName string
	ETA         string
	Fee         decimal.Decimal
}

var transferTypeCatalog = map[TransferType]TransferTypeInfo{
	TransferTypeACH:      {DisplayName: "ACH Transfer", ETA: "1-3 business days", Fee: decimal.Zero},
	TransferTypeWire:     {DisplayName: "Wire Transfer", ETA: "Same day", Fee: decimal.NewFromInt(25)},
	TransferTypeInternal: {DisplayName: "Internal Transfer", ETA: "Instant", Fee: decimal.Zero},
}

// Info returns the catalog entry for the transfer type.
// Unknown types get an empty entry with a zero fee.
func (t TransferType) Info() TransferTypeInfo {
	info, ok := transferTypeCatalog[t]
	if !ok {
		return TransferTypeInfo{Fee: decimal.Zero}
	}
	return info
}

// ParseTransferType accepts ach, wire and internal in any case
func ParseTransferType(s string) (TransferType, error) {
	t := TransferType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := transferTypeCatalog[t]; !ok {
		return "", NewValidationError("Invalid Transfer Type", string(FieldTransferType), "transfer type must be ACH, WIRE, or INTERNAL")
	}
	return t, nil
}

// DraftField names an editable field of a TransferDraft
type DraftField string

const (
	FieldAmount            DraftField = "amount"
	FieldTransferType      DraftField = "transferType"
	FieldRecipientName     DraftField = "recipientName"
	FieldAccountHolderName DraftField = "accountHolderName"
	FieldBankName          DraftField = "bankName"
	FieldRoutingNumber     DraftField = "routingNumber"
	FieldAccountNumber     DraftField = "accountNumber"
	FieldMemo              DraftField = "memo"
)

// IsRecipientIdentity reports whether the field is overwritten and locked by ApplyRecipient
func (f DraftField) IsRecipientIdentity() bool {
	switch f {
	case FieldRecipientName, FieldAccountHolderName, FieldBankName, FieldRoutingNumber, FieldAccountNumber:
		return true
	default:
		return false
	}
}

// AmountLimits bounds the transfer amount.
// When Enforced is false the bounds are guidance only and any positive amount passes.
type AmountLimits struct {
	Min      decimal.Decimal
	Max      decimal.Decimal
	Enforced bool
}

// DefaultAmountLimits returns the enforced $1.00 to $10,000.00 range
func DefaultAmountLimits() AmountLimits {
	return AmountLimits{
		Min:      decimal.RequireFromString("1.00"),
		Max:      decimal.RequireFromString("10000.00"),
		Enforced: true,
	}
}

// TransferDraft is the in-progress, unsubmitted transfer form
type TransferDraft struct {
	Amount            decimal.NullDecimal
	TransferType      TransferType
	RecipientName     string
	AccountHolderName string
	BankName          string
	RoutingNumber     string
	AccountNumber     string
	Memo              string

	// RecipientID is set while a directory recipient is applied.
	// The identity fields are locked until ClearRecipient is called.
	RecipientID *uuid.UUID
}

// NewTransferDraft creates an empty ACH draft
func NewTransferDraft() *TransferDraft {
	return &TransferDraft{TransferType: TransferTypeACH}
}

// ApplyRecipient snapshots the recipient's name and bank fields into the draft.
// Later edits to the directory entry are not reflected, and the draft never writes back.
func (d *TransferDraft) ApplyRecipient(r Recipient) {
	id := r.ID
	d.RecipientID = &id
	d.RecipientName = r.DisplayName
	d.AccountHolderName = r.BankAccountName
	d.BankName = r.BankName
	d.RoutingNumber = r.RoutingNumber
	d.AccountNumber = r.AccountNumber
}

// ClearRecipient empties the identity fields and re-enables free-text entry.
// Amount, memo and transfer type are kept.
func (d *TransferDraft) ClearRecipient() {
	d.RecipientID = nil
	d.RecipientName = ""
	d.AccountHolderName = ""
	d.BankName = ""
	d.RoutingNumber = ""
	d.AccountNumber = ""
}

// HasRecipient reports whether a directory recipient is currently applied
func (d *TransferDraft) HasRecipient() bool {
	return d.RecipientID != nil
}

// Edit sets a single field from its text form.
// Identity fields are rejected with ErrFieldLocked while a recipient is applied.
func (d *TransferDraft) Edit(field DraftField, value string) error {
	if field.IsRecipientIdentity() && d.HasRecipient() {
		return ErrFieldLocked
	}

	switch field {
	case FieldAmount:
		return d.setAmount(value)
	case FieldTransferType:
		t, err := ParseTransferType(value)
		if err != nil {
			return err
		}
		d.TransferType = t
	case FieldRecipientName:
		d.RecipientName = value
	case FieldAccountHolderName:
		d.AccountHolderName = value
	case FieldBankName:
		d.BankName = value
	case FieldRoutingNumber:
		d.RoutingNumber = strings.TrimSpace(value)
	case FieldAccountNumber:
		d.AccountNumber = strings.TrimSpace(value)
	case FieldMemo:
		d.Memo = value
	default:
		return errors.New("unknown draft field: " + string(field))
	}
	return nil
}

func (d *TransferDraft) setAmount(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		d.Amount = decimal.NullDecimal{}
		return nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return NewValidationError("Invalid Amount", string(FieldAmount), "amount must be a number")
	}
	d.Amount = decimal.NewNullDecimal(amount)
	return nil
}

// Validate checks the draft in a fixed order and reports the first failing check.
// Order:
//  1. Amount present and > 0 (and within limits when enforced)
//  2. Recipient name present
//  3. Routing number, account number and account holder name present
//  4. Routing number is exactly 9 digits
func (d *TransferDraft) Validate(limits AmountLimits) error {
	if !d.Amount.Valid || d.Amount.Decimal.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("Invalid Amount", string(FieldAmount), "Please enter a valid amount greater than $0.00")
	}

	if limits.Enforced && (d.Amount.Decimal.LessThan(limits.Min) || d.Amount.Decimal.GreaterThan(limits.Max)) {
		return NewValidationError("Invalid Amount", string(FieldAmount),
			"amount must be between "+FormatUSD(limits.Min)+" and "+FormatUSD(limits.Max))
	}

	if strings.TrimSpace(d.RecipientName) == "" {
		return NewValidationError("Recipient Name Required", string(FieldRecipientName), "Please enter the recipient's name")
	}

	missing := &ValidationError{Title: "Missing Bank Information"}
	if strings.TrimSpace(d.RoutingNumber) == "" {
		missing.Violations = append(missing.Violations, Violation{Field: string(FieldRoutingNumber), Message: "routing number is required"})
	}
	if strings.TrimSpace(d.AccountNumber) == "" {
		missing.Violations = append(missing.Violations, Violation{Field: string(FieldAccountNumber), Message: "account number is required"})
	}
	if strings.TrimSpace(d.AccountHolderName) == "" {
		missing.Violations = append(missing.Violations, Violation{Field: string(FieldAccountHolderName), Message: "account holder name is required"})
	}
	if len(missing.Violations) > 0 {
		return missing
	}

	if !IsRoutingNumber(d.RoutingNumber) {
		return NewValidationError("Invalid Routing Number", string(FieldRoutingNumber), "routing number must be exactly 9 digits")
	}

	return nil
}

// Fee returns the fee charged for the draft's transfer type
func (d *TransferDraft) Fee() decimal.Decimal {
	return d.TransferType.Info().Fee
}

// Total returns amount plus fee; zero when no amount is set
func (d *TransferDraft) Total() decimal.Decimal {
	if !d.Amount.Valid {
		return decimal.Zero
	}
	return d.Amount.Decimal.Add(d.Fee())
}

// Clone returns an independent copy of the draft
func (d *TransferDraft) Clone() *TransferDraft {
	c := *d
	if d.RecipientID != nil {
		id := *d.RecipientID
		c.RecipientID = &id
	}
	return &c
}
