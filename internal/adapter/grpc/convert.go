package grpc

import (
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/usecase/authorization"
)

// stringField returns the named string field, or "" when absent
func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

// optionalString returns nil when the field is absent or not a string
func optionalString(req *structpb.Struct, name string) *string {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil
	}
	if _, isString := v.GetKind().(*structpb.Value_StringValue); !isString {
		return nil
	}
	s := v.GetStringValue()
	return &s
}

// requiredString returns InvalidArgument when the field is missing or blank
func requiredString(req *structpb.Struct, name string) (string, error) {
	s := stringField(req, name)
	if strings.TrimSpace(s) == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return s, nil
}

// toStruct builds a response message from plain Go values
func toStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// formatTime renders t the way google.protobuf.Timestamp does in JSON
func formatTime(t time.Time) string {
	return timestamppb.New(t).AsTime().Format(time.RFC3339Nano)
}

// recipientToMap converts a directory entry. The full account number is not exposed.
func recipientToMap(r *domain.Recipient) map[string]any {
	return map[string]any{
		"id":                r.ID.String(),
		"displayName":       r.DisplayName,
		"initials":          r.Initials,
		"email":             r.Email,
		"phone":             r.Phone,
		"maskedAccountHint": r.MaskedAccountHint,
		"bankAccountName":   r.BankAccountName,
		"bankName":          r.BankName,
		"routingNumber":     r.RoutingNumber,
		"transferReady":     r.IsTransferReady(),
	}
}

func draftToMap(d domain.TransferDraft) map[string]any {
	info := d.TransferType.Info()
	m := map[string]any{
		"amount":            "",
		"transferType":      string(d.TransferType),
		"transferTypeName":  info.DisplayName,
		"eta":               info.ETA,
		"recipientName":     d.RecipientName,
		"accountHolderName": d.AccountHolderName,
		"bankName":          d.BankName,
		"routingNumber":     d.RoutingNumber,
		"accountNumberHint": accountHint(d.AccountNumber),
		"memo":              d.Memo,
		"recipientId":       "",
		"recipientLocked":   d.HasRecipient(),
		"fee":               d.Fee().StringFixed(2),
		"total":             d.Total().StringFixed(2),
	}
	if d.Amount.Valid {
		m["amount"] = d.Amount.Decimal.StringFixed(2)
	}
	if d.RecipientID != nil {
		m["recipientId"] = d.RecipientID.String()
	}
	return m
}

// accountHint shows only the last four digits of an account number
func accountHint(accountNumber string) string {
	if accountNumber == "" {
		return ""
	}
	if len(accountNumber) <= 4 {
		return domain.MaskedHint(accountNumber)
	}
	return domain.MaskedHint(accountNumber[len(accountNumber)-4:])
}

func outcomeToMap(o *domain.TransferOutcome) map[string]any {
	reasons := make([]any, 0, len(o.Reasons))
	for _, r := range o.Reasons {
		reasons = append(reasons, map[string]any{"field": r.Field, "message": r.Message})
	}
	return map[string]any{
		"id":            o.ID.String(),
		"kind":          string(o.Kind),
		"challengeKind": string(o.ChallengeKind),
		"title":         o.Title,
		"message":       o.Message,
		"terminal":      o.Terminal,
		"reasons":       reasons,
		"amount":        o.Amount.StringFixed(2),
		"fee":           o.Fee.StringFixed(2),
		"total":         o.Total.StringFixed(2),
		"occurredAt":    formatTime(o.OccurredAt),
	}
}

func challengeToMap(c *domain.Challenge) map[string]any {
	return map[string]any{
		"id":                c.ID.String(),
		"kind":              string(c.Kind),
		"expectedLength":    c.ExpectedLength,
		"state":             string(c.State),
		"failedAttempts":    c.FailedAttempts,
		"attemptsRemaining": c.AttemptsRemaining(),
	}
}

func transferToMap(engine *authorization.Engine) map[string]any {
	policy := engine.Policy()
	steps := make([]any, 0, 3)
	for _, s := range policy.Steps() {
		steps = append(steps, string(s))
	}
	return map[string]any{
		"sessionId": engine.Session().ID.String(),
		"state":     string(engine.State()),
		"policy":    policy.Name,
		"steps":     steps,
		"draft":     draftToMap(engine.Draft()),
	}
}

func stepToMap(engine *authorization.Engine, step authorization.Step) map[string]any {
	m := transferToMap(engine)
	m["state"] = string(step.State)
	m["notice"] = step.Notice
	if step.Outcome != nil {
		m["outcome"] = outcomeToMap(step.Outcome)
	}
	if step.Challenge != nil {
		m["challenge"] = challengeToMap(step.Challenge)
	}
	return m
}

// userToMap converts a profile. The password hash is never exposed.
func userToMap(u *domain.User) map[string]any {
	m := map[string]any{
		"id":                u.ID.String(),
		"email":             u.Email,
		"phone":             u.Phone,
		"firstName":         u.FirstName,
		"middleName":        u.MiddleName,
		"lastName":          u.LastName,
		"fullName":          u.FullName(),
		"dateOfBirth":       "",
		"accountNumberHint": accountHint(u.AccountNumber),
		"accountType":       u.AccountType,
		"balance":           u.Balance.StringFixed(2),
		"currency":          u.Currency,
		"isVerified":        u.IsVerified,
	}
	if !u.DateOfBirth.IsZero() {
		m["dateOfBirth"] = u.DateOfBirth.Format("2006-01-02")
	}
	return m
}
