package account

import (
	"context"
	"errors"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

// TransferOtp issues and checks the one-time codes of the transfer OTP challenge.
// It implements verification.OtpSender and verification.OtpVerifier. The engine
// bounds these calls with its own guard, so the stores are called directly.
type TransferOtp struct {
	accounts *AccountService
}

// TransferOtp returns the transfer-code collaborator backed by this service
func (s *AccountService) TransferOtp() *TransferOtp {
	return &TransferOtp{accounts: s}
}

// SendOtp replaces the outstanding transfer code of the session.
// Codes of other sessions for the same user are left alone.
func (t *TransferOtp) SendOtp(ctx context.Context, session domain.SessionContext) error {
	return t.accounts.issue(ctx, nil, transferKey(session))
}

// VerifyOtp reports whether code matches the outstanding transfer code.
// A matching code is consumed; a missing or expired one never matches.
func (t *TransferOtp) VerifyOtp(ctx context.Context, session domain.SessionContext, code string) (bool, error) {
	key := transferKey(session)
	ok, err := t.accounts.check(ctx, nil, key, code)
	if errors.Is(err, domain.ErrOtpNotFound) {
		return false, nil
	}
	if err != nil || !ok {
		return false, err
	}

	if err := t.accounts.OtpStore.Delete(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

func transferKey(session domain.SessionContext) domain.OtpKey {
	return domain.OtpKey{
		Email:   session.UserEmail,
		Purpose: domain.OtpPurposeTransfer,
		Scope:   session.ID.String(),
	}
}
