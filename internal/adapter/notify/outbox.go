package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/logging"
)

// Message is a delivered one-time code
type Message struct {
	Email   string
	Purpose domain.OtpPurpose
	Code    string
}

// Outbox implements domain.OtpDelivery by keeping delivered codes in memory.
// It stands in for the mail provider; codes are never written to the log.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
	logger   *zap.Logger
}

// NewOutbox creates an empty Outbox
func NewOutbox(logger *zap.Logger) *Outbox {
	return &Outbox{logger: logging.OrNop(logger)}
}

// Deliver records the code for the recipient
func (o *Outbox) Deliver(ctx context.Context, email string, purpose domain.OtpPurpose, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	o.messages = append(o.messages, Message{Email: domain.NormalizeEmail(email), Purpose: purpose, Code: code})
	o.mu.Unlock()

	o.logger.Info("verification code delivered", zap.String("purpose", string(purpose)))
	return nil
}

// Last returns the most recent code delivered to email for purpose
func (o *Outbox) Last(email string, purpose domain.OtpPurpose) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	email = domain.NormalizeEmail(email)
	for i := len(o.messages) - 1; i >= 0; i-- {
		m := o.messages[i]
		if m.Email == email && m.Purpose == purpose {
			return m.Code, true
		}
	}
	return "", false
}

// Count returns the number of delivered messages
func (o *Outbox) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.messages)
}
