// Package notify provides development implementations of the outbound
// delivery ports. Codes and links are written to the log instead of being
// handed to an SMS or mail provider.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/FairHead/checktodo-server/internal/core/port"
	"github.com/FairHead/checktodo-server/internal/infra/logger"
)

// LogSMSSender logs verification codes instead of sending SMS.
type LogSMSSender struct {
	logger *zap.Logger
}

// NewLogSMSSender constructs a log-backed SMS sender.
func NewLogSMSSender(log *zap.Logger) *LogSMSSender {
	return &LogSMSSender{logger: log}
}

// SendCode logs the code together with the masked destination number.
func (s *LogSMSSender) SendCode(_ context.Context, phoneNumber, code string) error {
	s.logger.Info("SMS verification code dispatched",
		zap.String("phone", logger.MaskPhone(phoneNumber)),
		zap.String("code", code),
	)
	return nil
}

// LogEmailSender logs verification and reset links instead of sending mail.
type LogEmailSender struct {
	logger *zap.Logger
}

// NewLogEmailSender constructs a log-backed email sender.
func NewLogEmailSender(log *zap.Logger) *LogEmailSender {
	return &LogEmailSender{logger: log}
}

// SendVerificationLink logs the email verification token.
func (s *LogEmailSender) SendVerificationLink(_ context.Context, email, token string) error {
	s.logger.Info("Email verification link dispatched",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("token", token),
	)
	return nil
}

// SendPasswordReset logs the password reset token.
func (s *LogEmailSender) SendPasswordReset(_ context.Context, email, token string) error {
	s.logger.Info("Password reset link dispatched",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("token", token),
	)
	return nil
}

var (
	_ port.SMSSender   = (*LogSMSSender)(nil)
	_ port.EmailSender = (*LogEmailSender)(nil)
)
