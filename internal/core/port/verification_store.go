package port

import (
	"context"
	"time"

	"github.com/FairHead/checktodo-server/internal/core/domain"
)

// VerificationStore keeps short-lived verification sessions and resend
// cooldown markers. Sessions are one-shot: a successful Spend removes the
// session so the same handle can never confirm twice.
type VerificationStore interface {
	CreateSession(ctx context.Context, session domain.VerificationSession) error
	GetSession(ctx context.Context, handle string) (*domain.VerificationSession, error)
	SpendSession(ctx context.Context, handle string) (*domain.VerificationSession, error)
	CooldownRemaining(ctx context.Context, userID string, channel domain.VerificationChannel) (time.Duration, error)
	SetCooldown(ctx context.Context, userID string, channel domain.VerificationChannel, d time.Duration) error
}
