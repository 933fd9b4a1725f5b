package port

import (
	"context"
	"time"

	"github.com/FairHead/checktodo-server/internal/core/domain"
)

// UserRepository exposes persistence behavior for user documents.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phoneNumber string) (*domain.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error
	SetEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error
	SetPhoneVerified(ctx context.Context, id string, verifiedAt time.Time) error
	UpdateProfile(ctx context.Context, id string, profile domain.Profile) error
	UpdateSettings(ctx context.Context, id string, settings domain.Settings) error
	UpdatePassword(ctx context.Context, id, passwordHash, passwordAlgo string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpsertFCMToken(ctx context.Context, id string, deviceID string, token domain.FCMToken) error
}

// TokenRepository manages one-time email tokens (verification, password reset).
type TokenRepository interface {
	Create(ctx context.Context, token domain.OneTimeToken) error
	GetByHash(ctx context.Context, hash string) (*domain.OneTimeToken, error)
	Consume(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID string, purpose domain.TokenPurpose) error
}
