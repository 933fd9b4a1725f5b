package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/core/port"
	"github.com/FairHead/checktodo-server/internal/infra/config"
	"github.com/FairHead/checktodo-server/internal/infra/logger"
	"github.com/FairHead/checktodo-server/internal/infra/security"
	"github.com/FairHead/checktodo-server/internal/repository"
	"github.com/FairHead/checktodo-server/internal/validation"
)

// SignInResult carries the session token issued for a successful sign-in.
type SignInResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService implements the authentication gateway: credential sign-in,
// session tokens, and the password reset flow.
type AuthService struct {
	users          port.UserRepository
	tokens         port.TokenRepository
	emails         port.EmailSender
	events         port.EventPublisher
	tokenManager   *security.TokenManager
	passwordPolicy *security.PasswordPolicy
	broker         *SessionBroker
	cfg            config.VerificationSettings
	logger         *zap.Logger
	now            func() time.Time
}

// NewAuthService constructs an auth service.
func NewAuthService(
	users port.UserRepository,
	tokens port.TokenRepository,
	emails port.EmailSender,
	events port.EventPublisher,
	tokenManager *security.TokenManager,
	policy *security.PasswordPolicy,
	broker *SessionBroker,
	cfg config.VerificationSettings,
	log *zap.Logger,
) *AuthService {
	if policy == nil {
		policy = security.DefaultPasswordPolicy()
	}
	return &AuthService{
		users:          users,
		tokens:         tokens,
		emails:         emails,
		events:         events,
		tokenManager:   tokenManager,
		passwordPolicy: policy,
		broker:         broker,
		cfg:            cfg,
		logger:         log,
		now:            time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// SignIn verifies the email/password pair and issues a session token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	email = strings.TrimSpace(email)
	if res := validation.Email(email); !res.OK {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, res.Reason)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.logger.Info("Sign-in rejected, bad credentials",
			zap.String("email", logger.MaskEmail(email)),
		)
		return nil, ErrInvalidCredentials
	}

	if user.Status == domain.UserStatusDisabled {
		return nil, ErrUserDisabled
	}

	token, expiresAt, err := s.tokenManager.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("record last login: %w", err)
	}
	user.LastLoginAt = &now

	if s.broker != nil {
		s.broker.Set(IdentityFromUser(user))
	}

	s.logger.Info("User signed in",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	return &SignInResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// SignOut announces sign-out on the session broker. Bearer tokens are not
// revoked server-side; they age out with their expiry.
func (s *AuthService) SignOut(_ context.Context, userID string) {
	if s.broker != nil {
		s.broker.Set(nil)
	}
	s.logger.Info("User signed out", zap.String("user_id", userID))
}

// CurrentUser resolves a bearer token to the account it belongs to.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokenManager.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSignedIn, err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotSignedIn
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.Status == domain.UserStatusDisabled {
		return nil, ErrUserDisabled
	}

	return user, nil
}

// RequestPasswordReset dispatches a reset token to the address when it
// belongs to an account. An unknown address reports success without sending
// anything, so the endpoint does not leak which emails are registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if res := validation.Email(email); !res.OK {
		return invalidField("email", res.Reason)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("Password reset requested for unknown email",
				zap.String("email", logger.MaskEmail(email)),
			)
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}

	now := s.now().UTC()
	if err := s.tokens.DeleteForUser(ctx, user.ID, domain.TokenPurposePasswordReset); err != nil {
		return fmt.Errorf("drop stale reset tokens: %w", err)
	}

	rawToken, err := security.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := now.Add(s.cfg.EmailTokenTTL)
	token := domain.OneTimeToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(rawToken),
		Purpose:   domain.TokenPurposePasswordReset,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.emails.SendPasswordReset(ctx, user.Email, rawToken); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	event := domain.PasswordResetRequestedEvent{
		EventID:           uuid.NewString(),
		UserID:            user.ID,
		RequestedAt:       now,
		MaskedDestination: logger.MaskEmail(user.Email),
		ExpiresAt:         expiresAt,
	}
	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		s.logger.Warn("Failed to publish password reset event",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	return nil
}

// ConfirmPasswordReset redeems a reset token and installs the new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, rawToken, newPassword string) error {
	if res := validation.Password(newPassword); !res.OK {
		return fmt.Errorf("%w: %s", ErrWeakPassword, res.Reason)
	}
	if err := s.passwordPolicy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	token, err := s.tokens.GetByHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVerificationCodeInvalid
		}
		return fmt.Errorf("load reset token: %w", err)
	}

	now := s.now().UTC()
	if token.Purpose != domain.TokenPurposePasswordReset || token.UsedAt != nil {
		return ErrVerificationCodeInvalid
	}
	if now.After(token.ExpiresAt) {
		return ErrVerificationCodeExpired
	}

	if err := s.tokens.Consume(ctx, token.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVerificationCodeInvalid
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, token.UserID, hash, "argon2id"); err != nil {
		return fmt.Errorf("store new password: %w", err)
	}

	s.logger.Info("Password reset completed", zap.String("user_id", token.UserID))
	return nil
}
