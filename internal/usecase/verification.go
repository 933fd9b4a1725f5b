package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
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

// CodeDispatch describes the outcome of a code dispatch request. When a
// cooldown is still active no code is sent and Handle is empty.
type CodeDispatch struct {
	Handle        string
	Destination   string
	ExpiresAt     time.Time
	ResendIn      int  // seconds until the next dispatch is allowed
	AlreadyActive bool // nothing new was sent: cooldown running or already verified
}

// VerificationService drives the email and phone verification steps of the
// onboarding workflow.
type VerificationService struct {
	users         port.UserRepository
	tokens        port.TokenRepository
	verifications port.VerificationStore
	sms           port.SMSSender
	emails        port.EmailSender
	events        port.EventPublisher
	cfg           config.VerificationSettings
	logger        *zap.Logger
	now           func() time.Time
}

// NewVerificationService constructs a verification service.
func NewVerificationService(
	users port.UserRepository,
	tokens port.TokenRepository,
	verifications port.VerificationStore,
	sms port.SMSSender,
	emails port.EmailSender,
	events port.EventPublisher,
	cfg config.VerificationSettings,
	log *zap.Logger,
) *VerificationService {
	return &VerificationService{
		users:         users,
		tokens:        tokens,
		verifications: verifications,
		sms:           sms,
		emails:        emails,
		events:        events,
		cfg:           cfg,
		logger:        log,
		now:           time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *VerificationService) WithClock(now func() time.Time) *VerificationService {
	if now != nil {
		s.now = now
	}
	return s
}

// CheckEmailVerified performs a fresh read of the stored flag. The result is
// never served from any cached copy of the account.
func (s *VerificationService) CheckEmailVerified(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("load user: %w", err)
	}
	return user.EmailVerified, nil
}

// SendEmailVerification re-dispatches the verification link. It is a no-op
// while the resend cooldown is active or once the address is verified.
func (s *VerificationService) SendEmailVerification(ctx context.Context, userID string) (CodeDispatch, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return CodeDispatch{}, ErrUserNotFound
		}
		return CodeDispatch{}, fmt.Errorf("load user: %w", err)
	}
	if user.EmailVerified {
		return CodeDispatch{AlreadyActive: true}, nil
	}

	remaining, err := s.verifications.CooldownRemaining(ctx, userID, domain.VerificationChannelEmail)
	if err != nil {
		return CodeDispatch{}, fmt.Errorf("check email cooldown: %w", err)
	}
	if remaining > 0 {
		return CodeDispatch{ResendIn: seconds(remaining), AlreadyActive: true}, nil
	}

	now := s.now().UTC()
	if err := s.tokens.DeleteForUser(ctx, userID, domain.TokenPurposeEmailVerification); err != nil {
		return CodeDispatch{}, fmt.Errorf("drop stale verification tokens: %w", err)
	}

	rawToken, err := security.GenerateSecureToken(32)
	if err != nil {
		return CodeDispatch{}, fmt.Errorf("generate verification token: %w", err)
	}

	expiresAt := now.Add(s.cfg.EmailTokenTTL)
	token := domain.OneTimeToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: security.HashToken(rawToken),
		Purpose:   domain.TokenPurposeEmailVerification,
		CreatedAt: now,
		ExpiresAt: expiresAt,
		Metadata:  map[string]any{"email": user.Email},
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return CodeDispatch{}, fmt.Errorf("store verification token: %w", err)
	}

	if err := s.emails.SendVerificationLink(ctx, user.Email, rawToken); err != nil {
		return CodeDispatch{}, fmt.Errorf("send verification email: %w", err)
	}

	if err := s.verifications.SetCooldown(ctx, userID, domain.VerificationChannelEmail, s.cfg.ResendCooldown); err != nil {
		return CodeDispatch{}, fmt.Errorf("arm email cooldown: %w", err)
	}

	return CodeDispatch{
		Destination: logger.MaskEmail(user.Email),
		ExpiresAt:   expiresAt,
		ResendIn:    seconds(s.cfg.ResendCooldown),
	}, nil
}

// ConfirmEmailToken redeems an emailed verification token. On success the
// account advances to pending_phone and the first phone code is dispatched.
func (s *VerificationService) ConfirmEmailToken(ctx context.Context, rawToken string) (*domain.User, CodeDispatch, error) {
	var zero CodeDispatch

	token, err := s.tokens.GetByHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, zero, ErrVerificationCodeInvalid
		}
		return nil, zero, fmt.Errorf("load verification token: %w", err)
	}

	now := s.now().UTC()
	if token.Purpose != domain.TokenPurposeEmailVerification || token.UsedAt != nil {
		return nil, zero, ErrVerificationCodeInvalid
	}
	if now.After(token.ExpiresAt) {
		return nil, zero, ErrVerificationCodeExpired
	}

	if err := s.tokens.Consume(ctx, token.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, zero, ErrVerificationCodeInvalid
		}
		return nil, zero, fmt.Errorf("consume verification token: %w", err)
	}

	if err := s.users.SetEmailVerified(ctx, token.UserID, now); err != nil {
		return nil, zero, fmt.Errorf("mark email verified: %w", err)
	}
	if err := s.users.UpdateStatus(ctx, token.UserID, domain.UserStatusPendingPhone); err != nil {
		return nil, zero, fmt.Errorf("advance user status: %w", err)
	}

	s.publishVerified(ctx, token.UserID, "email", now)

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, zero, fmt.Errorf("load user: %w", err)
	}

	dispatch, err := s.DispatchPhoneCode(ctx, user.ID)
	if err != nil {
		return nil, zero, err
	}

	return user, dispatch, nil
}

// DispatchPhoneCode sends a fresh verification code to the user's phone and
// returns an opaque one-shot confirmation handle. While the resend cooldown
// is active it is a no-op reporting the remaining seconds.
func (s *VerificationService) DispatchPhoneCode(ctx context.Context, userID string) (CodeDispatch, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return CodeDispatch{}, ErrUserNotFound
		}
		return CodeDispatch{}, fmt.Errorf("load user: %w", err)
	}
	if user.PhoneNumber == nil || *user.PhoneNumber == "" {
		return CodeDispatch{}, fmt.Errorf("%w: no phone number on record", ErrInvalidPhoneFormat)
	}

	remaining, err := s.verifications.CooldownRemaining(ctx, userID, domain.VerificationChannelSMS)
	if err != nil {
		return CodeDispatch{}, fmt.Errorf("check sms cooldown: %w", err)
	}
	if remaining > 0 {
		return CodeDispatch{ResendIn: seconds(remaining), AlreadyActive: true}, nil
	}

	code, err := security.GenerateNumericCode(s.cfg.CodeLength)
	if err != nil {
		return CodeDispatch{}, fmt.Errorf("generate verification code: %w", err)
	}

	now := s.now().UTC()
	session := domain.VerificationSession{
		Handle:        uuid.NewString(),
		UserID:        userID,
		Channel:       domain.VerificationChannelSMS,
		Destination:   *user.PhoneNumber,
		CodeHash:      security.HashToken(code),
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.CodeTTL),
		ResendReadyAt: now.Add(s.cfg.ResendCooldown),
	}
	if err := s.verifications.CreateSession(ctx, session); err != nil {
		return CodeDispatch{}, fmt.Errorf("store verification session: %w", err)
	}

	if err := s.sms.SendCode(ctx, *user.PhoneNumber, code); err != nil {
		return CodeDispatch{}, fmt.Errorf("send verification sms: %w", err)
	}

	if err := s.verifications.SetCooldown(ctx, userID, domain.VerificationChannelSMS, s.cfg.ResendCooldown); err != nil {
		return CodeDispatch{}, fmt.Errorf("arm sms cooldown: %w", err)
	}

	s.logger.Info("Phone verification code dispatched",
		zap.String("user_id", userID),
		zap.String("phone", logger.MaskPhone(*user.PhoneNumber)),
	)

	return CodeDispatch{
		Handle:      session.Handle,
		Destination: logger.MaskPhone(*user.PhoneNumber),
		ExpiresAt:   session.ExpiresAt,
		ResendIn:    seconds(s.cfg.ResendCooldown),
	}, nil
}

// ConfirmPhoneCode redeems a confirmation handle. The handle is spent by the
// submission no matter the outcome: a wrong code requires a fresh dispatch.
// On success the account is activated.
func (s *VerificationService) ConfirmPhoneCode(ctx context.Context, handle, code string) (*domain.User, error) {
	if res := validation.VerificationCode(code, s.cfg.CodeLength); !res.OK {
		return nil, fmt.Errorf("%w: %s", ErrVerificationCodeInvalid, res.Reason)
	}

	session, err := s.verifications.SpendSession(ctx, handle)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVerificationCodeExpired
		}
		return nil, fmt.Errorf("spend verification session: %w", err)
	}

	now := s.now().UTC()
	if now.After(session.ExpiresAt) {
		return nil, ErrVerificationCodeExpired
	}
	if subtle.ConstantTimeCompare([]byte(session.CodeHash), []byte(security.HashToken(code))) != 1 {
		return nil, ErrVerificationCodeInvalid
	}

	if err := s.users.SetPhoneVerified(ctx, session.UserID, now); err != nil {
		return nil, fmt.Errorf("mark phone verified: %w", err)
	}
	if err := s.users.UpdateStatus(ctx, session.UserID, domain.UserStatusActive); err != nil {
		return nil, fmt.Errorf("activate user: %w", err)
	}

	s.publishVerified(ctx, session.UserID, "sms", now)

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	s.logger.Info("Phone number verified, account active",
		zap.String("user_id", user.ID),
	)

	return user, nil
}

func (s *VerificationService) publishVerified(ctx context.Context, userID, channel string, at time.Time) {
	event := domain.UserVerifiedEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		Channel:    channel,
		VerifiedAt: at,
	}
	if err := s.events.PublishUserVerified(ctx, event); err != nil {
		s.logger.Warn("Failed to publish user verified event",
			zap.String("user_id", userID),
			zap.String("channel", channel),
			zap.Error(err),
		)
	}
}

func seconds(d time.Duration) int {
	return int(d.Round(time.Second) / time.Second)
}
