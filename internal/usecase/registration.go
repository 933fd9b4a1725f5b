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

// Step1Input carries the profile-entry fields of the registration flow.
type Step1Input struct {
	FirstName            string
	LastName             string
	Email                string
	Password             string
	PasswordConfirmation string
}

// Step2Input carries the credentials-entry fields. The registration data from
// step one is passed back unchanged.
type Step2Input struct {
	Data          domain.RegistrationData
	BirthDate     string
	PhoneNumber   string
	Username      string
	Bio           string
	AcceptedTerms bool
}

// RegistrationService handles new account onboarding.
type RegistrationService struct {
	users          port.UserRepository
	tokens         port.TokenRepository
	verifications  port.VerificationStore
	emails         port.EmailSender
	events         port.EventPublisher
	passwordPolicy *security.PasswordPolicy
	cfg            config.VerificationSettings
	logger         *zap.Logger
	now            func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	users port.UserRepository,
	tokens port.TokenRepository,
	verifications port.VerificationStore,
	emails port.EmailSender,
	events port.EventPublisher,
	policy *security.PasswordPolicy,
	cfg config.VerificationSettings,
	log *zap.Logger,
) *RegistrationService {
	if policy == nil {
		policy = security.DefaultPasswordPolicy()
	}
	return &RegistrationService{
		users:          users,
		tokens:         tokens,
		verifications:  verifications,
		emails:         emails,
		events:         events,
		passwordPolicy: policy,
		cfg:            cfg,
		logger:         log,
		now:            time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	if now != nil {
		s.now = now
	}
	return s
}

// BeginRegistration validates the profile-entry fields and returns the
// trimmed registration data to be carried into the second step. Nothing is
// persisted; submitting the same input again yields the same result.
func (s *RegistrationService) BeginRegistration(_ context.Context, input Step1Input) (domain.RegistrationData, error) {
	var zero domain.RegistrationData

	firstName := strings.TrimSpace(input.FirstName)
	if res := validation.DisplayName(firstName, 0); !res.OK {
		return zero, invalidField("firstName", "please enter your first name")
	}
	lastName := strings.TrimSpace(input.LastName)
	if res := validation.DisplayName(lastName, 0); !res.OK {
		return zero, invalidField("lastName", "please enter your last name")
	}

	email := strings.TrimSpace(input.Email)
	if res := validation.Email(email); !res.OK {
		return zero, invalidField("email", res.Reason)
	}
	if res := validation.Password(input.Password); !res.OK {
		return zero, invalidField("password", res.Reason)
	}
	if res := validation.PasswordMatch(input.Password, input.PasswordConfirmation); !res.OK {
		return zero, invalidField("passwordConfirmation", res.Reason)
	}

	return domain.RegistrationData{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  input.Password,
	}, nil
}

// CompleteRegistration validates the second-step fields, creates the account
// in state pending_email and dispatches the email verification token. On a
// mapped failure the registration data stays intact so the caller can fix the
// offending field and resubmit.
func (s *RegistrationService) CompleteRegistration(ctx context.Context, input Step2Input) (*domain.User, error) {
	now := s.now().UTC()

	birthDate := validation.FormatBirthDate(input.BirthDate)
	if res := validation.BirthDate(birthDate, s.cfg.MinAge, now); !res.OK {
		return nil, invalidField("birthDate", res.Reason)
	}

	phone := strings.TrimSpace(input.PhoneNumber)
	if res := validation.PhoneNumber(phone); !res.OK {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPhoneFormat, res.Reason)
	}

	username := strings.TrimSpace(input.Username)
	if username != "" {
		if res := validation.Username(username); !res.OK {
			return nil, invalidField("username", res.Reason)
		}
		taken, err := s.users.UsernameTaken(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("check username availability: %w", err)
		}
		if taken {
			return nil, ErrUsernameTaken
		}
	}

	if !input.AcceptedTerms {
		return nil, ErrTermsNotAccepted
	}

	data := input.Data
	if _, err := s.users.GetByEmail(ctx, data.Email); err == nil {
		return nil, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	if err := s.passwordPolicy.Validate(data.Password, data.Email, data.FirstName, data.LastName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	passwordHash, err := security.HashPassword(data.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        data.Email,
		PhoneNumber:  &phone,
		PasswordHash: passwordHash,
		PasswordAlgo: "argon2id",
		Status:       domain.UserStatusPendingEmail,
		Profile: domain.Profile{
			FirstName:   data.FirstName,
			LastName:    data.LastName,
			DisplayName: data.DisplayName(),
			BirthDate:   birthDate,
		},
		Settings:  domain.DefaultSettings(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if username != "" {
		user.Profile.Username = &username
	}
	if bio := strings.TrimSpace(input.Bio); bio != "" {
		user.Profile.Bio = &bio
	}

	if err := s.users.Create(ctx, user); err != nil {
		// The availability pre-checks above race with concurrent
		// registrations; the unique constraints settle the tie.
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailAlreadyRegistered
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.dispatchEmailToken(ctx, user, now); err != nil {
		return nil, err
	}

	event := domain.UserRegisteredEvent{
		EventID:      uuid.NewString(),
		UserID:       user.ID,
		Email:        user.Email,
		DisplayName:  user.Profile.DisplayName,
		Phone:        user.PhoneNumber,
		Status:       string(user.Status),
		RegisteredAt: now,
	}
	if err := s.events.PublishUserRegistered(ctx, event); err != nil {
		s.logger.Warn("Failed to publish user registered event",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	return &user, nil
}

func (s *RegistrationService) dispatchEmailToken(ctx context.Context, user domain.User, now time.Time) error {
	if err := s.tokens.DeleteForUser(ctx, user.ID, domain.TokenPurposeEmailVerification); err != nil {
		return fmt.Errorf("drop stale verification tokens: %w", err)
	}

	rawToken, err := security.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}

	token := domain.OneTimeToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(rawToken),
		Purpose:   domain.TokenPurposeEmailVerification,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.EmailTokenTTL),
		Metadata:  map[string]any{"email": user.Email},
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	if err := s.emails.SendVerificationLink(ctx, user.Email, rawToken); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	if err := s.verifications.SetCooldown(ctx, user.ID, domain.VerificationChannelEmail, s.cfg.ResendCooldown); err != nil {
		return fmt.Errorf("arm email cooldown: %w", err)
	}

	return nil
}
