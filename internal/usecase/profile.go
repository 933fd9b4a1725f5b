package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/core/port"
	"github.com/FairHead/checktodo-server/internal/repository"
	"github.com/FairHead/checktodo-server/internal/validation"
)

// UpdateProfileInput carries the editable profile fields; nil leaves a field
// unchanged.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Username  *string
	Bio       *string
}

// ProfileService manages the user profile document.
type ProfileService struct {
	users    port.UserRepository
	pictures port.PictureStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewProfileService constructs a profile service.
func NewProfileService(users port.UserRepository, pictures port.PictureStore, log *zap.Logger) *ProfileService {
	return &ProfileService{
		users:    users,
		pictures: pictures,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *ProfileService) WithClock(now func() time.Time) *ProfileService {
	if now != nil {
		s.now = now
	}
	return s
}

// Get returns the full account record for the user.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields and recomputes the display name.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := user.Profile
	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		if res := validation.DisplayName(name, 0); !res.OK {
			return nil, invalidField("firstName", res.Reason)
		}
		profile.FirstName = name
	}
	if input.LastName != nil {
		name := strings.TrimSpace(*input.LastName)
		if res := validation.DisplayName(name, 0); !res.OK {
			return nil, invalidField("lastName", res.Reason)
		}
		profile.LastName = name
	}
	profile.DisplayName = strings.TrimSpace(profile.FirstName + " " + profile.LastName)

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			profile.Username = nil
		} else {
			if res := validation.Username(username); !res.OK {
				return nil, invalidField("username", res.Reason)
			}
			if user.Profile.Username == nil || *user.Profile.Username != username {
				taken, err := s.users.UsernameTaken(ctx, username)
				if err != nil {
					return nil, fmt.Errorf("check username availability: %w", err)
				}
				if taken {
					return nil, ErrUsernameTaken
				}
			}
			profile.Username = &username
		}
	}

	if input.Bio != nil {
		bio := strings.TrimSpace(*input.Bio)
		if bio == "" {
			profile.Bio = nil
		} else {
			profile.Bio = &bio
		}
	}

	if err := s.users.UpdateProfile(ctx, userID, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("store profile: %w", err)
	}

	user.Profile = profile
	return user, nil
}

// UpdateSettings replaces the user's settings document.
func (s *ProfileService) UpdateSettings(ctx context.Context, userID string, settings domain.Settings) error {
	if settings.Language == "" {
		settings.Language = domain.DefaultSettings().Language
	}
	if err := s.users.UpdateSettings(ctx, userID, settings); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("store settings: %w", err)
	}
	return nil
}

// UsernameAvailable reports whether the username passes validation and is
// not yet claimed.
func (s *ProfileService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if res := validation.Username(username); !res.OK {
		return false, invalidField("username", res.Reason)
	}

	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return false, fmt.Errorf("check username availability: %w", err)
	}
	return !taken, nil
}

// UploadPicture stores the picture and records its public URL on the profile.
func (s *ProfileService) UploadPicture(ctx context.Context, userID, contentType string, data []byte) (string, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	url, err := s.pictures.Save(ctx, userID, contentType, data)
	if err != nil {
		return "", fmt.Errorf("store picture: %w", err)
	}

	profile := user.Profile
	profile.PhotoURL = &url
	if err := s.users.UpdateProfile(ctx, userID, profile); err != nil {
		return "", fmt.Errorf("record photo url: %w", err)
	}

	return url, nil
}

// UploadPictureBestEffort stores the picture during onboarding. A failure is
// logged and swallowed so the registration flow proceeds without a photo.
func (s *ProfileService) UploadPictureBestEffort(ctx context.Context, userID, contentType string, data []byte) {
	if len(data) == 0 {
		return
	}
	if _, err := s.UploadPicture(ctx, userID, contentType, data); err != nil {
		s.logger.Warn("Profile picture upload failed, continuing without it",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// RegisterFCMToken stores a device push token on the account.
func (s *ProfileService) RegisterFCMToken(ctx context.Context, userID, deviceID, token string) error {
	if strings.TrimSpace(token) == "" {
		return invalidField("token", "push token is required")
	}
	if strings.TrimSpace(deviceID) == "" {
		return invalidField("deviceId", "device id is required")
	}

	record := domain.FCMToken{
		Token:     token,
		Device:    deviceID,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.users.UpsertFCMToken(ctx, userID, deviceID, record); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("store push token: %w", err)
	}
	return nil
}
