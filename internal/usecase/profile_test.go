package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/repository"
)

func newProfileHarness(t *testing.T) (*ProfileService, *memUserRepo, *memPictureStore) {
	t.Helper()

	users := newMemUserRepo()
	pictures := newMemPictureStore()
	svc := NewProfileService(users, pictures, zaptest.NewLogger(t))
	svc.WithClock(func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) })
	return svc, users, pictures
}

func seedProfileUser(users *memUserRepo) domain.User {
	username := "max_99"
	user := domain.User{
		ID:     "user-1",
		Email:  "max@example.com",
		Status: domain.UserStatusActive,
		Profile: domain.Profile{
			FirstName:   "Max",
			LastName:    "Mustermann",
			DisplayName: "Max Mustermann",
			Username:    &username,
		},
		Settings: domain.DefaultSettings(),
	}
	users.add(user)
	return user
}

func TestUpdateProfileRecomputesDisplayName(t *testing.T) {
	svc, users, _ := newProfileHarness(t)
	user := seedProfileUser(users)

	first := "  Maximilian "
	updated, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{FirstName: &first})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if updated.Profile.FirstName != "Maximilian" {
		t.Fatalf("first name not trimmed, got %q", updated.Profile.FirstName)
	}
	if updated.Profile.DisplayName != "Maximilian Mustermann" {
		t.Fatalf("display name not recomputed, got %q", updated.Profile.DisplayName)
	}
	if stored := users.get(user.ID); stored.Profile.DisplayName != "Maximilian Mustermann" {
		t.Fatalf("display name not persisted, got %q", stored.Profile.DisplayName)
	}
}

func TestUpdateProfileUsernameClearedByEmptyString(t *testing.T) {
	svc, users, _ := newProfileHarness(t)
	user := seedProfileUser(users)

	empty := ""
	updated, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{Username: &empty})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if updated.Profile.Username != nil {
		t.Fatalf("expected username cleared, got %v", updated.Profile.Username)
	}
}

func TestUpdateProfileKeepingOwnUsernameIsNotAConflict(t *testing.T) {
	svc, users, _ := newProfileHarness(t)
	user := seedProfileUser(users)

	same := "max_99"
	if _, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{Username: &same}); err != nil {
		t.Fatalf("resubmitting the own username must succeed, got %v", err)
	}

	other := "erika_m"
	users.add(domain.User{
		ID:      "user-2",
		Email:   "erika@example.com",
		Profile: domain.Profile{Username: &other},
	})
	if _, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{Username: &other}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestUpdateProfileUsernameRace(t *testing.T) {
	// Another user can claim the name between the availability check and
	// the write; the constraint verdict must still read as taken.
	svc, users, _ := newProfileHarness(t)
	user := seedProfileUser(users)
	users.updateProfileErr = repository.ErrDuplicateUsername

	fresh := "erika_m"
	if _, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{Username: &fresh}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestUsernameAvailable(t *testing.T) {
	svc, users, _ := newProfileHarness(t)
	seedProfileUser(users)

	available, err := svc.UsernameAvailable(context.Background(), "freier_name")
	if err != nil {
		t.Fatalf("UsernameAvailable returned error: %v", err)
	}
	if !available {
		t.Fatal("expected the unclaimed username to be available")
	}

	available, err = svc.UsernameAvailable(context.Background(), "max_99")
	if err != nil {
		t.Fatalf("UsernameAvailable returned error: %v", err)
	}
	if available {
		t.Fatal("expected the claimed username to be unavailable")
	}

	var verr *ValidationError
	if _, err := svc.UsernameAvailable(context.Background(), "x"); !errors.As(err, &verr) {
		t.Fatalf("expected a validation error for a malformed username, got %v", err)
	}
}

func TestUpdateSettingsDefaultsLanguage(t *testing.T) {
	svc, users, _ := newProfileHarness(t)
	user := seedProfileUser(users)

	err := svc.UpdateSettings(context.Background(), user.ID, domain.Settings{NotificationsEnabled: false})
	if err != nil {
		t.Fatalf("UpdateSettings returned error: %v", err)
	}

	stored := users.get(user.ID)
	if stored.Settings.NotificationsEnabled {
		t.Fatal("expected notifications disabled")
	}
	if stored.Settings.Language != domain.DefaultSettings().Language {
		t.Fatalf("expected default language, got %q", stored.Settings.Language)
	}
}

func TestUploadPictureRecordsPhotoURL(t *testing.T) {
	svc, users, pictures := newProfileHarness(t)
	user := seedProfileUser(users)

	url, err := svc.UploadPicture(context.Background(), user.ID, "image/jpeg", []byte{0xff, 0xd8})
	if err != nil {
		t.Fatalf("UploadPicture returned error: %v", err)
	}
	if url == "" {
		t.Fatal("expected a public URL")
	}
	if _, ok := pictures.saved[user.ID]; !ok {
		t.Fatal("picture not stored")
	}
	stored := users.get(user.ID)
	if stored.Profile.PhotoURL == nil || *stored.Profile.PhotoURL != url {
		t.Fatalf("photo url not recorded, got %v", stored.Profile.PhotoURL)
	}
}

func TestUploadPictureBestEffortSwallowsFailures(t *testing.T) {
	users := newMemUserRepo()
	user := seedProfileUser(users)
	svc := NewProfileService(users, failingPictureStore{}, zaptest.NewLogger(t))

	svc.UploadPictureBestEffort(context.Background(), user.ID, "image/jpeg", []byte{0xff, 0xd8})

	if stored := users.get(user.ID); stored.Profile.PhotoURL != nil {
		t.Fatalf("failed upload must leave the profile untouched, got %v", stored.Profile.PhotoURL)
	}
}

func TestUploadPictureBestEffortSkipsEmptyData(t *testing.T) {
	svc, users, pictures := newProfileHarness(t)
	user := seedProfileUser(users)

	svc.UploadPictureBestEffort(context.Background(), user.ID, "image/jpeg", nil)

	if len(pictures.saved) != 0 {
		t.Fatal("no data means no upload")
	}
	if stored := users.get(user.ID); stored.Profile.PhotoURL != nil {
		t.Fatalf("profile must be untouched, got %v", stored.Profile.PhotoURL)
	}
}

func TestRegisterFCMTokenPerDevice(t *testing.T) {
	svc, users, _ := newProfileHarness(t)
	user := seedProfileUser(users)

	if err := svc.RegisterFCMToken(context.Background(), user.ID, "device-a", "token-1"); err != nil {
		t.Fatalf("RegisterFCMToken returned error: %v", err)
	}
	if err := svc.RegisterFCMToken(context.Background(), user.ID, "device-b", "token-2"); err != nil {
		t.Fatalf("RegisterFCMToken returned error: %v", err)
	}
	// Re-registering the same device replaces its token.
	if err := svc.RegisterFCMToken(context.Background(), user.ID, "device-a", "token-3"); err != nil {
		t.Fatalf("RegisterFCMToken returned error: %v", err)
	}

	stored := users.get(user.ID)
	if len(stored.FCMTokens) != 2 {
		t.Fatalf("expected two device tokens, got %d", len(stored.FCMTokens))
	}
	if stored.FCMTokens["device-a"].Token != "token-3" {
		t.Fatalf("expected device-a token replaced, got %q", stored.FCMTokens["device-a"].Token)
	}

	var verr *ValidationError
	if err := svc.RegisterFCMToken(context.Background(), user.ID, "device-a", "  "); !errors.As(err, &verr) {
		t.Fatalf("expected a validation error for a blank token, got %v", err)
	}
}
