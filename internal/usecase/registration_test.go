package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/infra/config"
	"github.com/FairHead/checktodo-server/internal/repository"
)

const testPassword = "Sup3rSicher!Passwort"

func testVerificationConfig() config.VerificationSettings {
	return config.VerificationSettings{
		CodeLength:     6,
		CodeTTL:        10 * time.Minute,
		EmailTokenTTL:  24 * time.Hour,
		ResendCooldown: 60 * time.Second,
		MinAge:         13,
	}
}

func newRegistrationHarness(t *testing.T, now func() time.Time) (*RegistrationService, *memUserRepo, *memTokenRepo, *memVerificationStore, *captureEmailSender, *captureEvents) {
	t.Helper()

	users := newMemUserRepo()
	tokens := newMemTokenRepo()
	store := newMemVerificationStore(now)
	emails := &captureEmailSender{}
	events := &captureEvents{}

	svc := NewRegistrationService(users, tokens, store, emails, events, nil, testVerificationConfig(), zaptest.NewLogger(t))
	if now != nil {
		svc.WithClock(now)
	}
	return svc, users, tokens, store, emails, events
}

func validStep1() Step1Input {
	return Step1Input{
		FirstName:            "Max",
		LastName:             "Mustermann",
		Email:                "max@example.com",
		Password:             testPassword,
		PasswordConfirmation: testPassword,
	}
}

func TestBeginRegistrationTrimsAndValidates(t *testing.T) {
	svc, _, _, _, _, _ := newRegistrationHarness(t, nil)

	input := validStep1()
	input.FirstName = "  Max "
	input.Email = " max@example.com "

	data, err := svc.BeginRegistration(context.Background(), input)
	if err != nil {
		t.Fatalf("BeginRegistration returned error: %v", err)
	}
	if data.FirstName != "Max" || data.Email != "max@example.com" {
		t.Fatalf("expected trimmed fields, got %+v", data)
	}
	if data.DisplayName() != "Max Mustermann" {
		t.Fatalf("unexpected display name %q", data.DisplayName())
	}
}

func TestBeginRegistrationIsIdempotent(t *testing.T) {
	svc, users, _, _, _, _ := newRegistrationHarness(t, nil)

	first, err := svc.BeginRegistration(context.Background(), validStep1())
	if err != nil {
		t.Fatalf("first call returned error: %v", err)
	}
	second, err := svc.BeginRegistration(context.Background(), validStep1())
	if err != nil {
		t.Fatalf("second call returned error: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical results, got %+v vs %+v", first, second)
	}
	if users.createCalls != 0 {
		t.Fatalf("step one must not persist anything, got %d creates", users.createCalls)
	}
}

func TestBeginRegistrationRejectsInvalidEmailWithoutSideEffects(t *testing.T) {
	svc, users, tokens, _, emails, _ := newRegistrationHarness(t, nil)

	input := validStep1()
	input.Email = "not-an-email"

	_, err := svc.BeginRegistration(context.Background(), input)
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "email" {
		t.Fatalf("expected email validation error, got %v", err)
	}

	if users.createCalls != 0 {
		t.Fatal("no account may be created for invalid input")
	}
	if tokens.live("", domain.TokenPurposeEmailVerification) != 0 || len(emails.verifyTokens) != 0 {
		t.Fatal("no verification dispatch may happen for invalid input")
	}
}

func TestBeginRegistrationRejectsPasswordMismatch(t *testing.T) {
	svc, _, _, _, _, _ := newRegistrationHarness(t, nil)

	input := validStep1()
	input.PasswordConfirmation = testPassword + "x"

	_, err := svc.BeginRegistration(context.Background(), input)
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "passwordConfirmation" {
		t.Fatalf("expected confirmation validation error, got %v", err)
	}
}

func validStep2(data domain.RegistrationData) Step2Input {
	return Step2Input{
		Data:          data,
		BirthDate:     "1990-06-15",
		PhoneNumber:   "+4915112345678",
		Username:      "max_99",
		AcceptedTerms: true,
	}
}

func TestCompleteRegistrationCreatesPendingEmailAccount(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, users, tokens, _, emails, events := newRegistrationHarness(t, func() time.Time { return now })

	data, err := svc.BeginRegistration(context.Background(), validStep1())
	if err != nil {
		t.Fatalf("BeginRegistration returned error: %v", err)
	}

	user, err := svc.CompleteRegistration(context.Background(), validStep2(data))
	if err != nil {
		t.Fatalf("CompleteRegistration returned error: %v", err)
	}

	if user.Status != domain.UserStatusPendingEmail {
		t.Fatalf("expected status pending_email, got %q", user.Status)
	}
	if user.PasswordAlgo != "argon2id" || !strings.HasPrefix(user.PasswordHash, "argon2id$") {
		t.Fatalf("expected argon2id hash, got %q/%q", user.PasswordAlgo, user.PasswordHash)
	}
	if user.Profile.DisplayName != "Max Mustermann" {
		t.Fatalf("unexpected display name %q", user.Profile.DisplayName)
	}
	if user.PhoneNumber == nil || *user.PhoneNumber != "+4915112345678" {
		t.Fatalf("unexpected phone %v", user.PhoneNumber)
	}
	if user.Settings.Language != "de" {
		t.Fatalf("expected default settings, got %+v", user.Settings)
	}

	if stored := users.get(user.ID); stored == nil {
		t.Fatal("account was not persisted")
	}
	if n := tokens.live(user.ID, domain.TokenPurposeEmailVerification); n != 1 {
		t.Fatalf("expected exactly one live verification token, got %d", n)
	}
	if len(emails.verifyEmails) != 1 || emails.verifyEmails[0] != "max@example.com" {
		t.Fatalf("expected one verification email to the account address, got %v", emails.verifyEmails)
	}
	if len(events.registered) != 1 || events.registered[0].UserID != user.ID {
		t.Fatalf("expected one registered event, got %+v", events.registered)
	}
}

func TestCompleteRegistrationDuplicateEmailKeepsDataResubmittable(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, users, _, _, _, _ := newRegistrationHarness(t, func() time.Time { return now })

	users.add(domain.User{ID: "existing", Email: "max@example.com"})

	data, err := svc.BeginRegistration(context.Background(), validStep1())
	if err != nil {
		t.Fatalf("BeginRegistration returned error: %v", err)
	}

	input := validStep2(data)
	if _, err := svc.CompleteRegistration(context.Background(), input); !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Fatalf("expected ErrEmailAlreadyRegistered, got %v", err)
	}

	// The carried data is untouched; a corrected resubmission must work.
	input.Data.Email = "max.other@example.com"
	if _, err := svc.CompleteRegistration(context.Background(), input); err != nil {
		t.Fatalf("resubmission after fixing the email failed: %v", err)
	}
}

func TestCompleteRegistrationMapsInsertConflicts(t *testing.T) {
	// A concurrent registration can win between the availability pre-check
	// and the insert; the constraint violation must still surface as the
	// conflict error, not a generic failure.
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		insertErr error
		want      error
	}{
		{"email", repository.ErrDuplicateEmail, ErrEmailAlreadyRegistered},
		{"username", repository.ErrDuplicateUsername, ErrUsernameTaken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, users, _, _, _, _ := newRegistrationHarness(t, func() time.Time { return now })
			users.createErr = tc.insertErr

			data, err := svc.BeginRegistration(context.Background(), validStep1())
			if err != nil {
				t.Fatalf("BeginRegistration returned error: %v", err)
			}
			if _, err := svc.CompleteRegistration(context.Background(), validStep2(data)); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCompleteRegistrationRejectsTakenUsername(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, users, _, _, _, _ := newRegistrationHarness(t, func() time.Time { return now })

	taken := "max_99"
	users.add(domain.User{ID: "existing", Email: "other@example.com", Profile: domain.Profile{Username: &taken}})

	data, _ := svc.BeginRegistration(context.Background(), validStep1())
	if _, err := svc.CompleteRegistration(context.Background(), validStep2(data)); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestCompleteRegistrationUsernameIsOptional(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, _, _, _, _, _ := newRegistrationHarness(t, func() time.Time { return now })

	data, _ := svc.BeginRegistration(context.Background(), validStep1())
	input := validStep2(data)
	input.Username = ""

	user, err := svc.CompleteRegistration(context.Background(), input)
	if err != nil {
		t.Fatalf("CompleteRegistration returned error: %v", err)
	}
	if user.Profile.Username != nil {
		t.Fatalf("expected no username, got %v", *user.Profile.Username)
	}
}

func TestCompleteRegistrationRejectsInvalidPhone(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, users, _, _, _, _ := newRegistrationHarness(t, func() time.Time { return now })

	data, _ := svc.BeginRegistration(context.Background(), validStep1())
	input := validStep2(data)
	input.PhoneNumber = "015112345678"

	if _, err := svc.CompleteRegistration(context.Background(), input); !errors.Is(err, ErrInvalidPhoneFormat) {
		t.Fatalf("expected ErrInvalidPhoneFormat, got %v", err)
	}
	if users.createCalls != 0 {
		t.Fatal("no account may be created for an invalid phone number")
	}
}

func TestCompleteRegistrationRejectsUnacceptedTerms(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, _, _, _, _, _ := newRegistrationHarness(t, func() time.Time { return now })

	data, _ := svc.BeginRegistration(context.Background(), validStep1())
	input := validStep2(data)
	input.AcceptedTerms = false

	if _, err := svc.CompleteRegistration(context.Background(), input); !errors.Is(err, ErrTermsNotAccepted) {
		t.Fatalf("expected ErrTermsNotAccepted, got %v", err)
	}
}

func TestCompleteRegistrationRejectsUnderageBirthDate(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, _, _, _, _, _ := newRegistrationHarness(t, func() time.Time { return now })

	data, _ := svc.BeginRegistration(context.Background(), validStep1())
	input := validStep2(data)
	input.BirthDate = "20130316" // one day short of 13, raw digits exercise the input mask

	_, err := svc.CompleteRegistration(context.Background(), input)
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "birthDate" {
		t.Fatalf("expected birthDate validation error, got %v", err)
	}
}

func TestCompleteRegistrationRejectsWeakPassword(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, _, _, _, _, _ := newRegistrationHarness(t, func() time.Time { return now })

	// Passes the client-side shape rules but is trivially guessable.
	input := validStep1()
	input.Password = "Password1"
	input.PasswordConfirmation = "Password1"

	data, err := svc.BeginRegistration(context.Background(), input)
	if err != nil {
		t.Fatalf("BeginRegistration returned error: %v", err)
	}

	if _, err := svc.CompleteRegistration(context.Background(), validStep2(data)); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}
