package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/infra/security"
)

type authHarness struct {
	svc    *AuthService
	users  *memUserRepo
	tokens *memTokenRepo
	emails *captureEmailSender
	events *captureEvents
	broker *SessionBroker
	now    time.Time
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()

	manager, err := security.NewTokenManager("test-secret-0123456789", "checktodo-api", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	h := &authHarness{
		users:  newMemUserRepo(),
		tokens: newMemTokenRepo(),
		emails: &captureEmailSender{},
		events: &captureEvents{},
		broker: NewSessionBroker(),
		now:    time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	manager.WithClock(func() time.Time { return h.now })
	h.svc = NewAuthService(h.users, h.tokens, h.emails, h.events, manager, nil, h.broker, testVerificationConfig(), zaptest.NewLogger(t))
	h.svc.WithClock(func() time.Time { return h.now })
	return h
}

func (h *authHarness) addActiveUser(t *testing.T) domain.User {
	t.Helper()

	hash, err := security.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	user := domain.User{
		ID:            "user-1",
		Email:         "max@example.com",
		EmailVerified: true,
		PhoneVerified: true,
		PasswordHash:  hash,
		PasswordAlgo:  "argon2id",
		Status:        domain.UserStatusActive,
		Profile:       domain.Profile{FirstName: "Max", LastName: "Mustermann", DisplayName: "Max Mustermann"},
	}
	h.users.add(user)
	return user
}

func TestSignInIssuesTokenAndRecordsLogin(t *testing.T) {
	h := newAuthHarness(t)
	user := h.addActiveUser(t)

	result, err := h.svc.SignIn(context.Background(), " max@example.com ", testPassword)
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if result.User.ID != user.ID {
		t.Fatalf("signed in as %q, want %q", result.User.ID, user.ID)
	}
	if result.Token == "" {
		t.Fatal("expected a session token")
	}
	if !result.ExpiresAt.Equal(h.now.Add(time.Hour)) {
		t.Fatalf("unexpected token expiry %v", result.ExpiresAt)
	}

	resolved, err := h.svc.CurrentUser(context.Background(), result.Token)
	if err != nil {
		t.Fatalf("CurrentUser rejected a freshly issued token: %v", err)
	}
	if resolved.ID != user.ID {
		t.Fatalf("token resolved to %q, want %q", resolved.ID, user.ID)
	}

	stored := h.users.get(user.ID)
	if stored.LastLoginAt == nil || !stored.LastLoginAt.Equal(h.now) {
		t.Fatalf("last login not recorded, got %v", stored.LastLoginAt)
	}

	var observed *Identity
	h.broker.Subscribe(func(id *Identity) { observed = id })
	if observed == nil || observed.UserID != user.ID {
		t.Fatalf("broker does not carry the signed-in identity, got %+v", observed)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	h := newAuthHarness(t)
	h.addActiveUser(t)

	if _, err := h.svc.SignIn(context.Background(), "max@example.com", "Falsch3sPasswort!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if h.users.get("user-1").LastLoginAt != nil {
		t.Fatal("failed sign-in must not record a login")
	}
}

func TestSignInUnknownEmailLooksLikeBadPassword(t *testing.T) {
	h := newAuthHarness(t)

	if _, err := h.svc.SignIn(context.Background(), "niemand@example.com", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignInRejectsDisabledAccount(t *testing.T) {
	h := newAuthHarness(t)
	user := h.addActiveUser(t)
	h.users.mutate(user.ID, func(u *domain.User) { u.Status = domain.UserStatusDisabled })

	if _, err := h.svc.SignIn(context.Background(), user.Email, testPassword); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
}

func TestSignOutClearsBrokerIdentity(t *testing.T) {
	h := newAuthHarness(t)
	user := h.addActiveUser(t)

	if _, err := h.svc.SignIn(context.Background(), user.Email, testPassword); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	var observed *Identity
	h.broker.Subscribe(func(id *Identity) { observed = id })
	if observed == nil {
		t.Fatal("expected identity before sign-out")
	}

	h.svc.SignOut(context.Background(), user.ID)
	if observed != nil {
		t.Fatalf("expected nil identity after sign-out, got %+v", observed)
	}
}

func TestCurrentUserRejectsExpiredToken(t *testing.T) {
	h := newAuthHarness(t)
	user := h.addActiveUser(t)

	result, err := h.svc.SignIn(context.Background(), user.Email, testPassword)
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	h.now = h.now.Add(2 * time.Hour)

	if _, err := h.svc.CurrentUser(context.Background(), result.Token); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn for expired token, got %v", err)
	}
}

func TestCurrentUserRejectsGarbageToken(t *testing.T) {
	h := newAuthHarness(t)

	if _, err := h.svc.CurrentUser(context.Background(), "not-a-jwt"); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
}

func TestRequestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	h := newAuthHarness(t)

	if err := h.svc.RequestPasswordReset(context.Background(), "niemand@example.com"); err != nil {
		t.Fatalf("unknown email must succeed silently, got %v", err)
	}
	if len(h.emails.resetTokens) != 0 {
		t.Fatalf("no email may be sent for an unknown address, got %d", len(h.emails.resetTokens))
	}
	if len(h.events.resets) != 0 {
		t.Fatalf("no event may be published for an unknown address, got %d", len(h.events.resets))
	}
}

func TestPasswordResetRoundTrip(t *testing.T) {
	h := newAuthHarness(t)
	user := h.addActiveUser(t)

	if err := h.svc.RequestPasswordReset(context.Background(), user.Email); err != nil {
		t.Fatalf("RequestPasswordReset returned error: %v", err)
	}
	if len(h.emails.resetTokens) != 1 {
		t.Fatalf("expected one reset email, got %d", len(h.emails.resetTokens))
	}
	if len(h.events.resets) != 1 || h.events.resets[0].UserID != user.ID {
		t.Fatalf("expected one reset event for the user, got %+v", h.events.resets)
	}

	rawToken := h.emails.resetTokens[0]
	newPassword := "Neu3sSicheresPasswort!"
	if err := h.svc.ConfirmPasswordReset(context.Background(), rawToken, newPassword); err != nil {
		t.Fatalf("ConfirmPasswordReset returned error: %v", err)
	}

	// The old password is out, the new one signs in.
	if _, err := h.svc.SignIn(context.Background(), user.Email, testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must be rejected, got %v", err)
	}
	if _, err := h.svc.SignIn(context.Background(), user.Email, newPassword); err != nil {
		t.Fatalf("new password must sign in, got %v", err)
	}

	// The token is single use.
	if err := h.svc.ConfirmPasswordReset(context.Background(), rawToken, "Noch3inPasswort!X"); !errors.Is(err, ErrVerificationCodeInvalid) {
		t.Fatalf("expected ErrVerificationCodeInvalid on reuse, got %v", err)
	}
}

func TestConfirmPasswordResetRejectsWeakPassword(t *testing.T) {
	h := newAuthHarness(t)
	user := h.addActiveUser(t)

	if err := h.svc.RequestPasswordReset(context.Background(), user.Email); err != nil {
		t.Fatalf("RequestPasswordReset returned error: %v", err)
	}

	if err := h.svc.ConfirmPasswordReset(context.Background(), h.emails.resetTokens[0], "Password1"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	// The token survives a rejected password and stays redeemable.
	if err := h.svc.ConfirmPasswordReset(context.Background(), h.emails.resetTokens[0], "Neu3sSicheresPasswort!"); err != nil {
		t.Fatalf("token must stay valid after a weak password attempt, got %v", err)
	}
}

func TestConfirmPasswordResetExpiredToken(t *testing.T) {
	h := newAuthHarness(t)
	user := h.addActiveUser(t)

	if err := h.svc.RequestPasswordReset(context.Background(), user.Email); err != nil {
		t.Fatalf("RequestPasswordReset returned error: %v", err)
	}

	h.now = h.now.Add(25 * time.Hour)

	if err := h.svc.ConfirmPasswordReset(context.Background(), h.emails.resetTokens[0], "Neu3sSicheresPasswort!"); !errors.Is(err, ErrVerificationCodeExpired) {
		t.Fatalf("expected ErrVerificationCodeExpired, got %v", err)
	}
}

func TestNewResetRequestInvalidatesOlderToken(t *testing.T) {
	h := newAuthHarness(t)
	user := h.addActiveUser(t)

	if err := h.svc.RequestPasswordReset(context.Background(), user.Email); err != nil {
		t.Fatalf("first request returned error: %v", err)
	}
	if err := h.svc.RequestPasswordReset(context.Background(), user.Email); err != nil {
		t.Fatalf("second request returned error: %v", err)
	}

	if err := h.svc.ConfirmPasswordReset(context.Background(), h.emails.resetTokens[0], "Neu3sSicheresPasswort!"); !errors.Is(err, ErrVerificationCodeInvalid) {
		t.Fatalf("expected the first token to be invalidated, got %v", err)
	}
	if err := h.svc.ConfirmPasswordReset(context.Background(), h.emails.resetTokens[1], "Neu3sSicheresPasswort!"); err != nil {
		t.Fatalf("latest token must redeem, got %v", err)
	}
}
