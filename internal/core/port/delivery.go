package port

import "context"

// SMSSender delivers verification codes over SMS.
type SMSSender interface {
	SendCode(ctx context.Context, phoneNumber, code string) error
}

// EmailSender delivers transactional email.
type EmailSender interface {
	SendVerificationLink(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// PictureStore persists uploaded profile pictures and returns a public URL.
type PictureStore interface {
	Save(ctx context.Context, userID string, contentType string, data []byte) (string, error)
	Remove(ctx context.Context, userID string) error
}
