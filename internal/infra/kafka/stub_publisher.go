package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"user_id":       event.UserID,
		"email":         event.Email,
		"display_name":  event.DisplayName,
		"phone":         event.Phone,
		"status":        event.Status,
		"registered_at": event.RegisteredAt,
		"metadata":      event.Metadata,
	}
	p.logEvent("user.registered", event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishUserVerified logs user.verified events.
func (p *StubPublisher) PublishUserVerified(_ context.Context, event domain.UserVerifiedEvent) error {
	payload := map[string]any{
		"user_id":     event.UserID,
		"channel":     event.Channel,
		"verified_at": event.VerifiedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("user.verified", event.UserID, event.VerifiedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs user.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"user_id":            event.UserID,
		"requested_at":       event.RequestedAt,
		"masked_destination": event.MaskedDestination,
		"expires_at":         event.ExpiresAt,
		"metadata":           event.Metadata,
	}
	p.logEvent("user.password.reset_requested", event.UserID, event.RequestedAt, payload)
	return nil
}

// PublishListChanged logs list.changed events.
func (p *StubPublisher) PublishListChanged(_ context.Context, event domain.ListChangedEvent) error {
	payload := map[string]any{
		"list_id":    event.ListID,
		"actor_id":   event.ActorID,
		"change":     event.Change,
		"member_id":  event.MemberID,
		"changed_at": event.ChangedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("list.changed", event.ActorID, event.ChangedAt, payload)
	return nil
}

// PublishItemChanged logs item.changed events.
func (p *StubPublisher) PublishItemChanged(_ context.Context, event domain.ItemChangedEvent) error {
	payload := map[string]any{
		"list_id":    event.ListID,
		"item_id":    event.ItemID,
		"actor_id":   event.ActorID,
		"change":     event.Change,
		"changed_at": event.ChangedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("item.changed", event.ActorID, event.ChangedAt, payload)
	return nil
}

// PublishInvitation logs invitation events.
func (p *StubPublisher) PublishInvitation(_ context.Context, event domain.InvitationEvent) error {
	payload := map[string]any{
		"invitation_id": event.InvitationID,
		"list_id":       event.ListID,
		"from_user_id":  event.FromUserID,
		"to_user_id":    event.ToUserID,
		"change":        event.Change,
		"changed_at":    event.ChangedAt,
		"metadata":      event.Metadata,
	}
	p.logEvent("invitation", event.FromUserID, event.ChangedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
