package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/core/port"
	"github.com/FairHead/checktodo-server/internal/infra/config"
	"github.com/FairHead/checktodo-server/internal/infra/logger"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, log *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: log}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if requestID, ok := ctx.Value(logger.RequestIDKey{}).(string); ok && requestID != "" {
		metadata["request_id"] = requestID
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string         `json:"user_id"`
		Email        string         `json:"email"`
		DisplayName  string         `json:"display_name"`
		Phone        *string        `json:"phone,omitempty"`
		Status       string         `json:"status"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		UserID:       event.UserID,
		Email:        event.Email,
		DisplayName:  event.DisplayName,
		Phone:        event.Phone,
		Status:       event.Status,
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, "user.registered", event.UserID, event.RegisteredAt, payload)
}

// PublishUserVerified publishes user.verified events.
func (p *EventPublisher) PublishUserVerified(ctx context.Context, event domain.UserVerifiedEvent) error {
	payload := struct {
		UserID     string         `json:"user_id"`
		Channel    string         `json:"channel"`
		VerifiedAt time.Time      `json:"verified_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		UserID:     event.UserID,
		Channel:    event.Channel,
		VerifiedAt: event.VerifiedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "user.verified", event.UserID, event.VerifiedAt, payload)
}

// PublishPasswordResetRequested publishes user.password.reset_requested events.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		UserID            string         `json:"user_id"`
		RequestedAt       time.Time      `json:"requested_at"`
		MaskedDestination string         `json:"masked_destination"`
		ExpiresAt         time.Time      `json:"expires_at"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		UserID:            event.UserID,
		RequestedAt:       event.RequestedAt.UTC(),
		MaskedDestination: event.MaskedDestination,
		ExpiresAt:         event.ExpiresAt.UTC(),
		Metadata:          event.Metadata,
	}

	return p.publish(ctx, event.EventID, "user.password.reset_requested", event.UserID, event.RequestedAt, payload)
}

// PublishListChanged publishes list.changed events.
func (p *EventPublisher) PublishListChanged(ctx context.Context, event domain.ListChangedEvent) error {
	payload := struct {
		ListID    string         `json:"list_id"`
		ActorID   string         `json:"actor_id"`
		Change    string         `json:"change"`
		MemberID  *string        `json:"member_id,omitempty"`
		ChangedAt time.Time      `json:"changed_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		ListID:    event.ListID,
		ActorID:   event.ActorID,
		Change:    event.Change,
		MemberID:  event.MemberID,
		ChangedAt: event.ChangedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "list.changed", event.ActorID, event.ChangedAt, payload)
}

// PublishItemChanged publishes item.changed events.
func (p *EventPublisher) PublishItemChanged(ctx context.Context, event domain.ItemChangedEvent) error {
	payload := struct {
		ListID    string         `json:"list_id"`
		ItemID    string         `json:"item_id"`
		ActorID   string         `json:"actor_id"`
		Change    string         `json:"change"`
		ChangedAt time.Time      `json:"changed_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		ListID:    event.ListID,
		ItemID:    event.ItemID,
		ActorID:   event.ActorID,
		Change:    event.Change,
		ChangedAt: event.ChangedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "item.changed", event.ActorID, event.ChangedAt, payload)
}

// PublishInvitation publishes invitation events.
func (p *EventPublisher) PublishInvitation(ctx context.Context, event domain.InvitationEvent) error {
	payload := struct {
		InvitationID string         `json:"invitation_id"`
		ListID       string         `json:"list_id"`
		FromUserID   string         `json:"from_user_id"`
		ToUserID     *string        `json:"to_user_id,omitempty"`
		Change       string         `json:"change"`
		ChangedAt    time.Time      `json:"changed_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		InvitationID: event.InvitationID,
		ListID:       event.ListID,
		FromUserID:   event.FromUserID,
		ToUserID:     event.ToUserID,
		Change:       event.Change,
		ChangedAt:    event.ChangedAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, "invitation", event.FromUserID, event.ChangedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
