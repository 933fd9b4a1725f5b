package port

import (
	"context"

	"github.com/FairHead/checktodo-server/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishUserVerified(ctx context.Context, event domain.UserVerifiedEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishListChanged(ctx context.Context, event domain.ListChangedEvent) error
	PublishItemChanged(ctx context.Context, event domain.ItemChangedEvent) error
	PublishInvitation(ctx context.Context, event domain.InvitationEvent) error
}
