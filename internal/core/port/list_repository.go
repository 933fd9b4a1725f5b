package port

import (
	"context"

	"github.com/FairHead/checktodo-server/internal/core/domain"
)

// ListRepository persists shared to-do lists and their membership.
type ListRepository interface {
	Create(ctx context.Context, list domain.List) error
	GetByID(ctx context.Context, id string) (*domain.List, error)
	ListForUser(ctx context.Context, userID string) ([]domain.UserList, error)
	Update(ctx context.Context, id string, input domain.UpdateListInput) error
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, listID string, member domain.ListMember) error
	RemoveMember(ctx context.Context, listID, userID string) error
	UpdateCounts(ctx context.Context, listID string, itemCount, completedCount int) error
}

// ItemRepository persists list items.
type ItemRepository interface {
	Create(ctx context.Context, item domain.Item) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	ListForList(ctx context.Context, listID string) ([]domain.Item, error)
	Update(ctx context.Context, item domain.Item) error
	Delete(ctx context.Context, id string) error
	CountForList(ctx context.Context, listID string) (total int, completed int, err error)
}

// InvitationRepository persists list invitations.
type InvitationRepository interface {
	Create(ctx context.Context, inv domain.Invitation) error
	GetByID(ctx context.Context, id string) (*domain.Invitation, error)
	ListPendingForUser(ctx context.Context, userID string) ([]domain.Invitation, error)
	ListForList(ctx context.Context, listID string) ([]domain.Invitation, error)
	HasPending(ctx context.Context, listID, toUserID string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.InvitationStatus) error
}
