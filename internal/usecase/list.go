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
	"github.com/FairHead/checktodo-server/internal/repository"
)

// ListService manages shared to-do lists and their membership.
type ListService struct {
	lists  port.ListRepository
	users  port.UserRepository
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewListService constructs a list service.
func NewListService(lists port.ListRepository, users port.UserRepository, events port.EventPublisher, log *zap.Logger) *ListService {
	return &ListService{
		lists:  lists,
		users:  users,
		events: events,
		logger: log,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *ListService) WithClock(now func() time.Time) *ListService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create makes a new list with the caller as owner and sole member.
func (s *ListService) Create(ctx context.Context, ownerID string, input domain.CreateListInput) (*domain.List, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalidField("name", "list name is required")
	}

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load owner: %w", err)
	}

	now := s.now().UTC()
	list := domain.List{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   owner.ID,
		OwnerName: owner.Profile.DisplayName,
		Color:     input.Color,
		Members: map[string]domain.ListMember{
			owner.ID: {
				UserID:      owner.ID,
				Role:        domain.MemberRoleOwner,
				DisplayName: owner.Profile.DisplayName,
				JoinedAt:    now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.lists.Create(ctx, list); err != nil {
		return nil, fmt.Errorf("create list: %w", err)
	}

	s.publishListChanged(ctx, list.ID, ownerID, "created", nil, now)
	return &list, nil
}

// Get returns the list when the caller is a member.
func (s *ListService) Get(ctx context.Context, userID, listID string) (*domain.List, error) {
	list, _, err := s.memberList(ctx, userID, listID)
	return list, err
}

// ListForUser returns the caller's list index.
func (s *ListService) ListForUser(ctx context.Context, userID string) ([]domain.UserList, error) {
	entries, err := s.lists.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user lists: %w", err)
	}
	return entries, nil
}

// Update renames or recolors a list. Any member may edit.
func (s *ListService) Update(ctx context.Context, userID, listID string, input domain.UpdateListInput) (*domain.List, error) {
	if _, _, err := s.memberList(ctx, userID, listID); err != nil {
		return nil, err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, invalidField("name", "list name is required")
	}
	if input.Name == nil && input.Color == nil {
		return s.lists.GetByID(ctx, listID)
	}

	if err := s.lists.Update(ctx, listID, input); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrListNotFound
		}
		return nil, fmt.Errorf("update list: %w", err)
	}

	if input.Name != nil {
		s.publishListChanged(ctx, listID, userID, "renamed", nil, s.now().UTC())
	}

	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("reload list: %w", err)
	}
	return list, nil
}

// Delete removes the list. Owner only.
func (s *ListService) Delete(ctx context.Context, userID, listID string) error {
	list, _, err := s.memberList(ctx, userID, listID)
	if err != nil {
		return err
	}
	if list.OwnerID != userID {
		return ErrNotListOwner
	}

	if err := s.lists.Delete(ctx, listID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrListNotFound
		}
		return fmt.Errorf("delete list: %w", err)
	}

	s.publishListChanged(ctx, listID, userID, "deleted", nil, s.now().UTC())
	return nil
}

// Leave removes the caller from a list they do not own.
func (s *ListService) Leave(ctx context.Context, userID, listID string) error {
	list, _, err := s.memberList(ctx, userID, listID)
	if err != nil {
		return err
	}
	if list.OwnerID == userID {
		return ErrOwnerCannotLeave
	}

	if err := s.lists.RemoveMember(ctx, listID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotListMember
		}
		return fmt.Errorf("leave list: %w", err)
	}

	s.publishListChanged(ctx, listID, userID, "member_left", &userID, s.now().UTC())
	return nil
}

// RemoveMember removes another member from the list. Owner only; the owner
// cannot remove themselves (delete the list instead).
func (s *ListService) RemoveMember(ctx context.Context, userID, listID, memberID string) error {
	list, _, err := s.memberList(ctx, userID, listID)
	if err != nil {
		return err
	}
	if list.OwnerID != userID {
		return ErrNotListOwner
	}
	if memberID == userID {
		return ErrOwnerCannotLeave
	}
	if _, ok := list.Members[memberID]; !ok {
		return ErrNotListMember
	}

	if err := s.lists.RemoveMember(ctx, listID, memberID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotListMember
		}
		return fmt.Errorf("remove member: %w", err)
	}

	s.publishListChanged(ctx, listID, userID, "member_removed", &memberID, s.now().UTC())
	return nil
}

// memberList loads the list and checks the caller's membership.
func (s *ListService) memberList(ctx context.Context, userID, listID string) (*domain.List, domain.ListMember, error) {
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ListMember{}, ErrListNotFound
		}
		return nil, domain.ListMember{}, fmt.Errorf("load list: %w", err)
	}

	member, ok := list.Members[userID]
	if !ok {
		return nil, domain.ListMember{}, ErrNotListMember
	}
	return list, member, nil
}

func (s *ListService) publishListChanged(ctx context.Context, listID, actorID, change string, memberID *string, at time.Time) {
	event := domain.ListChangedEvent{
		EventID:   uuid.NewString(),
		ListID:    listID,
		ActorID:   actorID,
		Change:    change,
		MemberID:  memberID,
		ChangedAt: at,
	}
	if err := s.events.PublishListChanged(ctx, event); err != nil {
		s.logger.Warn("Failed to publish list changed event",
			zap.String("list_id", listID),
			zap.String("change", change),
			zap.Error(err),
		)
	}
}
