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
	"github.com/FairHead/checktodo-server/internal/validation"
)

// InvitationService manages list invitations. Recipients are addressed by
// user id, or by phone number for people whose account is found that way.
type InvitationService struct {
	invitations port.InvitationRepository
	lists       port.ListRepository
	users       port.UserRepository
	events      port.EventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewInvitationService constructs an invitation service.
func NewInvitationService(
	invitations port.InvitationRepository,
	lists port.ListRepository,
	users port.UserRepository,
	events port.EventPublisher,
	log *zap.Logger,
) *InvitationService {
	return &InvitationService{
		invitations: invitations,
		lists:       lists,
		users:       users,
		events:      events,
		logger:      log,
		now:         time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *InvitationService) WithClock(now func() time.Time) *InvitationService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create invites a user to join the list as an editor. Owner only.
func (s *InvitationService) Create(ctx context.Context, fromUserID string, input domain.CreateInvitationInput) (*domain.Invitation, error) {
	list, err := s.lists.GetByID(ctx, input.ListID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrListNotFound
		}
		return nil, fmt.Errorf("load list: %w", err)
	}
	if list.OwnerID != fromUserID {
		return nil, ErrNotListOwner
	}

	from, ok := list.Members[fromUserID]
	if !ok {
		return nil, ErrNotListMember
	}

	recipient, phone, err := s.resolveRecipient(ctx, input)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	inv := domain.Invitation{
		ID:           uuid.NewString(),
		ListID:       list.ID,
		ListName:     list.Name,
		FromUserID:   fromUserID,
		FromUserName: from.DisplayName,
		Status:       domain.InvitationStatusPending,
		CreatedAt:    now,
	}
	if msg := strings.TrimSpace(input.Message); msg != "" {
		inv.Message = &msg
	}
	if phone != "" {
		inv.ToPhoneNumber = &phone
	}

	if recipient != nil {
		if _, member := list.Members[recipient.ID]; member {
			return nil, ErrAlreadyMember
		}
		pending, err := s.invitations.HasPending(ctx, list.ID, recipient.ID)
		if err != nil {
			return nil, fmt.Errorf("check pending invitation: %w", err)
		}
		if pending {
			return nil, ErrInvitationPending
		}
		inv.ToUserID = &recipient.ID
		name := recipient.Profile.DisplayName
		inv.ToUserName = &name
	}

	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	s.publishInvitation(ctx, inv, "created", now)
	return &inv, nil
}

// resolveRecipient finds the invitee by user id or phone number. A phone
// number without a matching account still yields an invitation addressed to
// the number; it is claimed when that number registers.
func (s *InvitationService) resolveRecipient(ctx context.Context, input domain.CreateInvitationInput) (*domain.User, string, error) {
	if userID := strings.TrimSpace(input.ToUserID); userID != "" {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, "", ErrUserNotFound
			}
			return nil, "", fmt.Errorf("load recipient: %w", err)
		}
		return user, "", nil
	}

	phone := strings.TrimSpace(input.ToPhoneNumber)
	if res := validation.PhoneNumber(phone); !res.OK {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidPhoneFormat, res.Reason)
	}

	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, phone, nil
		}
		return nil, "", fmt.Errorf("look up recipient by phone: %w", err)
	}
	return user, phone, nil
}

// ListPending returns the caller's open invitations.
func (s *InvitationService) ListPending(ctx context.Context, userID string) ([]domain.Invitation, error) {
	invitations, err := s.invitations.ListPendingForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load pending invitations: %w", err)
	}
	return invitations, nil
}

// Accept joins the caller to the list as an editor and marks the invitation
// accepted.
func (s *InvitationService) Accept(ctx context.Context, userID, invitationID string) (*domain.List, error) {
	inv, err := s.pendingFor(ctx, userID, invitationID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	list, err := s.lists.GetByID(ctx, inv.ListID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrListNotFound
		}
		return nil, fmt.Errorf("load list: %w", err)
	}
	if _, member := list.Members[userID]; member {
		return nil, ErrAlreadyMember
	}

	if err := s.invitations.UpdateStatus(ctx, inv.ID, domain.InvitationStatusAccepted); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	now := s.now().UTC()
	member := domain.ListMember{
		UserID:      userID,
		Role:        domain.MemberRoleEditor,
		DisplayName: user.Profile.DisplayName,
		JoinedAt:    now,
	}
	if err := s.lists.AddMember(ctx, inv.ListID, member); err != nil {
		if errors.Is(err, repository.ErrDuplicateMember) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("join list: %w", err)
	}

	s.publishInvitation(ctx, *inv, "accepted", now)

	event := domain.ListChangedEvent{
		EventID:   uuid.NewString(),
		ListID:    inv.ListID,
		ActorID:   userID,
		Change:    "member_added",
		MemberID:  &userID,
		ChangedAt: now,
	}
	if err := s.events.PublishListChanged(ctx, event); err != nil {
		s.logger.Warn("Failed to publish list changed event",
			zap.String("list_id", inv.ListID),
			zap.Error(err),
		)
	}

	list, err = s.lists.GetByID(ctx, inv.ListID)
	if err != nil {
		return nil, fmt.Errorf("reload list: %w", err)
	}
	return list, nil
}

// Decline marks the invitation declined.
func (s *InvitationService) Decline(ctx context.Context, userID, invitationID string) error {
	inv, err := s.pendingFor(ctx, userID, invitationID)
	if err != nil {
		return err
	}

	if err := s.invitations.UpdateStatus(ctx, inv.ID, domain.InvitationStatusDeclined); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("decline invitation: %w", err)
	}

	s.publishInvitation(ctx, *inv, "declined", s.now().UTC())
	return nil
}

// pendingFor loads the invitation and checks it is pending and addressed to
// the caller.
func (s *InvitationService) pendingFor(ctx context.Context, userID, invitationID string) (*domain.Invitation, error) {
	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if inv.Status != domain.InvitationStatusPending {
		return nil, ErrInvitationNotFound
	}
	if inv.ToUserID == nil || *inv.ToUserID != userID {
		return nil, ErrInvitationNotForUser
	}
	return inv, nil
}

func (s *InvitationService) publishInvitation(ctx context.Context, inv domain.Invitation, change string, at time.Time) {
	event := domain.InvitationEvent{
		EventID:      uuid.NewString(),
		InvitationID: inv.ID,
		ListID:       inv.ListID,
		FromUserID:   inv.FromUserID,
		ToUserID:     inv.ToUserID,
		Change:       change,
		ChangedAt:    at,
	}
	if err := s.events.PublishInvitation(ctx, event); err != nil {
		s.logger.Warn("Failed to publish invitation event",
			zap.String("invitation_id", inv.ID),
			zap.String("change", change),
			zap.Error(err),
		)
	}
}
