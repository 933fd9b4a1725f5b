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

// ItemService manages the entries on a list. Writes are last-write-wins;
// concurrent editors converge through the change events.
type ItemService struct {
	items  port.ItemRepository
	lists  port.ListRepository
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewItemService constructs an item service.
func NewItemService(items port.ItemRepository, lists port.ListRepository, events port.EventPublisher, log *zap.Logger) *ItemService {
	return &ItemService{
		items:  items,
		lists:  lists,
		events: events,
		logger: log,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *ItemService) WithClock(now func() time.Time) *ItemService {
	if now != nil {
		s.now = now
	}
	return s
}

// List returns all items on a list the caller belongs to.
func (s *ItemService) List(ctx context.Context, userID, listID string) ([]domain.Item, error) {
	if _, err := s.member(ctx, userID, listID); err != nil {
		return nil, err
	}

	items, err := s.items.ListForList(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	return items, nil
}

// Add creates a new item on the list.
func (s *ItemService) Add(ctx context.Context, userID, listID string, input domain.CreateItemInput) (*domain.Item, error) {
	member, err := s.member(ctx, userID, listID)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, invalidField("text", "item text is required")
	}

	now := s.now().UTC()
	item := domain.Item{
		ID:          uuid.NewString(),
		ListID:      listID,
		Text:        text,
		AddedBy:     userID,
		AddedByName: member.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	if err := s.refreshCounts(ctx, listID); err != nil {
		return nil, err
	}

	s.publishItemChanged(ctx, listID, item.ID, userID, "added", now)
	return &item, nil
}

// Update edits the item text and/or toggles completion. Completing records
// who completed it and when; reopening clears those fields.
func (s *ItemService) Update(ctx context.Context, userID, listID, itemID string, input domain.UpdateItemInput) (*domain.Item, error) {
	member, err := s.member(ctx, userID, listID)
	if err != nil {
		return nil, err
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("load item: %w", err)
	}
	if item.ListID != listID {
		return nil, ErrItemNotFound
	}

	now := s.now().UTC()
	change := "updated"

	if input.Text != nil {
		text := strings.TrimSpace(*input.Text)
		if text == "" {
			return nil, invalidField("text", "item text is required")
		}
		item.Text = text
	}

	if input.Completed != nil && *input.Completed != item.Completed {
		item.Completed = *input.Completed
		if item.Completed {
			item.CompletedAt = &now
			item.CompletedBy = &userID
			name := member.DisplayName
			item.CompletedByName = &name
			change = "completed"
		} else {
			item.CompletedAt = nil
			item.CompletedBy = nil
			item.CompletedByName = nil
			change = "reopened"
		}
	}

	item.UpdatedAt = now
	if err := s.items.Update(ctx, *item); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("update item: %w", err)
	}

	if change != "updated" {
		if err := s.refreshCounts(ctx, listID); err != nil {
			return nil, err
		}
	}

	s.publishItemChanged(ctx, listID, item.ID, userID, change, now)
	return item, nil
}

// Delete removes an item from the list.
func (s *ItemService) Delete(ctx context.Context, userID, listID, itemID string) error {
	if _, err := s.member(ctx, userID, listID); err != nil {
		return err
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("load item: %w", err)
	}
	if item.ListID != listID {
		return ErrItemNotFound
	}

	if err := s.items.Delete(ctx, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("delete item: %w", err)
	}

	if err := s.refreshCounts(ctx, listID); err != nil {
		return err
	}

	s.publishItemChanged(ctx, listID, itemID, userID, "deleted", s.now().UTC())
	return nil
}

func (s *ItemService) member(ctx context.Context, userID, listID string) (domain.ListMember, error) {
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ListMember{}, ErrListNotFound
		}
		return domain.ListMember{}, fmt.Errorf("load list: %w", err)
	}

	member, ok := list.Members[userID]
	if !ok {
		return domain.ListMember{}, ErrNotListMember
	}
	return member, nil
}

func (s *ItemService) refreshCounts(ctx context.Context, listID string) error {
	total, completed, err := s.items.CountForList(ctx, listID)
	if err != nil {
		return fmt.Errorf("count items: %w", err)
	}
	if err := s.lists.UpdateCounts(ctx, listID, total, completed); err != nil {
		return fmt.Errorf("store item counts: %w", err)
	}
	return nil
}

func (s *ItemService) publishItemChanged(ctx context.Context, listID, itemID, actorID, change string, at time.Time) {
	event := domain.ItemChangedEvent{
		EventID:   uuid.NewString(),
		ListID:    listID,
		ItemID:    itemID,
		ActorID:   actorID,
		Change:    change,
		ChangedAt: at,
	}
	if err := s.events.PublishItemChanged(ctx, event); err != nil {
		s.logger.Warn("Failed to publish item changed event",
			zap.String("list_id", listID),
			zap.String("item_id", itemID),
			zap.String("change", change),
			zap.Error(err),
		)
	}
}
