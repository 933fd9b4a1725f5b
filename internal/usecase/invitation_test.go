package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/repository"
)

type invitationHarness struct {
	svc         *InvitationService
	invitations *memInvitationRepo
	lists       *memListRepo
	users       *memUserRepo
	events      *captureEvents
	list        *domain.List
	now         time.Time
}

func newInvitationHarness(t *testing.T) *invitationHarness {
	t.Helper()

	h := &invitationHarness{
		invitations: newMemInvitationRepo(),
		lists:       newMemListRepo(),
		users:       newMemUserRepo(),
		events:      &captureEvents{},
		now:         time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}

	phone := "+4915112345678"
	h.users.add(domain.User{
		ID:      "owner-1",
		Email:   "max@example.com",
		Status:  domain.UserStatusActive,
		Profile: domain.Profile{DisplayName: "Max Mustermann"},
	})
	h.users.add(domain.User{
		ID:          "invitee-1",
		Email:       "erika@example.com",
		PhoneNumber: &phone,
		Status:      domain.UserStatusActive,
		Profile:     domain.Profile{DisplayName: "Erika Musterfrau"},
	})

	list := domain.List{
		ID:      "list-1",
		Name:    "Einkauf",
		OwnerID: "owner-1",
		Members: map[string]domain.ListMember{
			"owner-1": {UserID: "owner-1", Role: domain.MemberRoleOwner, DisplayName: "Max Mustermann", JoinedAt: h.now},
		},
		CreatedAt: h.now,
		UpdatedAt: h.now,
	}
	if err := h.lists.Create(context.Background(), list); err != nil {
		t.Fatalf("seed list returned error: %v", err)
	}
	h.list = &list

	h.svc = NewInvitationService(h.invitations, h.lists, h.users, h.events, zaptest.NewLogger(t))
	h.svc.WithClock(func() time.Time { return h.now })
	return h
}

func (h *invitationHarness) invite(t *testing.T) *domain.Invitation {
	t.Helper()

	inv, err := h.svc.Create(context.Background(), "owner-1", domain.CreateInvitationInput{
		ListID:   h.list.ID,
		ToUserID: "invitee-1",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	return inv
}

func TestCreateInvitationByUserID(t *testing.T) {
	h := newInvitationHarness(t)

	inv, err := h.svc.Create(context.Background(), "owner-1", domain.CreateInvitationInput{
		ListID:   h.list.ID,
		ToUserID: "invitee-1",
		Message:  "  Komm dazu!  ",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if inv.Status != domain.InvitationStatusPending {
		t.Fatalf("expected pending status, got %q", inv.Status)
	}
	if inv.ToUserID == nil || *inv.ToUserID != "invitee-1" {
		t.Fatalf("recipient not resolved, got %v", inv.ToUserID)
	}
	if inv.ToUserName == nil || *inv.ToUserName != "Erika Musterfrau" {
		t.Fatalf("recipient name not recorded, got %v", inv.ToUserName)
	}
	if inv.ListName != "Einkauf" || inv.FromUserName != "Max Mustermann" {
		t.Fatalf("denormalized names missing, got %+v", inv)
	}
	if inv.Message == nil || *inv.Message != "Komm dazu!" {
		t.Fatalf("message not trimmed, got %v", inv.Message)
	}
	if len(h.events.invitations) != 1 || h.events.invitations[0].Change != "created" {
		t.Fatalf("expected one created event, got %+v", h.events.invitations)
	}
}

func TestCreateInvitationByPhoneResolvesAccount(t *testing.T) {
	h := newInvitationHarness(t)

	inv, err := h.svc.Create(context.Background(), "owner-1", domain.CreateInvitationInput{
		ListID:        h.list.ID,
		ToPhoneNumber: "+4915112345678",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if inv.ToUserID == nil || *inv.ToUserID != "invitee-1" {
		t.Fatalf("expected the phone number to resolve to the account, got %v", inv.ToUserID)
	}
	if inv.ToPhoneNumber == nil || *inv.ToPhoneNumber != "+4915112345678" {
		t.Fatalf("expected the number on the invitation, got %v", inv.ToPhoneNumber)
	}
}

func TestCreateInvitationForUnregisteredPhone(t *testing.T) {
	h := newInvitationHarness(t)

	inv, err := h.svc.Create(context.Background(), "owner-1", domain.CreateInvitationInput{
		ListID:        h.list.ID,
		ToPhoneNumber: "+4915199999999",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	// Nobody owns the number yet: the invitation is addressed to it and
	// claimed when that number registers.
	if inv.ToUserID != nil {
		t.Fatalf("expected no resolved user, got %v", inv.ToUserID)
	}
	if inv.ToPhoneNumber == nil || *inv.ToPhoneNumber != "+4915199999999" {
		t.Fatalf("expected the number on the invitation, got %v", inv.ToPhoneNumber)
	}
}

func TestCreateInvitationRejectsMalformedPhone(t *testing.T) {
	h := newInvitationHarness(t)

	if _, err := h.svc.Create(context.Background(), "owner-1", domain.CreateInvitationInput{
		ListID:        h.list.ID,
		ToPhoneNumber: "0151 1234",
	}); !errors.Is(err, ErrInvalidPhoneFormat) {
		t.Fatalf("expected ErrInvalidPhoneFormat, got %v", err)
	}
}

func TestCreateInvitationOwnerOnly(t *testing.T) {
	h := newInvitationHarness(t)

	if _, err := h.svc.Create(context.Background(), "invitee-1", domain.CreateInvitationInput{
		ListID:   h.list.ID,
		ToUserID: "owner-1",
	}); !errors.Is(err, ErrNotListOwner) {
		t.Fatalf("expected ErrNotListOwner, got %v", err)
	}
}

func TestCreateInvitationRejectsExistingMember(t *testing.T) {
	h := newInvitationHarness(t)

	if _, err := h.svc.Create(context.Background(), "owner-1", domain.CreateInvitationInput{
		ListID:   h.list.ID,
		ToUserID: "owner-1",
	}); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
}

func TestCreateInvitationRejectsDuplicatePending(t *testing.T) {
	h := newInvitationHarness(t)
	h.invite(t)

	if _, err := h.svc.Create(context.Background(), "owner-1", domain.CreateInvitationInput{
		ListID:   h.list.ID,
		ToUserID: "invitee-1",
	}); !errors.Is(err, ErrInvitationPending) {
		t.Fatalf("expected ErrInvitationPending, got %v", err)
	}
}

func TestAcceptInvitationJoinsListAsEditor(t *testing.T) {
	h := newInvitationHarness(t)
	inv := h.invite(t)

	list, err := h.svc.Accept(context.Background(), "invitee-1", inv.ID)
	if err != nil {
		t.Fatalf("Accept returned error: %v", err)
	}
	member, ok := list.Members["invitee-1"]
	if !ok || member.Role != domain.MemberRoleEditor {
		t.Fatalf("expected invitee-1 as editor, got %+v", list.Members)
	}

	pending, err := h.svc.ListPending(context.Background(), "invitee-1")
	if err != nil {
		t.Fatalf("ListPending returned error: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("accepted invitation must leave the pending set, got %d", len(pending))
	}

	var accepted, memberAdded bool
	for _, e := range h.events.invitations {
		if e.Change == "accepted" {
			accepted = true
		}
	}
	for _, e := range h.events.listChanges {
		if e.Change == "member_added" && e.MemberID != nil && *e.MemberID == "invitee-1" {
			memberAdded = true
		}
	}
	if !accepted || !memberAdded {
		t.Fatalf("expected accepted and member_added events, got %+v / %+v", h.events.invitations, h.events.listChanges)
	}

	// The invitation is settled.
	if _, err := h.svc.Accept(context.Background(), "invitee-1", inv.ID); !errors.Is(err, ErrInvitationNotFound) {
		t.Fatalf("expected ErrInvitationNotFound on repeat accept, got %v", err)
	}
}

func TestAcceptInvitationWrongRecipient(t *testing.T) {
	h := newInvitationHarness(t)
	inv := h.invite(t)

	if _, err := h.svc.Accept(context.Background(), "owner-1", inv.ID); !errors.Is(err, ErrInvitationNotForUser) {
		t.Fatalf("expected ErrInvitationNotForUser, got %v", err)
	}
}

func TestAcceptInvitationConcurrentJoin(t *testing.T) {
	// The membership pre-check can race with another writer adding the same
	// member; the constraint verdict must map to the conflict error.
	h := newInvitationHarness(t)
	inv := h.invite(t)
	h.lists.addMemberErr = repository.ErrDuplicateMember

	if _, err := h.svc.Accept(context.Background(), "invitee-1", inv.ID); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
}

func TestDeclineInvitation(t *testing.T) {
	h := newInvitationHarness(t)
	inv := h.invite(t)

	if err := h.svc.Decline(context.Background(), "invitee-1", inv.ID); err != nil {
		t.Fatalf("Decline returned error: %v", err)
	}

	stored, err := h.invitations.GetByID(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if stored.Status != domain.InvitationStatusDeclined {
		t.Fatalf("expected declined status, got %q", stored.Status)
	}
	if _, ok := h.list.Members["invitee-1"]; ok {
		t.Fatal("declining must not join the list")
	}

	// Settled invitations cannot be accepted afterwards.
	if _, err := h.svc.Accept(context.Background(), "invitee-1", inv.ID); !errors.Is(err, ErrInvitationNotFound) {
		t.Fatalf("expected ErrInvitationNotFound after decline, got %v", err)
	}
}

func TestListPendingOnlyOwnInvitations(t *testing.T) {
	h := newInvitationHarness(t)
	h.invite(t)

	pending, err := h.svc.ListPending(context.Background(), "invitee-1")
	if err != nil {
		t.Fatalf("ListPending returned error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending invitation, got %d", len(pending))
	}

	other, err := h.svc.ListPending(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("ListPending returned error: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("owner has no pending invitations, got %d", len(other))
	}
}
