package domain

import "time"

// MemberRole enumerates the roles a user can hold on a shared list.
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleEditor MemberRole = "editor"
)

// List is a collaborative to-do list owned by one user and shared with members.
type List struct {
	ID             string
	Name           string
	OwnerID        string
	OwnerName      string
	Color          *string
	Members        map[string]ListMember
	ItemCount      int
	CompletedCount int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ListMember records a user's participation in a list.
type ListMember struct {
	UserID      string
	Role        MemberRole
	DisplayName string
	JoinedAt    time.Time
}

// UserList is the per-user index entry pointing at a list the user belongs to.
type UserList struct {
	ListID         string
	ListName       string
	Role           MemberRole
	IsShared       bool
	LastAccessedAt time.Time
}

// Item is a single entry on a list.
type Item struct {
	ID              string
	ListID          string
	Text            string
	Completed       bool
	CompletedAt     *time.Time
	CompletedBy     *string
	CompletedByName *string
	AddedBy         string
	AddedByName     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateListInput carries the caller-supplied fields for list creation.
type CreateListInput struct {
	Name  string
	Color *string
}

// UpdateListInput carries the mutable list fields; nil leaves a field unchanged.
type UpdateListInput struct {
	Name  *string
	Color *string
}

// CreateItemInput carries the caller-supplied fields for adding an item.
type CreateItemInput struct {
	Text string
}

// UpdateItemInput carries the mutable item fields; nil leaves a field unchanged.
type UpdateItemInput struct {
	Text      *string
	Completed *bool
}
