package repository

import "errors"

// ErrNotFound indicates the requested record does not exist. Repositories
// return it for missing users, lists, items, invitations, and tokens so the
// use case layer can translate it without knowing the backend.
var ErrNotFound = errors.New("repository: not found")

// Unique-constraint sentinels. The use case layer pre-checks for duplicates
// before inserting, but two concurrent writers can both pass the read; the
// database constraint is the arbiter and repositories surface its verdict
// through these so the loser still gets a conflict, not a generic failure.
var (
	// ErrDuplicateEmail indicates another account already owns the e-mail.
	ErrDuplicateEmail = errors.New("repository: email already registered")

	// ErrDuplicateUsername indicates the username is already claimed.
	ErrDuplicateUsername = errors.New("repository: username already taken")

	// ErrDuplicateMember indicates the user is already a member of the list.
	ErrDuplicateMember = errors.New("repository: list member already exists")
)
