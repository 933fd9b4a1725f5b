package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FairHead/checktodo-server/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolationCode = "23505"

// mapUniqueViolation translates a unique-constraint violation into the
// matching repository sentinel. Returns nil for any other error so callers
// can fall through to their generic wrapping.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return nil
	}
	switch pgErr.ConstraintName {
	case "users_email_key":
		return repository.ErrDuplicateEmail
	case "users_username_key":
		return repository.ErrDuplicateUsername
	case "list_members_pkey":
		return repository.ErrDuplicateMember
	default:
		return nil
	}
}

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users       *UserRepository
	Tokens      *TokenRepository
	Lists       *ListRepository
	Items       *ItemRepository
	Invitations *InvitationRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(pool),
		Tokens:      NewTokenRepository(pool),
		Lists:       NewListRepository(pool),
		Items:       NewItemRepository(pool),
		Invitations: NewInvitationRepository(pool),
	}
}
