package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/repository"
)

var invitationColumns = []string{
	"id",
	"list_id",
	"list_name",
	"from_user_id",
	"from_user_name",
	"to_user_id",
	"to_user_name",
	"to_phone_number",
	"status",
	"message",
	"created_at",
	"responded_at",
}

// InvitationRepository implements port.InvitationRepository using PostgreSQL.
type InvitationRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewInvitationRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewInvitationRepository(exec pgExecutor) *InvitationRepository {
	repo := &InvitationRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     time.Now,
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithClock overrides the time source. Intended for tests.
func (r *InvitationRepository) WithClock(now func() time.Time) *InvitationRepository {
	if now != nil {
		r.now = now
	}
	return r
}

// Create inserts an invitation row.
func (r *InvitationRepository) Create(ctx context.Context, inv domain.Invitation) error {
	stmt, args, err := r.builder.Insert("checktodo.invitations").
		Columns(invitationColumns...).
		Values(
			inv.ID,
			inv.ListID,
			inv.ListName,
			inv.FromUserID,
			inv.FromUserName,
			inv.ToUserID,
			inv.ToUserName,
			inv.ToPhoneNumber,
			inv.Status,
			inv.Message,
			inv.CreatedAt,
			inv.RespondedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert invitation sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}

	return nil
}

// GetByID retrieves an invitation by identifier.
func (r *InvitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	stmt, args, err := r.builder.Select(invitationColumns...).
		From("checktodo.invitations").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select invitation sql: %w", err)
	}

	return scanInvitation(r.exec.QueryRow(ctx, stmt, args...))
}

func scanInvitation(row pgx.Row) (*domain.Invitation, error) {
	var (
		inv         domain.Invitation
		toUserID    sql.NullString
		toUserName  sql.NullString
		toPhone     sql.NullString
		message     sql.NullString
		respondedAt *time.Time
	)

	if err := row.Scan(
		&inv.ID,
		&inv.ListID,
		&inv.ListName,
		&inv.FromUserID,
		&inv.FromUserName,
		&toUserID,
		&toUserName,
		&toPhone,
		&inv.Status,
		&message,
		&inv.CreatedAt,
		&respondedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan invitation: %w", err)
	}

	if toUserID.Valid {
		val := toUserID.String
		inv.ToUserID = &val
	}
	if toUserName.Valid {
		val := toUserName.String
		inv.ToUserName = &val
	}
	if toPhone.Valid {
		val := toPhone.String
		inv.ToPhoneNumber = &val
	}
	if message.Valid {
		val := message.String
		inv.Message = &val
	}
	inv.RespondedAt = respondedAt

	return &inv, nil
}

func (r *InvitationRepository) list(ctx context.Context, cond squirrel.Sqlizer) ([]domain.Invitation, error) {
	stmt, args, err := r.builder.Select(invitationColumns...).
		From("checktodo.invitations").
		Where(cond).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select invitations sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invitations: %w", err)
	}

	return invitations, nil
}

// ListPendingForUser returns the user's open invitations, newest first.
func (r *InvitationRepository) ListPendingForUser(ctx context.Context, userID string) ([]domain.Invitation, error) {
	return r.list(ctx, squirrel.Eq{
		"to_user_id": userID,
		"status":     domain.InvitationStatusPending,
	})
}

// ListForList returns every invitation ever sent for a list.
func (r *InvitationRepository) ListForList(ctx context.Context, listID string) ([]domain.Invitation, error) {
	return r.list(ctx, squirrel.Eq{"list_id": listID})
}

// HasPending reports whether an open invitation already exists for the
// list and recipient pair.
func (r *InvitationRepository) HasPending(ctx context.Context, listID, toUserID string) (bool, error) {
	stmt, args, err := r.builder.Select("1").
		From("checktodo.invitations").
		Where(squirrel.Eq{
			"list_id":    listID,
			"to_user_id": toUserID,
			"status":     domain.InvitationStatusPending,
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select pending invitation sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check pending invitation: %w", err)
	}

	return true, nil
}

// UpdateStatus records the recipient's response. Only pending invitations
// can transition, so a double response reports not found.
func (r *InvitationRepository) UpdateStatus(ctx context.Context, id string, status domain.InvitationStatus) error {
	stmt, args, err := r.builder.Update("checktodo.invitations").
		Set("status", status).
		Set("responded_at", r.now().UTC()).
		Where(squirrel.Eq{"id": id, "status": domain.InvitationStatusPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update invitation sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
