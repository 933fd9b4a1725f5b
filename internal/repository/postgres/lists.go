package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/repository"
)

// ListRepository implements port.ListRepository using PostgreSQL.
type ListRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewListRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewListRepository(exec pgExecutor) *ListRepository {
	repo := &ListRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *ListRepository) WithTx(tx pgx.Tx) *ListRepository {
	if tx == nil {
		return r
	}
	return &ListRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a list row together with its member rows.
func (r *ListRepository) Create(ctx context.Context, list domain.List) error {
	stmt, args, err := r.builder.Insert("checktodo.lists").
		Columns(
			"id",
			"name",
			"owner_id",
			"owner_name",
			"color",
			"item_count",
			"completed_count",
			"created_at",
			"updated_at",
		).
		Values(
			list.ID,
			list.Name,
			list.OwnerID,
			list.OwnerName,
			list.Color,
			list.ItemCount,
			list.CompletedCount,
			list.CreatedAt,
			list.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert list sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert list: %w", err)
	}

	for _, member := range list.Members {
		if err := r.AddMember(ctx, list.ID, member); err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a list with its membership map.
func (r *ListRepository) GetByID(ctx context.Context, id string) (*domain.List, error) {
	stmt, args, err := r.builder.Select(
		"id",
		"name",
		"owner_id",
		"owner_name",
		"color",
		"item_count",
		"completed_count",
		"created_at",
		"updated_at",
	).
		From("checktodo.lists").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select list sql: %w", err)
	}

	var (
		list  domain.List
		color sql.NullString
	)

	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&list.ID,
		&list.Name,
		&list.OwnerID,
		&list.OwnerName,
		&color,
		&list.ItemCount,
		&list.CompletedCount,
		&list.CreatedAt,
		&list.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan list: %w", err)
	}

	if color.Valid {
		val := color.String
		list.Color = &val
	}

	members, err := r.members(ctx, id)
	if err != nil {
		return nil, err
	}
	list.Members = members

	return &list, nil
}

func (r *ListRepository) members(ctx context.Context, listID string) (map[string]domain.ListMember, error) {
	stmt, args, err := r.builder.Select(
		"user_id",
		"role",
		"display_name",
		"joined_at",
	).
		From("checktodo.list_members").
		Where(squirrel.Eq{"list_id": listID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select members sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := make(map[string]domain.ListMember)
	for rows.Next() {
		var member domain.ListMember
		if err := rows.Scan(
			&member.UserID,
			&member.Role,
			&member.DisplayName,
			&member.JoinedAt,
		); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members[member.UserID] = member
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	return members, nil
}

// ListForUser returns index entries for every list the user belongs to,
// most recently updated first.
func (r *ListRepository) ListForUser(ctx context.Context, userID string) ([]domain.UserList, error) {
	stmt, args, err := r.builder.Select(
		"l.id",
		"l.name",
		"m.role",
		"(SELECT COUNT(*) FROM checktodo.list_members x WHERE x.list_id = l.id) > 1 AS is_shared",
		"l.updated_at",
	).
		From("checktodo.lists l").
		Join("checktodo.list_members m ON m.list_id = l.id").
		Where(squirrel.Eq{"m.user_id": userID}).
		OrderBy("l.updated_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user lists sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query user lists: %w", err)
	}
	defer rows.Close()

	var entries []domain.UserList
	for rows.Next() {
		var entry domain.UserList
		if err := rows.Scan(
			&entry.ListID,
			&entry.ListName,
			&entry.Role,
			&entry.IsShared,
			&entry.LastAccessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user list: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user lists: %w", err)
	}

	return entries, nil
}

// Update applies the non-nil fields of the input to a list row.
func (r *ListRepository) Update(ctx context.Context, id string, input domain.UpdateListInput) error {
	query := r.builder.Update("checktodo.lists").
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})
	if input.Name != nil {
		query = query.Set("name", *input.Name)
	}
	if input.Color != nil {
		query = query.Set("color", *input.Color)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update list sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update list: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a list. Member and item rows cascade at the schema level.
func (r *ListRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("checktodo.lists").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete list sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// AddMember inserts a membership row.
func (r *ListRepository) AddMember(ctx context.Context, listID string, member domain.ListMember) error {
	stmt, args, err := r.builder.Insert("checktodo.list_members").
		Columns("list_id", "user_id", "role", "display_name", "joined_at").
		Values(listID, member.UserID, member.Role, member.DisplayName, member.JoinedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert member sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("insert member: %w", err)
	}

	return nil
}

// RemoveMember deletes a membership row.
func (r *ListRepository) RemoveMember(ctx context.Context, listID, userID string) error {
	stmt, args, err := r.builder.Delete("checktodo.list_members").
		Where(squirrel.Eq{"list_id": listID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete member sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateCounts refreshes the denormalized item counters on a list.
func (r *ListRepository) UpdateCounts(ctx context.Context, listID string, itemCount, completedCount int) error {
	stmt, args, err := r.builder.Update("checktodo.lists").
		Set("item_count", itemCount).
		Set("completed_count", completedCount).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": listID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update counts sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update counts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
