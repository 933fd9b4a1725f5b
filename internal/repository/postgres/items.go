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

var itemColumns = []string{
	"id",
	"list_id",
	"text",
	"completed",
	"completed_at",
	"completed_by",
	"completed_by_name",
	"added_by",
	"added_by_name",
	"created_at",
	"updated_at",
}

// ItemRepository implements port.ItemRepository using PostgreSQL.
type ItemRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewItemRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewItemRepository(exec pgExecutor) *ItemRepository {
	repo := &ItemRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *ItemRepository) WithTx(tx pgx.Tx) *ItemRepository {
	if tx == nil {
		return r
	}
	return &ItemRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts an item row.
func (r *ItemRepository) Create(ctx context.Context, item domain.Item) error {
	stmt, args, err := r.builder.Insert("checktodo.items").
		Columns(itemColumns...).
		Values(
			item.ID,
			item.ListID,
			item.Text,
			item.Completed,
			item.CompletedAt,
			item.CompletedBy,
			item.CompletedByName,
			item.AddedBy,
			item.AddedByName,
			item.CreatedAt,
			item.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert item sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}

	return nil
}

// GetByID retrieves an item by identifier.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	stmt, args, err := r.builder.Select(itemColumns...).
		From("checktodo.items").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select item sql: %w", err)
	}

	item, err := scanItem(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, err
	}
	return item, nil
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var (
		item            domain.Item
		completedAt     *time.Time
		completedBy     sql.NullString
		completedByName sql.NullString
	)

	if err := row.Scan(
		&item.ID,
		&item.ListID,
		&item.Text,
		&item.Completed,
		&completedAt,
		&completedBy,
		&completedByName,
		&item.AddedBy,
		&item.AddedByName,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}

	item.CompletedAt = completedAt
	if completedBy.Valid {
		val := completedBy.String
		item.CompletedBy = &val
	}
	if completedByName.Valid {
		val := completedByName.String
		item.CompletedByName = &val
	}

	return &item, nil
}

// ListForList returns all items on a list, oldest first.
func (r *ItemRepository) ListForList(ctx context.Context, listID string) ([]domain.Item, error) {
	stmt, args, err := r.builder.Select(itemColumns...).
		From("checktodo.items").
		Where(squirrel.Eq{"list_id": listID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select items sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	return items, nil
}

// Update replaces the mutable fields of an item row.
func (r *ItemRepository) Update(ctx context.Context, item domain.Item) error {
	stmt, args, err := r.builder.Update("checktodo.items").
		Set("text", item.Text).
		Set("completed", item.Completed).
		Set("completed_at", item.CompletedAt).
		Set("completed_by", item.CompletedBy).
		Set("completed_by_name", item.CompletedByName).
		Set("updated_at", item.UpdatedAt).
		Where(squirrel.Eq{"id": item.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update item sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an item row.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("checktodo.items").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete item sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// CountForList returns the total and completed item counts for a list.
func (r *ItemRepository) CountForList(ctx context.Context, listID string) (int, int, error) {
	stmt, args, err := r.builder.Select(
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE completed)",
	).
		From("checktodo.items").
		Where(squirrel.Eq{"list_id": listID}).
		ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("build count items sql: %w", err)
	}

	var total, completed int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&total, &completed); err != nil {
		return 0, 0, fmt.Errorf("count items: %w", err)
	}

	return total, completed, nil
}
