package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/repository"
)

// TokenRepository implements port.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewTokenRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewTokenRepository(exec pgExecutor) *TokenRepository {
	repo := &TokenRepository{
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
func (r *TokenRepository) WithClock(now func() time.Time) *TokenRepository {
	if now != nil {
		r.now = now
	}
	return r
}

// Create inserts a new one-time token record.
func (r *TokenRepository) Create(ctx context.Context, token domain.OneTimeToken) error {
	metadata, err := marshalMetadata(token.Metadata)
	if err != nil {
		return fmt.Errorf("prepare token metadata: %w", err)
	}

	stmt, args, err := r.builder.Insert("checktodo.one_time_tokens").
		Columns(
			"id",
			"user_id",
			"token_hash",
			"purpose",
			"created_at",
			"expires_at",
			"used_at",
			"metadata",
		).
		Values(
			token.ID,
			token.UserID,
			token.TokenHash,
			token.Purpose,
			token.CreatedAt,
			token.ExpiresAt,
			token.UsedAt,
			metadata,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	return nil
}

// GetByHash retrieves a one-time token by its hashed value.
func (r *TokenRepository) GetByHash(ctx context.Context, hash string) (*domain.OneTimeToken, error) {
	stmt, args, err := r.builder.Select(
		"id",
		"user_id",
		"token_hash",
		"purpose",
		"created_at",
		"expires_at",
		"used_at",
		"metadata",
	).
		From("checktodo.one_time_tokens").
		Where(squirrel.Eq{"token_hash": hash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select token sql: %w", err)
	}

	var (
		token    domain.OneTimeToken
		usedAt   *time.Time
		metadata []byte
	)

	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.Purpose,
		&token.CreatedAt,
		&token.ExpiresAt,
		&usedAt,
		&metadata,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}

	token.UsedAt = usedAt
	meta, err := unmarshalMetadata(metadata)
	if err != nil {
		return nil, fmt.Errorf("decode token metadata: %w", err)
	}
	token.Metadata = meta

	return &token, nil
}

// Consume marks a token as used. It fails when the token is already spent.
func (r *TokenRepository) Consume(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("checktodo.one_time_tokens").
		Set("used_at", r.now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Where("used_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build consume token sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteForUser removes all unspent tokens of a given purpose for a user.
// Used before issuing a replacement so only the newest token is live.
func (r *TokenRepository) DeleteForUser(ctx context.Context, userID string, purpose domain.TokenPurpose) error {
	stmt, args, err := r.builder.Delete("checktodo.one_time_tokens").
		Where(squirrel.Eq{"user_id": userID, "purpose": purpose}).
		Where("used_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete tokens sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete tokens: %w", err)
	}

	return nil
}

func marshalMetadata(meta map[string]any) ([]byte, error) {
	if meta == nil {
		meta = map[string]any{}
	}
	return json.Marshal(meta)
}

func unmarshalMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}
