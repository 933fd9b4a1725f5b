package postgres

import (
	"context"
	"database/sql"
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

var userColumns = []string{
	"id",
	"email",
	"email_verified",
	"phone_number",
	"phone_verified",
	"password_hash",
	"password_algo",
	"status",
	"first_name",
	"last_name",
	"display_name",
	"username",
	"photo_url",
	"birth_date",
	"bio",
	"settings",
	"fcm_tokens",
	"created_at",
	"updated_at",
	"last_login_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	repo := &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	settings, err := json.Marshal(user.Settings)
	if err != nil {
		return fmt.Errorf("marshal user settings: %w", err)
	}

	fcmTokens, err := marshalFCMTokens(user.FCMTokens)
	if err != nil {
		return fmt.Errorf("marshal fcm tokens: %w", err)
	}

	stmt, args, err := r.builder.Insert("checktodo.users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.Email,
			user.EmailVerified,
			user.PhoneNumber,
			user.PhoneVerified,
			user.PasswordHash,
			user.PasswordAlgo,
			user.Status,
			user.Profile.FirstName,
			user.Profile.LastName,
			user.Profile.DisplayName,
			user.Profile.Username,
			user.Profile.PhotoURL,
			user.Profile.BirthDate,
			user.Profile.Bio,
			settings,
			fcmTokens,
			user.CreatedAt,
			user.UpdatedAt,
			user.LastLoginAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by e-mail address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

// GetByPhone retrieves a user by phone number.
func (r *UserRepository) GetByPhone(ctx context.Context, phoneNumber string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"phone_number": phoneNumber})
}

func (r *UserRepository) getOne(ctx context.Context, cond squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("checktodo.users").
		Where(cond).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user        domain.User
		phone       sql.NullString
		username    sql.NullString
		photoURL    sql.NullString
		bio         sql.NullString
		settings    []byte
		fcmTokens   []byte
		lastLoginAt *time.Time
	)

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.EmailVerified,
		&phone,
		&user.PhoneVerified,
		&user.PasswordHash,
		&user.PasswordAlgo,
		&user.Status,
		&user.Profile.FirstName,
		&user.Profile.LastName,
		&user.Profile.DisplayName,
		&username,
		&photoURL,
		&user.Profile.BirthDate,
		&bio,
		&settings,
		&fcmTokens,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLoginAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if phone.Valid {
		val := phone.String
		user.PhoneNumber = &val
	}
	if username.Valid {
		val := username.String
		user.Profile.Username = &val
	}
	if photoURL.Valid {
		val := photoURL.String
		user.Profile.PhotoURL = &val
	}
	if bio.Valid {
		val := bio.String
		user.Profile.Bio = &val
	}
	user.LastLoginAt = lastLoginAt

	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &user.Settings); err != nil {
			return nil, fmt.Errorf("unmarshal user settings: %w", err)
		}
	}
	if len(fcmTokens) > 0 {
		if err := json.Unmarshal(fcmTokens, &user.FCMTokens); err != nil {
			return nil, fmt.Errorf("unmarshal fcm tokens: %w", err)
		}
	}

	return &user, nil
}

// UsernameTaken reports whether any user already holds the given username.
func (r *UserRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	stmt, args, err := r.builder.
		Select("1").
		From("checktodo.users").
		Where(squirrel.Eq{"username": username}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select username sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check username: %w", err)
	}

	return true, nil
}

// UpdateStatus transitions a user account to a new status.
func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error {
	return r.update(ctx, id, map[string]any{"status": status})
}

// SetEmailVerified marks a user's e-mail address as verified.
func (r *UserRepository) SetEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error {
	return r.update(ctx, id, map[string]any{
		"email_verified": true,
		"updated_at":     verifiedAt,
	})
}

// SetPhoneVerified marks a user's phone number as verified.
func (r *UserRepository) SetPhoneVerified(ctx context.Context, id string, verifiedAt time.Time) error {
	return r.update(ctx, id, map[string]any{
		"phone_verified": true,
		"updated_at":     verifiedAt,
	})
}

// UpdateProfile replaces the user's profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, profile domain.Profile) error {
	return r.update(ctx, id, map[string]any{
		"first_name":   profile.FirstName,
		"last_name":    profile.LastName,
		"display_name": profile.DisplayName,
		"username":     profile.Username,
		"photo_url":    profile.PhotoURL,
		"birth_date":   profile.BirthDate,
		"bio":          profile.Bio,
	})
}

// UpdateSettings replaces the user's settings document.
func (r *UserRepository) UpdateSettings(ctx context.Context, id string, settings domain.Settings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal user settings: %w", err)
	}
	return r.update(ctx, id, map[string]any{"settings": payload})
}

// UpdatePassword replaces the stored credential hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash, passwordAlgo string) error {
	return r.update(ctx, id, map[string]any{
		"password_hash": passwordHash,
		"password_algo": passwordAlgo,
	})
}

// UpdateLastLogin records the time of a successful sign-in.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, map[string]any{"last_login_at": at})
}

// UpsertFCMToken stores a device push token keyed by device identifier.
func (r *UserRepository) UpsertFCMToken(ctx context.Context, id string, deviceID string, token domain.FCMToken) error {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if user.FCMTokens == nil {
		user.FCMTokens = make(map[string]domain.FCMToken, 1)
	}
	user.FCMTokens[deviceID] = token

	payload, err := marshalFCMTokens(user.FCMTokens)
	if err != nil {
		return fmt.Errorf("marshal fcm tokens: %w", err)
	}
	return r.update(ctx, id, map[string]any{"fcm_tokens": payload})
}

func (r *UserRepository) update(ctx context.Context, id string, fields map[string]any) error {
	stmt, args, err := r.builder.Update("checktodo.users").
		SetMap(fields).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func marshalFCMTokens(tokens map[string]domain.FCMToken) ([]byte, error) {
	if tokens == nil {
		tokens = map[string]domain.FCMToken{}
	}
	return json.Marshal(tokens)
}
