package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/repository"
)

const (
	defaultVerificationPrefix = "verify"

	fieldUserID        = "user_id"
	fieldChannel       = "channel"
	fieldDestination   = "destination"
	fieldCodeHash      = "code_hash"
	fieldAttempted     = "attempted"
	fieldCreatedAt     = "created_at"
	fieldExpiresAt     = "expires_at"
	fieldResendReadyAt = "resend_ready_at"
)

// VerificationRepository keeps verification sessions and resend cooldowns in
// Redis. Sessions live in hashes keyed by their opaque handle and expire with
// the code; cooldown markers are plain keys whose TTL is the remaining wait.
type VerificationRepository struct {
	client *red.Client
	prefix string
	now    func() time.Time
}

// NewVerificationRepository constructs a verification store with the provided
// Redis client and key prefix.
func NewVerificationRepository(client *red.Client, keyPrefix string) *VerificationRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultVerificationPrefix
	}

	return &VerificationRepository{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (r *VerificationRepository) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

// CreateSession persists a verification session under its handle with a TTL
// matching the code lifetime.
func (r *VerificationRepository) CreateSession(ctx context.Context, session domain.VerificationSession) error {
	if strings.TrimSpace(session.Handle) == "" {
		return errors.New("session handle is required")
	}

	ttl := session.ExpiresAt.Sub(r.now().UTC())
	if ttl <= 0 {
		return errors.New("session is already expired")
	}

	key := r.sessionKey(session.Handle)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		fieldUserID:        session.UserID,
		fieldChannel:       string(session.Channel),
		fieldDestination:   session.Destination,
		fieldCodeHash:      session.CodeHash,
		fieldAttempted:     strconv.FormatBool(session.Attempted),
		fieldCreatedAt:     strconv.FormatInt(session.CreatedAt.Unix(), 10),
		fieldExpiresAt:     strconv.FormatInt(session.ExpiresAt.Unix(), 10),
		fieldResendReadyAt: strconv.FormatInt(session.ResendReadyAt.Unix(), 10),
	})
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store verification session: %w", err)
	}

	return nil
}

// GetSession retrieves the session stored under the handle.
func (r *VerificationRepository) GetSession(ctx context.Context, handle string) (*domain.VerificationSession, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, errors.New("session handle is required")
	}

	values, err := r.client.HGetAll(ctx, r.sessionKey(handle)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall verification session: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	return decodeSession(handle, values)
}

// SpendSession removes the session and returns its final state. A second
// spend of the same handle reports not found, which keeps handles one-shot.
func (r *VerificationRepository) SpendSession(ctx context.Context, handle string) (*domain.VerificationSession, error) {
	session, err := r.GetSession(ctx, handle)
	if err != nil {
		return nil, err
	}

	deleted, err := r.client.Del(ctx, r.sessionKey(handle)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis delete verification session: %w", err)
	}
	if deleted == 0 {
		return nil, repository.ErrNotFound
	}

	return session, nil
}

// CooldownRemaining reports how long the user must still wait before another
// dispatch on the channel. Zero means no active cooldown.
func (r *VerificationRepository) CooldownRemaining(ctx context.Context, userID string, channel domain.VerificationChannel) (time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, r.cooldownKey(userID, channel)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis pttl verification cooldown: %w", err)
	}
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

// SetCooldown arms the resend cooldown for the user and channel.
func (r *VerificationRepository) SetCooldown(ctx context.Context, userID string, channel domain.VerificationChannel, d time.Duration) error {
	if d <= 0 {
		return errors.New("cooldown duration must be positive")
	}

	if err := r.client.Set(ctx, r.cooldownKey(userID, channel), "1", d).Err(); err != nil {
		return fmt.Errorf("redis set verification cooldown: %w", err)
	}

	return nil
}

func (r *VerificationRepository) sessionKey(handle string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, handle)
}

func (r *VerificationRepository) cooldownKey(userID string, channel domain.VerificationChannel) string {
	return fmt.Sprintf("%s:cooldown:%s:%s", r.prefix, channel, userID)
}

func decodeSession(handle string, values map[string]string) (*domain.VerificationSession, error) {
	createdAt, err := parseUnix(values[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	expiresAt, err := parseUnix(values[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	resendReadyAt, err := parseUnix(values[fieldResendReadyAt])
	if err != nil {
		return nil, fmt.Errorf("parse resend_ready_at: %w", err)
	}

	attempted := values[fieldAttempted] == "true"

	return &domain.VerificationSession{
		Handle:        handle,
		UserID:        values[fieldUserID],
		Channel:       domain.VerificationChannel(values[fieldChannel]),
		Destination:   values[fieldDestination],
		CodeHash:      values[fieldCodeHash],
		Attempted:     attempted,
		CreatedAt:     createdAt,
		ExpiresAt:     expiresAt,
		ResendReadyAt: resendReadyAt,
	}, nil
}

func parseUnix(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v, 0).UTC(), nil
}
