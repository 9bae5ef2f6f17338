package rediscache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/k1nderko/goit-pythonweb-hw-12/internal/domain"
	"github.com/k1nderko/goit-pythonweb-hw-12/internal/repository"
)

const (
	idKeyPrefix    = "user:id:"
	emailKeyPrefix = "user:email:"
)

// cachedUser mirrors domain.User with the secret fields included. The domain
// struct hides password and refresh token hashes from JSON serialization, but
// the cache must round-trip them or login would fail on a cache hit.
type cachedUser struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"password_hash"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Role             string    `json:"role"`
	IsActive         bool      `json:"is_active"`
	EmailVerified    bool      `json:"email_verified"`
	AvatarURL        string    `json:"avatar_url"`
	RefreshTokenHash string    `json:"refresh_token_hash"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toCached(u *domain.User) *cachedUser {
	return &cachedUser{
		ID:               u.ID,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Role:             u.Role,
		IsActive:         u.IsActive,
		EmailVerified:    u.EmailVerified,
		AvatarURL:        u.AvatarURL,
		RefreshTokenHash: u.RefreshTokenHash,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func (c *cachedUser) toDomain() *domain.User {
	return &domain.User{
		ID:               c.ID,
		Email:            c.Email,
		PasswordHash:     c.PasswordHash,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		Role:             c.Role,
		IsActive:         c.IsActive,
		EmailVerified:    c.EmailVerified,
		AvatarURL:        c.AvatarURL,
		RefreshTokenHash: c.RefreshTokenHash,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// UserRepository is a read-through cache around another UserRepository.
// Reads are served from Redis when possible and fall back to the inner
// repository on a miss; every mutation invalidates the cached entries so
// credential or status changes take effect immediately. Redis failures are
// non-fatal: the cache degrades to pass-through.
type UserRepository struct {
	inner  repository.UserRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewUserRepository wraps inner with a Redis cache using the given TTL.
func NewUserRepository(inner repository.UserRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *UserRepository {
	return &UserRepository{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Create inserts the user through the inner repository. Nothing is cached
// until the first read.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.inner.Create(ctx, user)
}

// GetByID retrieves a user, preferring the cache.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u := r.lookup(ctx, idKeyPrefix+id); u != nil {
		return u, nil
	}

	u, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.store(ctx, u)
	return u, nil
}

// GetByEmail retrieves a user by email, preferring the cache.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if u := r.lookup(ctx, emailKeyPrefix+email); u != nil {
		return u, nil
	}

	u, err := r.inner.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	r.store(ctx, u)
	return u, nil
}

// Update writes through to the inner repository and evicts the cached user.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := r.inner.Update(ctx, user); err != nil {
		return err
	}
	r.invalidate(ctx, user.ID, user.Email)
	return nil
}

// UpdateRefreshTokenHash writes through and evicts the cached user so stale
// session state never survives a token rotation or revocation.
func (r *UserRepository) UpdateRefreshTokenHash(ctx context.Context, userID, tokenHash string) error {
	if err := r.inner.UpdateRefreshTokenHash(ctx, userID, tokenHash); err != nil {
		return err
	}

	// The email key is unknown here; resolve it from the cached entry
	// before dropping both keys.
	if u := r.lookup(ctx, idKeyPrefix+userID); u != nil {
		r.invalidate(ctx, u.ID, u.Email)
	} else {
		r.invalidate(ctx, userID, "")
	}
	return nil
}

// List is never cached; admin listings always reflect the store.
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	return r.inner.List(ctx, limit, offset)
}

// Delete removes the user and evicts the cached entries.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	var email string
	if u := r.lookup(ctx, idKeyPrefix+id); u != nil {
		email = u.Email
	}

	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id, email)
	return nil
}

// lookup returns the cached user for the key, or nil on miss or error.
func (r *UserRepository) lookup(ctx context.Context, key string) *domain.User {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.WarnContext(ctx, "user cache read failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	var cu cachedUser
	if err := json.Unmarshal(data, &cu); err != nil {
		r.logger.WarnContext(ctx, "user cache entry corrupt, evicting",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		r.client.Del(ctx, key)
		return nil
	}

	return cu.toDomain()
}

// store caches the user under both the ID and email keys.
func (r *UserRepository) store(ctx context.Context, u *domain.User) {
	data, err := json.Marshal(toCached(u))
	if err != nil {
		return
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, idKeyPrefix+u.ID, data, r.ttl)
	pipe.Set(ctx, emailKeyPrefix+u.Email, data, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.WarnContext(ctx, "user cache write failed",
			slog.String("user_id", u.ID),
			slog.String("error", err.Error()),
		)
	}
}

// invalidate drops the cached entries for the user.
func (r *UserRepository) invalidate(ctx context.Context, id, email string) {
	keys := []string{idKeyPrefix + id}
	if email != "" {
		keys = append(keys, emailKeyPrefix+email)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.WarnContext(ctx, "user cache invalidation failed",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
	}
}
