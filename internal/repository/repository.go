package repository

import (
	"context"

	"github.com/k1nderko/goit-pythonweb-hw-12/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error

	// UpdateRefreshTokenHash overwrites the stored refresh token hash for
	// the user. Pass an empty hash to revoke the current refresh token.
	UpdateRefreshTokenHash(ctx context.Context, userID, tokenHash string) error

	// List returns a page of users and the total user count.
	List(ctx context.Context, limit, offset int) ([]domain.User, int, error)

	// Delete removes a user from the store by their identifier.
	Delete(ctx context.Context, id string) error
}

// ContactRepository defines the interface for contact persistence operations.
// All operations are scoped to the owning user.
type ContactRepository interface {
	// Create inserts a new contact into the store.
	Create(ctx context.Context, contact *domain.Contact) error

	// GetByID retrieves one of the owner's contacts by its identifier.
	GetByID(ctx context.Context, ownerID, id string) (*domain.Contact, error)

	// List returns a page of the owner's contacts and the total count.
	List(ctx context.Context, ownerID string, limit, offset int) ([]domain.Contact, int, error)

	// Search returns a page of the owner's contacts whose first name, last
	// name, or email matches the query, and the total match count.
	Search(ctx context.Context, ownerID, query string, limit, offset int) ([]domain.Contact, int, error)

	// UpcomingBirthdays returns the owner's contacts whose birthday falls
	// within the next days days, including year wrap-around.
	UpcomingBirthdays(ctx context.Context, ownerID string, days int) ([]domain.Contact, error)

	// Update modifies an existing contact in the store.
	Update(ctx context.Context, contact *domain.Contact) error

	// Delete removes one of the owner's contacts by its identifier.
	Delete(ctx context.Context, ownerID, id string) error
}
