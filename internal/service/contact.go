package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/k1nderko/goit-pythonweb-hw-12/internal/domain"
	"github.com/k1nderko/goit-pythonweb-hw-12/internal/repository"
	apperrors "github.com/k1nderko/goit-pythonweb-hw-12/pkg/errors"
	"github.com/k1nderko/goit-pythonweb-hw-12/pkg/pagination"
)

// defaultBirthdayWindow is the lookahead used when no days parameter is given.
const defaultBirthdayWindow = 7

// maxBirthdayWindow caps the birthday lookahead to keep the scan bounded.
const maxBirthdayWindow = 366

// ContactService implements the business logic for contact operations. Every
// operation is scoped to the owning user; a contact belonging to someone else
// behaves exactly like a missing one.
type ContactService struct {
	contactRepo repository.ContactRepository
	logger      *slog.Logger
}

// NewContactService creates a new contact service.
func NewContactService(contactRepo repository.ContactRepository, logger *slog.Logger) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
		logger:      logger,
	}
}

// CreateContactInput holds the parameters for creating a contact.
type CreateContactInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Birthday  *time.Time
	Notes     string
}

// UpdateContactInput holds the parameters for updating a contact. Nil fields
// are left unchanged.
type UpdateContactInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Birthday  *time.Time
	Notes     *string
}

// Create adds a new contact for the owner.
func (s *ContactService) Create(ctx context.Context, ownerID string, input CreateContactInput) (*domain.Contact, error) {
	if input.FirstName == "" {
		return nil, apperrors.InvalidInput("first name is required")
	}
	if input.LastName == "" {
		return nil, apperrors.InvalidInput("last name is required")
	}
	if input.Birthday != nil && input.Birthday.After(time.Now().UTC()) {
		return nil, apperrors.InvalidInput("birthday must not be in the future")
	}

	now := time.Now().UTC()
	contact := &domain.Contact{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
		Birthday:  input.Birthday,
		Notes:     input.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}

	s.logger.InfoContext(ctx, "contact created",
		slog.String("owner_id", ownerID),
		slog.String("contact_id", contact.ID),
	)

	return contact, nil
}

// Get retrieves one of the owner's contacts by ID.
func (s *ContactService) Get(ctx context.Context, ownerID, contactID string) (*domain.Contact, error) {
	contact, err := s.contactRepo.GetByID(ctx, ownerID, contactID)
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return contact, nil
}

// List returns a page of the owner's contacts.
func (s *ContactService) List(ctx context.Context, ownerID string, params pagination.Params) (*pagination.Result[domain.Contact], error) {
	contacts, total, err := s.contactRepo.List(ctx, ownerID, params.PerPage, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	result := pagination.NewResult(contacts, total, params)
	return &result, nil
}

// Search returns a page of the owner's contacts matching the query against
// first name, last name, or email.
func (s *ContactService) Search(ctx context.Context, ownerID, query string, params pagination.Params) (*pagination.Result[domain.Contact], error) {
	if query == "" {
		return nil, apperrors.InvalidInput("search query is required")
	}

	contacts, total, err := s.contactRepo.Search(ctx, ownerID, query, params.PerPage, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}

	result := pagination.NewResult(contacts, total, params)
	return &result, nil
}

// UpcomingBirthdays returns the owner's contacts with a birthday in the next
// days days, including the year wrap-around. A non-positive days falls back
// to the default window.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, ownerID string, days int) ([]domain.Contact, error) {
	if days <= 0 {
		days = defaultBirthdayWindow
	}
	if days > maxBirthdayWindow {
		return nil, apperrors.InvalidInput(fmt.Sprintf("days must be at most %d", maxBirthdayWindow))
	}

	contacts, err := s.contactRepo.UpcomingBirthdays(ctx, ownerID, days)
	if err != nil {
		return nil, fmt.Errorf("upcoming birthdays: %w", err)
	}

	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return contacts, nil
}

// Update modifies one of the owner's contacts. Only non-nil input fields are
// applied.
func (s *ContactService) Update(ctx context.Context, ownerID, contactID string, input UpdateContactInput) (*domain.Contact, error) {
	contact, err := s.contactRepo.GetByID(ctx, ownerID, contactID)
	if err != nil {
		return nil, fmt.Errorf("get contact for update: %w", err)
	}

	if input.FirstName != nil {
		if *input.FirstName == "" {
			return nil, apperrors.InvalidInput("first name must not be empty")
		}
		contact.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		if *input.LastName == "" {
			return nil, apperrors.InvalidInput("last name must not be empty")
		}
		contact.LastName = *input.LastName
	}
	if input.Email != nil {
		contact.Email = *input.Email
	}
	if input.Phone != nil {
		contact.Phone = *input.Phone
	}
	if input.Birthday != nil {
		if input.Birthday.After(time.Now().UTC()) {
			return nil, apperrors.InvalidInput("birthday must not be in the future")
		}
		contact.Birthday = input.Birthday
	}
	if input.Notes != nil {
		contact.Notes = *input.Notes
	}

	if err := s.contactRepo.Update(ctx, contact); err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}

	s.logger.InfoContext(ctx, "contact updated",
		slog.String("owner_id", ownerID),
		slog.String("contact_id", contactID),
	)

	return contact, nil
}

// Delete removes one of the owner's contacts.
func (s *ContactService) Delete(ctx context.Context, ownerID, contactID string) error {
	if err := s.contactRepo.Delete(ctx, ownerID, contactID); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}

	s.logger.InfoContext(ctx, "contact deleted",
		slog.String("owner_id", ownerID),
		slog.String("contact_id", contactID),
	)

	return nil
}
