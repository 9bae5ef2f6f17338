package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/k1nderko/goit-pythonweb-hw-12/internal/domain"
	"github.com/k1nderko/goit-pythonweb-hw-12/pkg/database"
	apperrors "github.com/k1nderko/goit-pythonweb-hw-12/pkg/errors"
)

// ContactRepository implements repository.ContactRepository using PostgreSQL.
type ContactRepository struct {
	db database.DBTX
}

// NewContactRepository creates a new PostgreSQL-backed contact repository.
func NewContactRepository(db database.DBTX) *ContactRepository {
	return &ContactRepository{db: db}
}

const contactColumns = `id, owner_id, first_name, last_name, email, phone, birthday, notes, created_at, updated_at`

// Create inserts a new contact into the database.
func (r *ContactRepository) Create(ctx context.Context, c *domain.Contact) error {
	query := `
		INSERT INTO contacts (id, owner_id, first_name, last_name, email, phone, birthday, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.OwnerID,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		c.Birthday,
		c.Notes,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("contact", "email", c.Email)
		}
		return fmt.Errorf("insert contact: %w", err)
	}

	return nil
}

// GetByID retrieves one of the owner's contacts by its ID.
func (r *ContactRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND owner_id = $2`

	var c domain.Contact
	err := r.db.QueryRow(ctx, query, id, ownerID).Scan(
		&c.ID,
		&c.OwnerID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&c.Birthday,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan contact: %w", err)
	}

	return &c, nil
}

// List returns a page of the owner's contacts ordered by creation time.
func (r *ContactRepository) List(ctx context.Context, ownerID string, limit, offset int) ([]domain.Contact, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM contacts WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}

	query := `SELECT ` + contactColumns + ` FROM contacts WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	contacts, err := collectContacts(rows)
	if err != nil {
		return nil, 0, err
	}

	return contacts, total, nil
}

// Search returns a page of the owner's contacts whose first name, last name,
// or email matches the query (case-insensitive substring match).
func (r *ContactRepository) Search(ctx context.Context, ownerID, query string, limit, offset int) ([]domain.Contact, int, error) {
	pattern := "%" + query + "%"

	var total int
	countQuery := `
		SELECT COUNT(*) FROM contacts
		WHERE owner_id = $1
		  AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)`
	if err := r.db.QueryRow(ctx, countQuery, ownerID, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contact matches: %w", err)
	}

	searchQuery := `
		SELECT ` + contactColumns + ` FROM contacts
		WHERE owner_id = $1
		  AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)
		ORDER BY first_name, last_name
		LIMIT $3 OFFSET $4`

	rows, err := r.db.Query(ctx, searchQuery, ownerID, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search contacts: %w", err)
	}
	defer rows.Close()

	contacts, err := collectContacts(rows)
	if err != nil {
		return nil, 0, err
	}

	return contacts, total, nil
}

// UpcomingBirthdays returns the owner's contacts whose birthday falls within
// the next days days. Birthdays are matched on month and day, so leap-day
// dates compare correctly in every year, and the window wraps across the
// year boundary so late-December birthdays surface in early January queries.
func (r *ContactRepository) UpcomingBirthdays(ctx context.Context, ownerID string, days int) ([]domain.Contact, error) {
	query := `
		SELECT ` + contactColumns + ` FROM contacts
		WHERE owner_id = $1
		  AND birthday IS NOT NULL
		  AND (
		    CASE WHEN to_char(CURRENT_DATE + $2::int, 'MMDD') >= to_char(CURRENT_DATE, 'MMDD') THEN
		      to_char(birthday, 'MMDD') BETWEEN to_char(CURRENT_DATE, 'MMDD') AND to_char(CURRENT_DATE + $2::int, 'MMDD')
		    ELSE
		      to_char(birthday, 'MMDD') >= to_char(CURRENT_DATE, 'MMDD')
		      OR to_char(birthday, 'MMDD') <= to_char(CURRENT_DATE + $2::int, 'MMDD')
		    END
		  )
		ORDER BY EXTRACT(MONTH FROM birthday), EXTRACT(DAY FROM birthday)`

	rows, err := r.db.Query(ctx, query, ownerID, days)
	if err != nil {
		return nil, fmt.Errorf("upcoming birthdays: %w", err)
	}
	defer rows.Close()

	return collectContacts(rows)
}

// Update modifies an existing contact in the database.
func (r *ContactRepository) Update(ctx context.Context, c *domain.Contact) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE contacts
		SET first_name = $1, last_name = $2, email = $3, phone = $4,
		    birthday = $5, notes = $6, updated_at = $7
		WHERE id = $8 AND owner_id = $9`

	ct, err := r.db.Exec(ctx, query,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		c.Birthday,
		c.Notes,
		c.UpdatedAt,
		c.ID,
		c.OwnerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("contact", "email", c.Email)
		}
		return fmt.Errorf("update contact: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("contact", c.ID)
	}

	return nil
}

// Delete removes one of the owner's contacts by its ID.
func (r *ContactRepository) Delete(ctx context.Context, ownerID, id string) error {
	query := `DELETE FROM contacts WHERE id = $1 AND owner_id = $2`

	ct, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("contact", id)
	}

	return nil
}

// collectContacts scans all rows into a contact slice.
func collectContacts(rows pgx.Rows) ([]domain.Contact, error) {
	var contacts []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(
			&c.ID,
			&c.OwnerID,
			&c.FirstName,
			&c.LastName,
			&c.Email,
			&c.Phone,
			&c.Birthday,
			&c.Notes,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan contact row: %w", err)
		}
		contacts = append(contacts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contact rows: %w", err)
	}

	if contacts == nil {
		contacts = []domain.Contact{}
	}

	return contacts, nil
}
