package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/k1nderko/goit-pythonweb-hw-12/internal/service"
	"github.com/k1nderko/goit-pythonweb-hw-12/pkg/httputil"
	"github.com/k1nderko/goit-pythonweb-hw-12/pkg/middleware"
	"github.com/k1nderko/goit-pythonweb-hw-12/pkg/pagination"
	"github.com/k1nderko/goit-pythonweb-hw-12/pkg/validator"
)

// birthdayDateFormat is the wire format for contact birthdays.
const birthdayDateFormat = "2006-01-02"

// ContactHandler handles HTTP requests for contact endpoints.
type ContactHandler struct {
	service *service.ContactService
	logger  *slog.Logger
}

// NewContactHandler creates a new contact HTTP handler.
func NewContactHandler(svc *service.ContactService, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateContactRequest is the JSON request body for creating a contact.
type CreateContactRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
	Birthday  string `json:"birthday" validate:"omitempty"`
	Notes     string `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateContactRequest is the JSON request body for updating a contact.
type UpdateContactRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	Birthday  *string `json:"birthday" validate:"omitempty"`
	Notes     *string `json:"notes" validate:"omitempty,max=2000"`
}

// parseBirthday parses a YYYY-MM-DD birthday string. An empty string returns
// nil without error.
func parseBirthday(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(birthdayDateFormat, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeBadBirthday(w http.ResponseWriter) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "birthday must be in YYYY-MM-DD format"},
	})
}

// ownerID pulls the authenticated user from context, writing a 401 when absent.
func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := middleware.UserIDFromContext(r.Context())
	if id == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return "", false
	}
	return id, true
}

// --- Handlers ---

// Create handles POST /api/v1/contacts
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req CreateContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	birthday, err := parseBirthday(req.Birthday)
	if err != nil {
		writeBadBirthday(w)
		return
	}

	contact, err := h.service.Create(r.Context(), owner, service.CreateContactInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Birthday:  birthday,
		Notes:     req.Notes,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: contact})
}

// List handles GET /api/v1/contacts
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	result, err := h.service.List(r.Context(), owner, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Search handles GET /api/v1/contacts/search?q=
func (h *ContactHandler) Search(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	result, err := h.service.Search(r.Context(), owner, query, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// UpcomingBirthdays handles GET /api/v1/contacts/birthdays?days=
func (h *ContactHandler) UpcomingBirthdays(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "days must be an integer"},
			})
			return
		}
		days = v
	}

	contacts, err := h.service.UpcomingBirthdays(r.Context(), owner, days)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: contacts})
}

// Get handles GET /api/v1/contacts/{id}
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	contactID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	contact, err := h.service.Get(r.Context(), owner, contactID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: contact})
}

// Update handles PUT /api/v1/contacts/{id}
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	contactID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.UpdateContactInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Notes:     req.Notes,
	}
	if req.Birthday != nil {
		birthday, err := parseBirthday(*req.Birthday)
		if err != nil {
			writeBadBirthday(w)
			return
		}
		input.Birthday = birthday
	}

	contact, err := h.service.Update(r.Context(), owner, contactID.String(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: contact})
}

// Delete handles DELETE /api/v1/contacts/{id}
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	contactID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), owner, contactID.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": contactID.String(), "status": "deleted"}})
}
