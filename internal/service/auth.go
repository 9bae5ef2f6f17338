package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/k1nderko/goit-pythonweb-hw-12/internal/auth"
	"github.com/k1nderko/goit-pythonweb-hw-12/internal/domain"
	"github.com/k1nderko/goit-pythonweb-hw-12/internal/event"
	"github.com/k1nderko/goit-pythonweb-hw-12/internal/repository"
	apperrors "github.com/k1nderko/goit-pythonweb-hw-12/pkg/errors"
	"github.com/k1nderko/goit-pythonweb-hw-12/pkg/pagination"
)

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// AuthService implements the business logic for account and auth operations.
type AuthService struct {
	userRepo  repository.UserRepository
	hasher    *auth.PasswordHasher
	codec     *auth.TokenCodec
	publisher event.Publisher
	logger    *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	hasher *auth.PasswordHasher,
	codec *auth.TokenCodec,
	publisher event.Publisher,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		hasher:    hasher,
		codec:     codec,
		publisher: publisher,
		logger:    logger,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput holds the parameters for updating a user's profile.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
}

// Register creates a new user account with an unverified email and publishes
// a registration event carrying the verification token. It never returns
// tokens; login requires a verified address.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if input.FirstName == "" {
		return nil, apperrors.InvalidInput("first name is required")
	}
	if input.LastName == "" {
		return nil, apperrors.InvalidInput("last name is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hashedPassword, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:            uuid.New().String(),
		Email:         input.Email,
		PasswordHash:  hashedPassword,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Role:          domain.RoleUser,
		IsActive:      true,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Publish registration event with the verification token (non-blocking
	// on failure; the user can re-request verification later).
	verificationToken, err := s.codec.Issue(auth.TokenVerification, user.ID, user.Email, "")
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue verification token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	} else if err := s.publisher.PublishUserRegistered(ctx, user, verificationToken); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login authenticates a user with email and password, returning a token pair.
// Unknown emails and wrong passwords produce the same error so callers cannot
// probe which addresses are registered.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	if !s.hasher.Verify(user.PasswordHash, input.Password) {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	if !user.EmailVerified {
		return nil, nil, apperrors.Forbidden("email address is not verified")
	}

	if !user.IsActive {
		return nil, nil, apperrors.Forbidden("account is deactivated")
	}

	tokens, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, tokens, nil
}

// Refresh validates a refresh token against the stored hash and rotates the
// token pair. Only the most recently issued refresh token is accepted;
// rotation invalidates every earlier one.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidInput("refresh token is required")
	}

	claims, err := s.codec.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	if user.RefreshTokenHash == "" || hashToken(refreshToken) != user.RefreshTokenHash {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	if !user.IsActive {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	tokens, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("user_id", user.ID),
	)

	return tokens, nil
}

// ValidateAccessToken parses an access token and loads its subject from the
// store. Tokens for deleted or deactivated accounts fail the same way as
// forged or expired ones. The returned user carries the current role, so a
// role change takes effect without waiting for the token to expire.
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.codec.Parse(token, auth.TokenAccess)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	if !user.IsActive {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	return user, nil
}

// Logout revokes the user's current refresh token.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.userRepo.UpdateRefreshTokenHash(ctx, userID, ""); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", userID),
	)

	return nil
}

// VerifyEmail marks the token subject's email address as verified. Verifying
// an already verified account succeeds without changes.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.codec.Parse(token, auth.TokenVerification)
	if err != nil {
		return apperrors.InvalidInput("invalid or expired verification token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return fmt.Errorf("get user for verification: %w", err)
	}

	if user.EmailVerified {
		return nil
	}

	user.EmailVerified = true
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}

	s.logger.InfoContext(ctx, "email verified",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// RequestVerification re-sends the verification mail for an unverified account.
func (s *AuthService) RequestVerification(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user for verification request: %w", err)
	}

	if user.EmailVerified {
		return apperrors.InvalidInput("email is already verified")
	}

	verificationToken, err := s.codec.Issue(auth.TokenVerification, user.ID, user.Email, "")
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}

	if err := s.publisher.PublishUserVerificationRequested(ctx, user, verificationToken); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.verification_requested event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "verification re-requested",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// RequestPasswordReset initiates a password reset. The result is identical
// whether or not the email belongs to an account, so the endpoint cannot be
// used to enumerate registered addresses.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Unknown emails get the same success response as known ones.
		// Anything else is an infrastructure failure and must surface.
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email",
				slog.String("email", email),
			)
			return nil
		}
		return fmt.Errorf("get user for password reset: %w", err)
	}

	resetToken, err := s.codec.Issue(auth.TokenPasswordReset, user.ID, user.Email, "")
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	if err := s.publisher.PublishUserPasswordReset(ctx, user, resetToken); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_reset event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// ConfirmPasswordReset sets a new password using a reset token and revokes
// the refresh token so existing sessions must log in again.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperrors.InvalidInput("reset token is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	claims, err := s.codec.Parse(token, auth.TokenPasswordReset)
	if err != nil {
		return apperrors.InvalidInput("invalid or expired reset token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return fmt.Errorf("get user for password reset: %w", err)
	}

	hashedPassword, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = hashedPassword
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if err := s.userRepo.UpdateRefreshTokenHash(ctx, user.ID, ""); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh token after password reset",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// ChangePassword allows an authenticated user to change their password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.InvalidInput("current password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for password change: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, currentPassword) {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hashedPassword, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = hashedPassword
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	// Force re-login on other sessions.
	if err := s.userRepo.UpdateRefreshTokenHash(ctx, user.ID, ""); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh token after password change",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// GetProfile retrieves a user by their ID.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

// UpdateProfile updates a user's profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.FirstName != nil {
		if *input.FirstName == "" {
			return nil, apperrors.InvalidInput("first name must not be empty")
		}
		user.FirstName = *input.FirstName
	}

	if input.LastName != nil {
		if *input.LastName == "" {
			return nil, apperrors.InvalidInput("last name must not be empty")
		}
		user.LastName = *input.LastName
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "user profile updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// UpdateAvatar stores the URL of the user's uploaded avatar.
func (s *AuthService) UpdateAvatar(ctx context.Context, userID, avatarURL string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for avatar update: %w", err)
	}

	user.AvatarURL = avatarURL
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user avatar: %w", err)
	}

	s.logger.InfoContext(ctx, "avatar updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// ListUsers returns a paginated list of all users. Admin only; the role check
// happens in the HTTP layer.
func (s *AuthService) ListUsers(ctx context.Context, params pagination.Params) (*pagination.Result[domain.User], error) {
	users, total, err := s.userRepo.List(ctx, params.PerPage, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	result := pagination.NewResult(users, total, params)
	return &result, nil
}

// UpdateRole changes the target user's role.
func (s *AuthService) UpdateRole(ctx context.Context, userID, role string) (*domain.User, error) {
	if !domain.IsValidRole(role) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid role %q", role))
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for role update: %w", err)
	}

	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user role: %w", err)
	}

	s.logger.InfoContext(ctx, "user role updated",
		slog.String("user_id", user.ID),
		slog.String("role", role),
	)

	return user, nil
}

// UpdateStatus activates or deactivates the target user. Deactivation also
// revokes the refresh token so the account loses access at the next rotation.
func (s *AuthService) UpdateStatus(ctx context.Context, userID string, active bool) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for status update: %w", err)
	}

	user.IsActive = active
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user status: %w", err)
	}

	if !active {
		if err := s.userRepo.UpdateRefreshTokenHash(ctx, user.ID, ""); err != nil {
			s.logger.ErrorContext(ctx, "failed to revoke refresh token after deactivation",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "user status updated",
		slog.String("user_id", user.ID),
		slog.Bool("active", active),
	)

	return user, nil
}

// issueTokenPair creates an access/refresh pair and stores the refresh token
// hash in the user's single refresh slot.
func (s *AuthService) issueTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.codec.Issue(auth.TokenAccess, user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.codec.Issue(auth.TokenRefresh, user.ID, user.Email, "")
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := s.userRepo.UpdateRefreshTokenHash(ctx, user.ID, hashToken(refreshToken)); err != nil {
		return nil, fmt.Errorf("store refresh token hash: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
