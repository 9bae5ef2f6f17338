package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/k1nderko/goit-pythonweb-hw-12/internal/auth"
	"github.com/k1nderko/goit-pythonweb-hw-12/internal/domain"
	apperrors "github.com/k1nderko/goit-pythonweb-hw-12/pkg/errors"
	"github.com/k1nderko/goit-pythonweb-hw-12/pkg/pagination"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) UpdateRefreshTokenHash(ctx context.Context, userID, tokenHash string) error {
	args := m.Called(ctx, userID, tokenHash)
	return args.Error(0)
}

func (m *mockUserRepository) List(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Event Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishUserRegistered(ctx context.Context, user *domain.User, verificationToken string) error {
	args := m.Called(ctx, user, verificationToken)
	return args.Error(0)
}

func (m *mockPublisher) PublishUserVerificationRequested(ctx context.Context, user *domain.User, verificationToken string) error {
	args := m.Called(ctx, user, verificationToken)
	return args.Error(0)
}

func (m *mockPublisher) PublishUserPasswordReset(ctx context.Context, user *domain.User, resetToken string) error {
	args := m.Called(ctx, user, resetToken)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCodec() *auth.TokenCodec {
	return auth.NewTokenCodec("test-secret-key-for-testing", "contacts-api", auth.TTLConfig{
		Access:        15 * time.Minute,
		Refresh:       7 * 24 * time.Hour,
		Verification:  24 * time.Hour,
		PasswordReset: time.Hour,
	})
}

func newTestAuthService(userRepo *mockUserRepository, publisher *mockPublisher) *AuthService {
	hasher := auth.NewPasswordHasherWithCost(bcrypt.MinCost)
	return NewAuthService(userRepo, hasher, newTestCodec(), publisher, newTestLogger())
}

// hashForTest creates a bcrypt hash with the minimum cost for fast tests.
func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func verifiedUser() *domain.User {
	return &domain.User{
		ID:            "user-123",
		Email:         "jane@example.com",
		PasswordHash:  hashForTest("SecurePass123"),
		FirstName:     "Jane",
		LastName:      "Doe",
		Role:          domain.RoleUser,
		IsActive:      true,
		EmailVerified: true,
	}
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	publisher := new(mockPublisher)
	svc := newTestAuthService(userRepo, publisher)
	ctx := context.Background()

	userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	publisher.On("PublishUserRegistered", ctx, mock.AnythingOfType("*domain.User"), mock.AnythingOfType("string")).Return(nil)

	input := RegisterInput{
		Email:     "jane@example.com",
		Password:  "SecurePass123",
		FirstName: "Jane",
		LastName:  "Doe",
	}

	user, err := svc.Register(ctx, input)

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.False(t, user.EmailVerified)
	assert.NotEqual(t, "SecurePass123", user.PasswordHash)
	assert.NotZero(t, user.CreatedAt)

	userRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRegister_VerificationTokenParsesAsVerificationKind(t *testing.T) {
	userRepo := new(mockUserRepository)
	publisher := new(mockPublisher)
	svc := newTestAuthService(userRepo, publisher)
	ctx := context.Background()

	var publishedToken string
	userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	publisher.On("PublishUserRegistered", ctx, mock.AnythingOfType("*domain.User"), mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			publishedToken = args.String(2)
		}).
		Return(nil)

	user, err := svc.Register(ctx, RegisterInput{
		Email:     "jane@example.com",
		Password:  "SecurePass123",
		FirstName: "Jane",
		LastName:  "Doe",
	})
	require.NoError(t, err)

	claims, err := newTestCodec().Parse(publishedToken, auth.TokenVerification)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	// The same token must not pass as an access token.
	_, err = newTestCodec().Parse(publishedToken, auth.TokenAccess)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	publisher := new(mockPublisher)
	svc := newTestAuthService(userRepo, publisher)
	ctx := context.Background()

	userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Return(apperrors.AlreadyExists("user", "email", "jane@example.com"))

	user, err := svc.Register(ctx, RegisterInput{
		Email:     "jane@example.com",
		Password:  "SecurePass123",
		FirstName: "Jane",
		LastName:  "Doe",
	})

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	publisher.AssertNotCalled(t, "PublishUserRegistered", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_PublishFailureDoesNotFailRegistration(t *testing.T) {
	userRepo := new(mockUserRepository)
	publisher := new(mockPublisher)
	svc := newTestAuthService(userRepo, publisher)
	ctx := context.Background()

	userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	publisher.On("PublishUserRegistered", ctx, mock.AnythingOfType("*domain.User"), mock.AnythingOfType("string")).
		Return(assert.AnError)

	user, err := svc.Register(ctx, RegisterInput{
		Email:     "jane@example.com",
		Password:  "SecurePass123",
		FirstName: "Jane",
		LastName:  "Doe",
	})

	require.NoError(t, err)
	assert.NotNil(t, user)
}

func TestRegister_WeakPasswords(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"too short", "Ab1"},
		{"no uppercase", "securepass123"},
		{"no lowercase", "SECUREPASS123"},
		{"no digit", "SecurePassword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := new(mockUserRepository)
			publisher := new(mockPublisher)
			svc := newTestAuthService(userRepo, publisher)

			user, err := svc.Register(context.Background(), RegisterInput{
				Email:     "jane@example.com",
				Password:  tt.password,
				FirstName: "Jane",
				LastName:  "Doe",
			})

			assert.Nil(t, user)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	publisher := new(mockPublisher)
	svc := newTestAuthService(userRepo, publisher)
	ctx := context.Background()

	existing := verifiedUser()
	var storedHash string
	userRepo.On("GetByEmail", ctx, "jane@example.com").Return(existing, nil)
	userRepo.On("UpdateRefreshTokenHash", ctx, "user-123", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			storedHash = args.String(2)
		}).
		Return(nil)

	user, tokens, err := svc.Login(ctx, LoginInput{
		Email:    "jane@example.com",
		Password: "SecurePass123",
	})

	require.NoError(t, err)
	require.NotNil(t, tokens)
	assert.Equal(t, "user-123", user.ID)
	assert.Equal(t, "bearer", tokens.TokenType)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)

	// The stored slot must hold the digest of the issued refresh token.
	assert.Equal(t, hashToken(tokens.RefreshToken), storedHash)

	userRepo.AssertExpectations(t)
}

func TestLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	ctx := context.Background()

	unknownRepo := new(mockUserRepository)
	unknownRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.NotFound("user", "ghost@example.com"))
	_, _, errUnknown := newTestAuthService(unknownRepo, new(mockPublisher)).Login(ctx, LoginInput{
		Email:    "ghost@example.com",
		Password: "SecurePass123",
	})

	wrongRepo := new(mockUserRepository)
	wrongRepo.On("GetByEmail", ctx, "jane@example.com").Return(verifiedUser(), nil)
	_, _, errWrong := newTestAuthService(wrongRepo, new(mockPublisher)).Login(ctx, LoginInput{
		Email:    "jane@example.com",
		Password: "WrongPass456",
	})

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.ErrorIs(t, errUnknown, apperrors.ErrUnauthorized)
	assert.ErrorIs(t, errWrong, apperrors.ErrUnauthorized)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLogin_UnverifiedEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	existing := verifiedUser()
	existing.EmailVerified = false
	userRepo.On("GetByEmail", ctx, "jane@example.com").Return(existing, nil)

	_, tokens, err := svc.Login(ctx, LoginInput{
		Email:    "jane@example.com",
		Password: "SecurePass123",
	})

	assert.Nil(t, tokens)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	userRepo.AssertNotCalled(t, "UpdateRefreshTokenHash", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	existing := verifiedUser()
	existing.IsActive = false
	userRepo.On("GetByEmail", ctx, "jane@example.com").Return(existing, nil)

	_, tokens, err := svc.Login(ctx, LoginInput{
		Email:    "jane@example.com",
		Password: "SecurePass123",
	})

	assert.Nil(t, tokens)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

// --- Refresh Tests ---

// loginFor issues a real token pair for the user and returns it together with
// the hash the repository would have stored.
func loginFor(t *testing.T, user *domain.User) (*domain.TokenPair, string) {
	t.Helper()

	userRepo := new(mockUserRepository)
	var storedHash string
	userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
	userRepo.On("UpdateRefreshTokenHash", mock.Anything, user.ID, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			storedHash = args.String(2)
		}).
		Return(nil)

	svc := newTestAuthService(userRepo, new(mockPublisher))
	_, tokens, err := svc.Login(context.Background(), LoginInput{Email: user.Email, Password: "SecurePass123"})
	require.NoError(t, err)
	return tokens, storedHash
}

func TestRefresh_Success_RotatesSlot(t *testing.T) {
	existing := verifiedUser()
	tokens, storedHash := loginFor(t, existing)
	existing.RefreshTokenHash = storedHash

	userRepo := new(mockUserRepository)
	publisher := new(mockPublisher)
	svc := newTestAuthService(userRepo, publisher)
	ctx := context.Background()

	var rotatedHash string
	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)
	userRepo.On("UpdateRefreshTokenHash", ctx, "user-123", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			rotatedHash = args.String(2)
		}).
		Return(nil)

	newPair, err := svc.Refresh(ctx, tokens.RefreshToken)

	require.NoError(t, err)
	assert.NotEmpty(t, newPair.AccessToken)
	assert.NotEmpty(t, newPair.RefreshToken)
	assert.Equal(t, hashToken(newPair.RefreshToken), rotatedHash)

	userRepo.AssertExpectations(t)
}

func TestRefresh_StaleTokenAfterRotation(t *testing.T) {
	existing := verifiedUser()
	tokens, _ := loginFor(t, existing)
	// Another login already rotated the slot.
	existing.RefreshTokenHash = hashToken("a-newer-refresh-token")

	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)

	pair, err := svc.Refresh(ctx, tokens.RefreshToken)

	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	userRepo.AssertNotCalled(t, "UpdateRefreshTokenHash", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_EmptySlot(t *testing.T) {
	existing := verifiedUser()
	tokens, _ := loginFor(t, existing)
	existing.RefreshTokenHash = ""

	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)

	pair, err := svc.Refresh(ctx, tokens.RefreshToken)

	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	existing := verifiedUser()
	tokens, _ := loginFor(t, existing)

	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))

	pair, err := svc.Refresh(context.Background(), tokens.AccessToken)

	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	userRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestRefresh_GarbageToken(t *testing.T) {
	svc := newTestAuthService(new(mockUserRepository), new(mockPublisher))

	pair, err := svc.Refresh(context.Background(), "not-a-jwt")

	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefresh_DeactivatedAccount(t *testing.T) {
	existing := verifiedUser()
	tokens, storedHash := loginFor(t, existing)
	existing.RefreshTokenHash = storedHash
	existing.IsActive = false

	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)

	pair, err := svc.Refresh(ctx, tokens.RefreshToken)

	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

// --- ValidateAccessToken Tests ---

func TestValidateAccessToken_Success(t *testing.T) {
	existing := verifiedUser()
	tokens, _ := loginFor(t, existing)

	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)

	user, err := svc.ValidateAccessToken(ctx, tokens.AccessToken)

	require.NoError(t, err)
	assert.Equal(t, "user-123", user.ID)
	assert.Equal(t, domain.RoleUser, user.Role)
}

func TestValidateAccessToken_RefreshTokenRejected(t *testing.T) {
	existing := verifiedUser()
	tokens, _ := loginFor(t, existing)

	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))

	user, err := svc.ValidateAccessToken(context.Background(), tokens.RefreshToken)

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	userRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestValidateAccessToken_DeletedUser(t *testing.T) {
	existing := verifiedUser()
	tokens, _ := loginFor(t, existing)

	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "user-123").Return(nil, apperrors.NotFound("user", "user-123"))

	user, err := svc.ValidateAccessToken(ctx, tokens.AccessToken)

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestValidateAccessToken_DeactivatedUser(t *testing.T) {
	existing := verifiedUser()
	tokens, _ := loginFor(t, existing)
	existing.IsActive = false

	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)

	user, err := svc.ValidateAccessToken(ctx, tokens.AccessToken)

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

// --- VerifyEmail Tests ---

func issueToken(t *testing.T, kind auth.TokenKind, userID, email string) string {
	t.Helper()
	token, err := newTestCodec().Issue(kind, userID, email, "")
	require.NoError(t, err)
	return token
}

func TestVerifyEmail_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	existing := verifiedUser()
	existing.EmailVerified = false
	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)
	userRepo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.EmailVerified
	})).Return(nil)

	token := issueToken(t, auth.TokenVerification, "user-123", "jane@example.com")
	err := svc.VerifyEmail(ctx, token)

	require.NoError(t, err)
	userRepo.AssertExpectations(t)
}

func TestVerifyEmail_AlreadyVerified_Idempotent(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "user-123").Return(verifiedUser(), nil)

	token := issueToken(t, auth.TokenVerification, "user-123", "jane@example.com")
	err := svc.VerifyEmail(ctx, token)

	require.NoError(t, err)
	userRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestVerifyEmail_WrongKindToken(t *testing.T) {
	svc := newTestAuthService(new(mockUserRepository), new(mockPublisher))

	token := issueToken(t, auth.TokenPasswordReset, "user-123", "jane@example.com")
	err := svc.VerifyEmail(context.Background(), token)

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestVerifyEmail_UnknownSubject(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "user-123").Return(nil, apperrors.NotFound("user", "user-123"))

	token := issueToken(t, auth.TokenVerification, "user-123", "jane@example.com")
	err := svc.VerifyEmail(ctx, token)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- RequestVerification Tests ---

func TestRequestVerification_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	publisher := new(mockPublisher)
	svc := newTestAuthService(userRepo, publisher)
	ctx := context.Background()

	existing := verifiedUser()
	existing.EmailVerified = false
	userRepo.On("GetByEmail", ctx, "jane@example.com").Return(existing, nil)
	publisher.On("PublishUserVerificationRequested", ctx, existing, mock.AnythingOfType("string")).Return(nil)

	err := svc.RequestVerification(ctx, "jane@example.com")

	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestRequestVerification_AlreadyVerified(t *testing.T) {
	userRepo := new(mockUserRepository)
	publisher := new(mockPublisher)
	svc := newTestAuthService(userRepo, publisher)
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "jane@example.com").Return(verifiedUser(), nil)

	err := svc.RequestVerification(ctx, "jane@example.com")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	publisher.AssertNotCalled(t, "PublishUserVerificationRequested", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestVerification_UnknownEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.NotFound("user", "ghost@example.com"))

	err := svc.RequestVerification(ctx, "ghost@example.com")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- Password Reset Tests ---

func TestRequestPasswordReset_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	publisher := new(mockPublisher)
	svc := newTestAuthService(userRepo, publisher)
	ctx := context.Background()

	existing := verifiedUser()
	var resetToken string
	userRepo.On("GetByEmail", ctx, "jane@example.com").Return(existing, nil)
	publisher.On("PublishUserPasswordReset", ctx, existing, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			resetToken = args.String(2)
		}).
		Return(nil)

	err := svc.RequestPasswordReset(ctx, "jane@example.com")

	require.NoError(t, err)
	claims, err := newTestCodec().Parse(resetToken, auth.TokenPasswordReset)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
}

func TestRequestPasswordReset_UnknownEmailStillSucceeds(t *testing.T) {
	userRepo := new(mockUserRepository)
	publisher := new(mockPublisher)
	svc := newTestAuthService(userRepo, publisher)
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.NotFound("user", "ghost@example.com"))

	err := svc.RequestPasswordReset(ctx, "ghost@example.com")

	require.NoError(t, err)
	publisher.AssertNotCalled(t, "PublishUserPasswordReset", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestPasswordReset_StoreFailureSurfaces(t *testing.T) {
	userRepo := new(mockUserRepository)
	publisher := new(mockPublisher)
	svc := newTestAuthService(userRepo, publisher)
	ctx := context.Background()

	// Only a missing account is swallowed. A store outage must not be
	// reported to the caller as a successful reset request.
	userRepo.On("GetByEmail", ctx, "jane@example.com").Return(nil, assert.AnError)

	err := svc.RequestPasswordReset(ctx, "jane@example.com")

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	publisher.AssertNotCalled(t, "PublishUserPasswordReset", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmPasswordReset_Success_RevokesRefresh(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	existing := verifiedUser()
	oldHash := existing.PasswordHash
	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)
	userRepo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.PasswordHash != oldHash
	})).Return(nil)
	userRepo.On("UpdateRefreshTokenHash", ctx, "user-123", "").Return(nil)

	token := issueToken(t, auth.TokenPasswordReset, "user-123", "jane@example.com")
	err := svc.ConfirmPasswordReset(ctx, token, "BrandNewPass1")

	require.NoError(t, err)
	userRepo.AssertExpectations(t)
}

func TestConfirmPasswordReset_WrongKindToken(t *testing.T) {
	svc := newTestAuthService(new(mockUserRepository), new(mockPublisher))

	token := issueToken(t, auth.TokenVerification, "user-123", "jane@example.com")
	err := svc.ConfirmPasswordReset(context.Background(), token, "BrandNewPass1")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestConfirmPasswordReset_WeakPassword(t *testing.T) {
	svc := newTestAuthService(new(mockUserRepository), new(mockPublisher))

	token := issueToken(t, auth.TokenPasswordReset, "user-123", "jane@example.com")
	err := svc.ConfirmPasswordReset(context.Background(), token, "short")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- ChangePassword Tests ---

func TestChangePassword_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	existing := verifiedUser()
	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)
	userRepo.On("Update", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	userRepo.On("UpdateRefreshTokenHash", ctx, "user-123", "").Return(nil)

	err := svc.ChangePassword(ctx, "user-123", "SecurePass123", "BrandNewPass1")

	require.NoError(t, err)
	userRepo.AssertExpectations(t)
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "user-123").Return(verifiedUser(), nil)

	err := svc.ChangePassword(ctx, "user-123", "WrongPass456", "BrandNewPass1")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	userRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestChangePassword_SameAsCurrent(t *testing.T) {
	svc := newTestAuthService(new(mockUserRepository), new(mockPublisher))

	err := svc.ChangePassword(context.Background(), "user-123", "SecurePass123", "SecurePass123")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- Admin Tests ---

func TestListUsers(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	users := []domain.User{*verifiedUser()}
	userRepo.On("List", ctx, 20, 0).Return(users, 1, nil)

	result, err := svc.ListUsers(ctx, pagination.DefaultParams())

	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCount)
	assert.Len(t, result.Data, 1)
}

func TestUpdateRole_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	existing := verifiedUser()
	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)
	userRepo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Role == domain.RoleAdmin
	})).Return(nil)

	user, err := svc.UpdateRole(ctx, "user-123", domain.RoleAdmin)

	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	userRepo.AssertExpectations(t)
}

func TestUpdateRole_InvalidRole(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))

	user, err := svc.UpdateRole(context.Background(), "user-123", "superuser")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	userRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestUpdateStatus_DeactivateRevokesRefresh(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	existing := verifiedUser()
	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)
	userRepo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return !u.IsActive
	})).Return(nil)
	userRepo.On("UpdateRefreshTokenHash", ctx, "user-123", "").Return(nil)

	user, err := svc.UpdateStatus(ctx, "user-123", false)

	require.NoError(t, err)
	assert.False(t, user.IsActive)
	userRepo.AssertExpectations(t)
}

func TestUpdateStatus_ActivateKeepsRefresh(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	existing := verifiedUser()
	existing.IsActive = false
	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)
	userRepo.On("Update", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	user, err := svc.UpdateStatus(ctx, "user-123", true)

	require.NoError(t, err)
	assert.True(t, user.IsActive)
	userRepo.AssertNotCalled(t, "UpdateRefreshTokenHash", mock.Anything, mock.Anything, mock.Anything)
}

// --- Logout Tests ---

func TestLogout_ClearsSlot(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestAuthService(userRepo, new(mockPublisher))
	ctx := context.Background()

	userRepo.On("UpdateRefreshTokenHash", ctx, "user-123", "").Return(nil)

	err := svc.Logout(ctx, "user-123")

	require.NoError(t, err)
	userRepo.AssertExpectations(t)
}
