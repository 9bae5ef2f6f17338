package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing"

func newTestCodec() *TokenCodec {
	return NewTokenCodec(testSecret, "contacts-api", TTLConfig{
		Access:        30 * time.Minute,
		Refresh:       7 * 24 * time.Hour,
		Verification:  24 * time.Hour,
		PasswordReset: time.Hour,
	})
}

func TestTokenCodec_IssueAndParse_AllKinds(t *testing.T) {
	codec := newTestCodec()
	kinds := []TokenKind{TokenAccess, TokenRefresh, TokenVerification, TokenPasswordReset}

	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			token, err := codec.Issue(kind, "user-123", "jane@example.com", "admin")
			require.NoError(t, err)
			require.NotEmpty(t, token)

			claims, err := codec.Parse(token, kind)
			require.NoError(t, err)
			assert.Equal(t, "user-123", claims.UserID)
			assert.Equal(t, "jane@example.com", claims.Email)
			assert.Equal(t, kind, claims.Kind)
			assert.Equal(t, "contacts-api", claims.Issuer)
		})
	}
}

func TestTokenCodec_WireClaimLayout(t *testing.T) {
	codec := newTestCodec()

	token, err := codec.Issue(TokenVerification, "user-123", "jane@example.com", "")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))

	// The kind tag lives under "type" with the closed-set literal values,
	// and the subject is the email address.
	assert.Equal(t, "verification", payload["type"])
	assert.Equal(t, "jane@example.com", payload["sub"])
	assert.Equal(t, "user-123", payload["user_id"])
	assert.NotContains(t, payload, "kind")
}

func TestTokenCodec_RoleOnlyOnAccessTokens(t *testing.T) {
	codec := newTestCodec()

	access, err := codec.Issue(TokenAccess, "user-1", "a@example.com", "admin")
	require.NoError(t, err)
	claims, err := codec.Parse(access, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)

	refresh, err := codec.Issue(TokenRefresh, "user-1", "a@example.com", "admin")
	require.NoError(t, err)
	claims, err = codec.Parse(refresh, TokenRefresh)
	require.NoError(t, err)
	assert.Empty(t, claims.Role)
}

func TestTokenCodec_KindConfusionRejected(t *testing.T) {
	codec := newTestCodec()

	// A verification token must not be usable as an access, refresh, or
	// password reset token, and so on for every cross pairing.
	kinds := []TokenKind{TokenAccess, TokenRefresh, TokenVerification, TokenPasswordReset}
	for _, issued := range kinds {
		token, err := codec.Issue(issued, "user-1", "a@example.com", "user")
		require.NoError(t, err)

		for _, expected := range kinds {
			if expected == issued {
				continue
			}
			_, err := codec.Parse(token, expected)
			assert.ErrorIs(t, err, ErrInvalidToken, "%s token accepted as %s", issued, expected)
		}
	}
}

func TestTokenCodec_ExpiredTokenRejected(t *testing.T) {
	codec := NewTokenCodec(testSecret, "contacts-api", TTLConfig{
		Access: -time.Minute, // already expired at issue time
	})

	token, err := codec.Issue(TokenAccess, "user-1", "a@example.com", "user")
	// Issue refuses non-positive TTLs.
	assert.Error(t, err)
	assert.Empty(t, token)
}

func TestTokenCodec_ExpiryHonored(t *testing.T) {
	// Hand-craft an expired token signed with the right key.
	now := time.Now().UTC()
	claims := &Claims{
		UserID: "user-1",
		Kind:   TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
			Issuer:    "contacts-api",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = newTestCodec().Parse(signed, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_WrongKeyRejected(t *testing.T) {
	codec := newTestCodec()
	other := NewTokenCodec("a-completely-different-secret", "contacts-api", TTLConfig{Access: time.Hour})

	token, err := other.Issue(TokenAccess, "user-1", "a@example.com", "user")
	require.NoError(t, err)

	_, err = codec.Parse(token, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_MalformedTokenRejected(t *testing.T) {
	codec := newTestCodec()

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := codec.Parse(tok, TokenAccess)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestTokenCodec_NoneAlgorithmRejected(t *testing.T) {
	codec := newTestCodec()

	claims := &Claims{UserID: "user-1", Kind: TokenAccess}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Parse(signed, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_UnknownKind(t *testing.T) {
	codec := newTestCodec()
	_, err := codec.Issue(TokenKind("session"), "user-1", "a@example.com", "user")
	assert.Error(t, err)
}
