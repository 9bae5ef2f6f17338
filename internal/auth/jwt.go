package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind identifies the purpose a token was issued for. A token of one
// kind is never accepted where another kind is expected.
type TokenKind string

const (
	TokenAccess        TokenKind = "access"
	TokenRefresh       TokenKind = "refresh"
	TokenVerification  TokenKind = "verification"
	TokenPasswordReset TokenKind = "password_reset"
)

// ErrInvalidToken is returned for any token that fails validation: bad
// signature, expired, malformed, or issued for a different purpose. Callers
// get a single sentinel so responses don't leak why validation failed.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the JWT claims carried by all token kinds. The subject is
// the user's email; user_id carries the stable identifier for store lookups.
type Claims struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role,omitempty"`
	Kind   TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// TTLConfig holds the lifetime of each token kind.
type TTLConfig struct {
	Access        time.Duration
	Refresh       time.Duration
	Verification  time.Duration
	PasswordReset time.Duration
}

// TokenCodec issues and validates signed JWTs for all four token kinds
// (access, refresh, email verification, password reset) using a single
// HS256 signing key.
type TokenCodec struct {
	secret []byte
	issuer string
	ttls   TTLConfig
}

// NewTokenCodec creates a codec with the given signing secret and per-kind TTLs.
func NewTokenCodec(secret, issuer string, ttls TTLConfig) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
		ttls:   ttls,
	}
}

func (c *TokenCodec) ttl(kind TokenKind) time.Duration {
	switch kind {
	case TokenAccess:
		return c.ttls.Access
	case TokenRefresh:
		return c.ttls.Refresh
	case TokenVerification:
		return c.ttls.Verification
	case TokenPasswordReset:
		return c.ttls.PasswordReset
	default:
		return 0
	}
}

// Issue creates a signed token of the given kind for the user. Access tokens
// additionally carry the user's role for authorization checks.
func (c *TokenCodec) Issue(kind TokenKind, userID, email, role string) (string, error) {
	ttl := c.ttl(kind)
	if ttl <= 0 {
		return "", fmt.Errorf("issue token: unknown kind %q", kind)
	}

	now := time.Now().UTC()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    c.issuer,
		},
	}
	if kind == TokenAccess {
		claims.Role = role
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}

	return signed, nil
}

// Parse validates a token and returns its claims. The token must be signed
// with the codec's key, unexpired, and issued for the expected kind;
// otherwise ErrInvalidToken is returned.
func (c *TokenCodec) Parse(tokenString string, expected TokenKind) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Kind != expected {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
