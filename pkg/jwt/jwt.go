package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/Livingbruce/nextstep-mentorship-sub001/pkg/errors"
)

// Manager handles JWT creation and validation with an HS256 shared secret.
type Manager struct {
	issuer string
	secret []byte
}

// NewManager creates a new JWT manager.
func NewManager(issuer string, secret []byte) *Manager {
	return &Manager{issuer: issuer, secret: secret}
}

// AccessTokenClaims represents the claims in an access token.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	Admin bool   `json:"admin,omitempty"`
}

// CreateAccessToken creates a signed access token JWT.
func (m *Manager) CreateAccessToken(
	subject string,
	email string,
	name string,
	role string,
	admin bool,
	ttl time.Duration,
) (string, error) {
	now := time.Now().UTC()

	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		Email: email,
		Name:  name,
		Role:  role,
		Admin: admin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to sign access token")
	}

	return signedToken, nil
}

// ValidateAccessToken validates an access token and returns the claims.
func (m *Manager) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		if apperrors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.Wrap(err, "token validation failed")
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrTokenInvalid
	}

	// Verify issuer
	if claims.Issuer != m.issuer {
		return nil, apperrors.ErrTokenInvalid
	}

	return claims, nil
}

// PeekExpiry extracts the exp claim from a token without verifying the
// signature. The client cannot verify server-issued tokens (it has no key),
// but the expiry is still useful for aligning the local session lifetime
// with the token's actual lifetime. Returns false if the token is not a
// parseable JWT or carries no exp claim.
func PeekExpiry(tokenString string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}
