package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yukikurage/project-management-api/internal/models"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the session claims carried by both token types.
type Claims struct {
	UserID    string      `json:"userId"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	TokenType TokenType   `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is an access/refresh token pair issued together.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenManager issues and verifies HS256 signed tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// AccessTTL is how long issued access tokens stay valid.
func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

// Issue signs a new token pair for user.
func (m *TokenManager) Issue(user *models.User) (*TokenPair, error) {
	access, err := m.sign(user, TokenTypeAccess, m.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := m.sign(user, TokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify parses token and checks it is of the expected type.
func (m *TokenManager) Verify(token string, expected TokenType) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !parsed.Valid || claims.UserID == "" || claims.TokenType != expected {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (m *TokenManager) sign(user *models.User, tokenType TokenType, ttl time.Duration) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}
