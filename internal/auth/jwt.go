package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/config"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrMissingTenant = errors.New("token missing tenant")
	ErrNoSecret      = errors.New("jwt secret is not configured")
)

const defaultTokenTTL = time.Hour

// Claims is the payload of a tenant token
type Claims struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 tenant tokens
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service from the auth configuration
func NewTokenService(cfg *config.AuthConfig) *TokenService {
	ttl := cfg.TokenTTLDuration()
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenService{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for a user of the given tenant
func (s *TokenService) Issue(tenantID uuid.UUID, userID, email string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	if tenantID == uuid.Nil {
		return "", ErrMissingTenant
	}

	now := s.now()
	claims := Claims{
		TenantID: tenantID.String(),
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses a token and returns the principal it names
func (s *TokenService) Validate(tokenString string) (*Principal, error) {
	if len(s.secret) == 0 {
		return nil, ErrNoSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	tenantID, err := uuid.Parse(strings.TrimSpace(claims.TenantID))
	if err != nil || tenantID == uuid.Nil {
		return nil, ErrMissingTenant
	}

	userID := claims.Subject
	if userID == "" {
		userID = claims.Email
	}

	return &Principal{
		TenantID: tenantID,
		UserID:   userID,
		Email:    claims.Email,
		AuthType: AuthTypeJWT,
	}, nil
}
