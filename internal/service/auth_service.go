package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pulsefit/pulsefit-api/internal/models"
	"github.com/pulsefit/pulsefit-api/pkg/config"
	appErrors "github.com/pulsefit/pulsefit-api/pkg/errors"
)

// AuthService validates and issues access tokens. Login, registration and
// session lifecycle are owned by the identity service; this API only needs to
// recognise its bearer tokens.
type AuthService struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewAuthService constructs AuthService.
func NewAuthService(cfg config.JWTConfig) *AuthService {
	return &AuthService{secret: []byte(cfg.Secret), expiration: cfg.Expiration, now: time.Now}
}

// GenerateToken issues a signed access token for the member.
func (s *AuthService) GenerateToken(member *models.Member) (string, error) {
	now := s.now().UTC()
	claims := &models.JWTClaims{
		UserID: member.ID,
		Email:  member.Email,
		Role:   member.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   member.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(raw string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}
