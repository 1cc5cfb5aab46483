package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// supabaseAudience is the aud claim GoTrue puts on user access tokens.
const supabaseAudience = "authenticated"

// Claims are the parts of a Supabase access token the API relies on.
type Claims struct {
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// TokenService validates (and, for local use, issues) HS256 access tokens
// signed with the project JWT secret.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), now: time.Now}
}

// Validate parses and verifies tokenString and returns its claims.
// Any failure is reported as ErrUnauthorized.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, &domain.ErrUnauthorized{Message: "missing bearer token"}
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithAudience(supabaseAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &domain.ErrUnauthorized{Message: "token expired"}
		}
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return claims, nil
}

// Issue signs a token shaped like a GoTrue access token. Used by the dev
// CLI and tests; production tokens come from Supabase Auth.
func (s *TokenService) Issue(userID, email string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", &domain.ErrValidation{Field: "user", Message: "user id is required"}
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	now := s.now()
	claims := Claims{
		Email: email,
		Role:  supabaseAudience,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{supabaseAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "billstatsctl",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
