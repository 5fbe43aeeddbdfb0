// Package auth validates dashboard session tokens. Tokens are issued by the
// dashboard's auth frontend; this service only verifies them.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// clockSkewLeeway absorbs drift between the token issuer and this service.
const clockSkewLeeway = 30 * time.Second

// Claims holds the dashboard session claims.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// JWTService validates HS256-signed session tokens.
type JWTService struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTService creates a validator over the shared signing secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithLeeway(clockSkewLeeway),
			jwt.WithExpirationRequired(),
		),
	}
}

// Validate parses and verifies a session token, returning its claims.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := s.parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
