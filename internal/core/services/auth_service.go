package services

import (
	"context"
	"errors"
	"time"

	"safedrive/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrUnauthorized = errors.New("unauthorized")
)

type AuthService interface {
	GenerateToken(userID domain.UserID, role domain.UserRole) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
	CheckRole(claims *Claims, required domain.UserRole) error
}

type Claims struct {
	UserID domain.UserID   `json:"user_id"`
	Role   domain.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	jwtSecret      []byte
	accessTokenTTL time.Duration
	now            func() time.Time
}

func NewAuthService(jwtSecret string, accessTokenTTL time.Duration) AuthService {
	return &authService{
		jwtSecret:      []byte(jwtSecret),
		accessTokenTTL: accessTokenTTL,
		now:            time.Now,
	}
}

func (s *authService) GenerateToken(userID domain.UserID, role domain.UserRole) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

func (s *authService) CheckRole(claims *Claims, required domain.UserRole) error {
	if claims == nil || claims.Role.Level() < required.Level() {
		return ErrUnauthorized
	}
	return nil
}

type claimsKey struct{}

// ContextWithClaims stores validated claims on the request context.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims set by the auth middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	if !ok || claims == nil {
		return nil, ErrUnauthorized
	}
	return claims, nil
}
