package auth

import (
	"context"
	"errors"
	"time"

	"pt-trader/internal/bridge"
	"pt-trader/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

type Service struct {
	bridge *bridge.Bridge
	issuer string
	secret []byte
	ttl    time.Duration
}

func NewService(br *bridge.Bridge, issuer string, secret []byte, ttl time.Duration) *Service {
	return &Service{bridge: br, issuer: issuer, secret: secret, ttl: ttl}
}

func (s *Service) Register(ctx context.Context, params bridge.CreateUserParams) (model.User, error) {
	return s.bridge.CreateUser(ctx, params)
}

// Login verifies credentials and issues a bearer token whose subject is the
// username.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.bridge.Login(ctx, username, password)
	if err != nil {
		return "", err
	}
	return s.signToken(user.Username)
}

func (s *Service) GetUser(ctx context.Context, username string) (model.User, error) {
	return s.bridge.GetUser(ctx, username)
}

func (s *Service) signToken(subject string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

func (s *Service) ParseToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Issuer != s.issuer {
		return "", errors.New("invalid issuer")
	}
	if claims.Subject == "" {
		return "", errors.New("invalid subject")
	}
	return claims.Subject, nil
}
