package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"shopauth/internal/repositories"
)

// Claims: полезная нагрузка токена: только id пользователя.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

type TokenService interface {
	Mint(userID string) (string, error)
	// Verify returns the user id carried by a valid token.
	Verify(ctx context.Context, token string) (string, error)
	// Revoke is a no-op when no revocation list is configured.
	Revoke(ctx context.Context, token string) error
}

type tokenService struct {
	secret  []byte
	ttl     time.Duration
	clock   clockwork.Clock
	revoked repositories.RevocationRepository
	parser  *jwt.Parser
}

// NewTokenService builds an HS256 issuer. revoked may be nil.
func NewTokenService(secret string, ttl time.Duration, clock clockwork.Clock, revoked repositories.RevocationRepository) TokenService {
	return &tokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		clock:   clock,
		revoked: revoked,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(clock.Now),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

func (s *tokenService) Mint(userID string) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *tokenService) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	case claims.UserID == "":
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *tokenService) Verify(ctx context.Context, token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}
	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, tokenKey(token))
		if err != nil {
			return "", fmt.Errorf("revocation lookup: %w", err)
		}
		if revoked {
			return "", ErrInvalidToken
		}
	}
	return claims.UserID, nil
}

func (s *tokenService) Revoke(ctx context.Context, token string) error {
	if s.revoked == nil {
		return nil
	}
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Time.Sub(s.clock.Now())
	return s.revoked.Revoke(ctx, tokenKey(token), ttl)
}

// tokenKey keeps raw tokens out of the revocation store.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
