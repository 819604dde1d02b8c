package auth

import (
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/relun/backend/internal/domain/errs"
	"github.com/relun/backend/internal/domain/model"
)

type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}

	return &JWTManager{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

func (m *JWTManager) GenerateAccessToken(userID model.UserID) (IssuedToken, error) {
	if len(m.secret) == 0 {
		return IssuedToken{}, fmt.Errorf("jwt secret is empty")
	}
	if userID.Empty() {
		return IssuedToken{}, fmt.Errorf("invalid access token payload")
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.accessTTL)
	tokenID := uuid.NewString()
	claims := jwt.RegisteredClaims{
		ID:        tokenID,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign access token: %w", err)
	}

	return IssuedToken{AccessToken: signed, TokenID: tokenID, ExpiresAt: expiresAt}, nil
}

func (m *JWTManager) ParseAccessToken(raw string) (AccessClaims, error) {
	if strings.TrimSpace(raw) == "" {
		return AccessClaims{}, errs.ErrUnauthorized
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || token == nil || !token.Valid {
		return AccessClaims{}, errs.ErrUnauthorized
	}

	userID := model.UserID(claims.Subject)
	if userID.Empty() || strings.TrimSpace(claims.ID) == "" {
		return AccessClaims{}, errs.ErrUnauthorized
	}

	return AccessClaims{
		UserID:    userID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
