package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/relun/backend/internal/domain/errs"
	"github.com/relun/backend/internal/domain/model"
)

// RevocationStore is optional. Without one every well-formed unexpired token
// is accepted.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Service struct {
	jwt     *JWTManager
	revoked RevocationStore
}

func NewService(jwtManager *JWTManager, revoked RevocationStore) *Service {
	return &Service{
		jwt:     jwtManager,
		revoked: revoked,
	}
}

// IssueToken mints an access token for an already authenticated user.
func (s *Service) IssueToken(userID model.UserID) (IssuedToken, error) {
	return s.jwt.GenerateAccessToken(userID)
}

func (s *Service) VerifyToken(ctx context.Context, token string) (model.UserID, error) {
	claims, err := s.ValidateAccessToken(ctx, token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Service) ValidateAccessToken(ctx context.Context, token string) (AccessClaims, error) {
	claims, err := s.jwt.ParseAccessToken(token)
	if err != nil {
		return AccessClaims{}, err
	}

	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			return AccessClaims{}, fmt.Errorf("check token revocation: %w", err)
		}
		if revoked {
			return AccessClaims{}, errs.ErrUnauthorized
		}
	}

	return claims, nil
}

func (s *Service) Revoke(ctx context.Context, token string) error {
	claims, err := s.jwt.ParseAccessToken(token)
	if err != nil {
		return err
	}
	if s.revoked == nil {
		return fmt.Errorf("token revocation is not configured")
	}
	return s.revoked.Revoke(ctx, claims.TokenID, claims.ExpiresAt)
}
