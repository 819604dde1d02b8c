package auth

import (
	"time"

	"github.com/relun/backend/internal/domain/model"
)

type AccessClaims struct {
	UserID    model.UserID
	TokenID   string
	ExpiresAt time.Time
}

type IssuedToken struct {
	AccessToken string
	TokenID     string
	ExpiresAt   time.Time
}
