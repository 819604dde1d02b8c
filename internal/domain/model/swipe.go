package model

import (
	"time"

	"github.com/relun/backend/internal/domain/enums"
)

type SwipeRecord struct {
	Actor     UserID         `json:"actor"`
	Target    UserID         `json:"target"`
	Decision  enums.Decision `json:"decision"`
	CreatedAt time.Time      `json:"created_at"`
}
