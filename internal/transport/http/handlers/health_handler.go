package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/relun/backend/internal/transport/http/dto"
	httperrors "github.com/relun/backend/internal/transport/http/errors"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	storage Pinger
	driver  string
}

func NewHealthHandler(storage Pinger, driver string) *HealthHandler {
	return &HealthHandler{storage: storage, driver: driver}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.storage.Ping(ctx); err != nil {
			httperrors.Write(w, http.StatusServiceUnavailable, dto.HealthResponse{OK: false, Storage: h.driver})
			return
		}
	}
	httperrors.Write(w, http.StatusOK, dto.HealthResponse{OK: true, Storage: h.driver})
}
