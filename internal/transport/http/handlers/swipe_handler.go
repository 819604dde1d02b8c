package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/relun/backend/internal/domain/model"
	"github.com/relun/backend/internal/pkg/validate"
	swipesvc "github.com/relun/backend/internal/services/swipes"
	"github.com/relun/backend/internal/transport/http/dto"
	httperrors "github.com/relun/backend/internal/transport/http/errors"
)

type SwipeHandler struct {
	service *swipesvc.Service
	logger  *zap.Logger
}

func NewSwipeHandler(service *swipesvc.Service, logger *zap.Logger) *SwipeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwipeHandler{service: service, logger: logger}
}

func (h *SwipeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "invalid request body")
		return
	}
	if !validate.Required(req.Decision) {
		writeBadRequest(w, httperrors.CodeValidation, "target and decision are required")
		return
	}

	actor, err := actingUser(r, req.Actor)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to record swipe")
		return
	}

	result, err := h.service.Record(r.Context(), actor, model.UserID(strings.TrimSpace(req.Target)), req.Decision)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to record swipe")
		return
	}

	resp := dto.SwipeResponse{
		Swipe:        dto.NewSwipeItem(result.Swipe),
		MatchCreated: result.MatchCreated,
	}
	if result.Match != nil {
		item := dto.NewMatchItem(*result.Match, actor)
		resp.Match = &item
	}
	httperrors.Write(w, http.StatusOK, resp)
}

// Get returns the caller's latest decision about the target in the path.
func (h *SwipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	actor, err := actingUser(r, "")
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load swipe")
		return
	}

	rec, found, err := h.service.Decision(r.Context(), actor, model.UserID(chi.URLParam(r, "target")))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load swipe")
		return
	}
	if !found {
		httperrors.WriteError(w, http.StatusNotFound, httperrors.CodeNotFound, "no swipe for this target")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NewSwipeItem(rec))
}

func (h *SwipeHandler) IncomingLikes(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	userID, err := actingUser(r, "")
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load likes")
		return
	}

	likes, err := h.service.IncomingLikes(r.Context(), userID, validate.Limit(r.URL.Query().Get("limit"), 0, 0))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load likes")
		return
	}

	items := make([]dto.IncomingLikeItem, 0, len(likes))
	for _, like := range likes {
		items = append(items, dto.IncomingLikeItem{
			Actor:    like.Actor.String(),
			Decision: string(like.Decision),
			LikedAt:  like.CreatedAt,
		})
	}
	httperrors.Write(w, http.StatusOK, dto.IncomingLikesResponse{Items: items})
}
