package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/relun/backend/internal/domain/enums"
	"github.com/relun/backend/internal/pkg/validate"
	convsvc "github.com/relun/backend/internal/services/conversations"
	matchsvc "github.com/relun/backend/internal/services/matches"
	"github.com/relun/backend/internal/transport/http/dto"
	httperrors "github.com/relun/backend/internal/transport/http/errors"
)

type MatchesHandler struct {
	matches       *matchsvc.Service
	conversations *convsvc.Service
	logger        *zap.Logger
}

func NewMatchesHandler(matches *matchsvc.Service, conversations *convsvc.Service, logger *zap.Logger) *MatchesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchesHandler{matches: matches, conversations: conversations, logger: logger}
}

// List serves GET /matches. The user query parameter is optional and, when
// present, must name the caller.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.conversations == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	query := r.URL.Query()
	userID, err := actingUser(r, query.Get("user"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list matches")
		return
	}

	status := enums.MatchStatus(strings.ToLower(strings.TrimSpace(query.Get("status"))))
	summaries, err := h.conversations.Summaries(r.Context(), userID, status, validate.Limit(query.Get("limit"), 0, 0))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list matches")
		return
	}

	items := make([]dto.MatchSummaryItem, 0, len(summaries))
	for _, summary := range summaries {
		item := dto.MatchSummaryItem{
			MatchItem: dto.NewMatchItem(summary.Match, userID),
			Unread:    summary.Unread,
		}
		if summary.LastMessage != nil {
			last := dto.NewMessageItem(*summary.LastMessage)
			item.LastMessage = &last
		}
		items = append(items, item)
	}
	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{Items: items})
}

func (h *MatchesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.matches == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	viewer, err := actingUser(r, "")
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load match")
		return
	}

	m, err := h.matches.Get(r.Context(), chi.URLParam(r, "id"), viewer)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load match")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.NewMatchItem(m, viewer))
}

func (h *MatchesHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	if h.matches == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	var req dto.UnmatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "invalid request body")
		return
	}
	requestor, err := actingUser(r, req.Requestor)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to unmatch")
		return
	}

	m, err := h.matches.Unmatch(r.Context(), chi.URLParam(r, "id"), requestor)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to unmatch")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.NewMatchItem(m, requestor))
}

func (h *MatchesHandler) Block(w http.ResponseWriter, r *http.Request) {
	if h.matches == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	var req dto.BlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "invalid request body")
		return
	}
	requestor, err := actingUser(r, req.Requestor)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to block")
		return
	}

	m, err := h.matches.Block(r.Context(), chi.URLParam(r, "id"), requestor, req.Reason)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to block")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.NewMatchItem(m, requestor))
}

func (h *MatchesHandler) Report(w http.ResponseWriter, r *http.Request) {
	if h.matches == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	var req dto.ReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "invalid request body")
		return
	}
	if !validate.Required(req.Reason) {
		writeBadRequest(w, httperrors.CodeValidation, "reason is required")
		return
	}
	reporter, err := actingUser(r, req.Reporter)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to report")
		return
	}

	report, err := h.matches.Report(r.Context(), chi.URLParam(r, "id"), reporter, req.Reason, req.Details)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to report")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.ReportResponse{OK: true, ID: report.ID})
}
