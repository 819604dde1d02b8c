package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/relun/backend/internal/pkg/validate"
	convsvc "github.com/relun/backend/internal/services/conversations"
	"github.com/relun/backend/internal/transport/http/dto"
	httperrors "github.com/relun/backend/internal/transport/http/errors"
)

type MessagesHandler struct {
	service *convsvc.Service
	logger  *zap.Logger
}

func NewMessagesHandler(service *convsvc.Service, logger *zap.Logger) *MessagesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessagesHandler{service: service, logger: logger}
}

func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "invalid request body")
		return
	}
	sender, err := actingUser(r, req.Sender)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to send message")
		return
	}

	msg, err := h.service.Append(r.Context(), chi.URLParam(r, "id"), sender, req.Body)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to send message")
		return
	}
	httperrors.Write(w, http.StatusCreated, dto.NewMessageItem(msg))
}

func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	viewer, err := actingUser(r, "")
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load messages")
		return
	}

	query := r.URL.Query()
	after, ok := validate.Cursor(query.Get("after"))
	if !ok {
		writeBadRequest(w, httperrors.CodeValidation, "after must be a non-negative integer")
		return
	}

	page, err := h.service.List(r.Context(), chi.URLParam(r, "id"), viewer, after, validate.Limit(query.Get("limit"), 0, 0))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load messages")
		return
	}

	items := make([]dto.MessageItem, 0, len(page.Items))
	for _, view := range page.Items {
		items = append(items, dto.NewMessageViewItem(view))
	}
	httperrors.Write(w, http.StatusOK, dto.MessagesResponse{
		Items:     items,
		NextAfter: page.NextAfter,
		HasMore:   page.HasMore,
	})
}

func (h *MessagesHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	var req dto.MarkReadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "invalid request body")
		return
	}
	reader, err := actingUser(r, req.Reader)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to mark read")
		return
	}

	cursor, err := h.service.MarkRead(r.Context(), chi.URLParam(r, "id"), reader, req.Sequence)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to mark read")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.NewCursorResponse(cursor))
}
