package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/apperr"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/middleware"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/service"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/ws"
)

type MessageHandler struct {
	delivery *service.Delivery
	hub      *ws.Hub
}

func NewMessageHandler(delivery *service.Delivery, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{delivery: delivery, hub: hub}
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

// List returns a conversation's messages, chronological.
// GET /api/conversations/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID := chi.URLParam(r, "id")
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	msgs, err := h.delivery.ListMessages(r.Context(), convID, userID, limit, offset)
	if err != nil {
		writeAppErr(w, "list messages", err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// Send posts a message to the conversation. REST sends share the delivery
// rules with WebSocket sends; the hub fans the created message out so open
// sockets do not wait for the next poll.
// POST /api/conversations/{id}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.KindValidation, "invalid body")
		return
	}
	userID := middleware.GetUserID(r.Context())
	convID := chi.URLParam(r, "id")

	m, err := h.delivery.SendMessage(r.Context(), convID, userID, req.Content)
	if err != nil {
		writeAppErr(w, "send message", err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToConversation(r.Context(), convID, ws.OutgoingMessage{
			Type:    ws.EventNewMessage,
			Payload: m,
		})
	}
	writeJSON(w, http.StatusCreated, m)
}

// Edit replaces the content of the caller's own message.
// PUT /api/messages/{id}
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.KindValidation, "invalid body")
		return
	}
	userID := middleware.GetUserID(r.Context())
	msgID := chi.URLParam(r, "id")

	m, err := h.delivery.EditMessage(r.Context(), msgID, userID, req.Content)
	if err != nil {
		writeAppErr(w, "edit message", err)
		return
	}

	if h.hub != nil {
		var editedAt time.Time
		if m.EditedAt != nil {
			editedAt = *m.EditedAt
		}
		h.hub.BroadcastToConversation(r.Context(), m.ConversationID, ws.OutgoingMessage{
			Type: ws.EventMessageEdited,
			Payload: ws.MessageEditedPayload{
				MessageID:      m.ID,
				ConversationID: m.ConversationID,
				Content:        m.Content,
				EditedAt:       editedAt,
			},
		})
	}
	writeJSON(w, http.StatusOK, m)
}

// Delete soft-deletes the caller's own message.
// DELETE /api/messages/{id}
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	msgID := chi.URLParam(r, "id")

	// Resolve the conversation before the delete so the broadcast still
	// knows where the message lived.
	m, err := h.delivery.GetMessage(r.Context(), msgID, userID)
	if err != nil {
		writeAppErr(w, "delete message", err)
		return
	}
	if err := h.delivery.DeleteMessage(r.Context(), msgID, userID); err != nil {
		writeAppErr(w, "delete message", err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToConversation(r.Context(), m.ConversationID, ws.OutgoingMessage{
			Type: ws.EventMessageDeleted,
			Payload: ws.MessageDeletedPayload{
				MessageID:      msgID,
				ConversationID: m.ConversationID,
			},
		})
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
