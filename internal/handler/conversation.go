package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/apperr"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/middleware"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/service"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/ws"
)

type ConversationHandler struct {
	delivery *service.Delivery
	hub      *ws.Hub
}

func NewConversationHandler(delivery *service.Delivery, hub *ws.Hub) *ConversationHandler {
	return &ConversationHandler{delivery: delivery, hub: hub}
}

type CreateDirectRequest struct {
	UserID string `json:"user_id"`
}

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateDirect finds or creates the direct conversation with the given user.
// POST /api/conversations/direct
func (h *ConversationHandler) CreateDirect(w http.ResponseWriter, r *http.Request) {
	var req CreateDirectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.KindValidation, "invalid body")
		return
	}
	userID := middleware.GetUserID(r.Context())

	conv, err := h.delivery.CreateDirectConversation(r.Context(), userID, req.UserID)
	if err != nil {
		writeAppErr(w, "create direct conversation", err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToConversation(r.Context(), conv.ID, ws.OutgoingMessage{
			Type:    ws.EventConversationCreated,
			Payload: conv,
		})
	}
	writeJSON(w, http.StatusCreated, conv)
}

// CreateGroup creates a named group conversation.
// POST /api/conversations/group
func (h *ConversationHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.KindValidation, "invalid body")
		return
	}
	userID := middleware.GetUserID(r.Context())

	conv, err := h.delivery.CreateGroupConversation(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		writeAppErr(w, "create group conversation", err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

// List returns the caller's conversations, most recent activity first.
// GET /api/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	views, err := h.delivery.ListConversations(r.Context(), userID)
	if err != nil {
		writeAppErr(w, "list conversations", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// Get returns one conversation with full participant read cursors.
// GET /api/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID := chi.URLParam(r, "id")

	detail, err := h.delivery.GetConversation(r.Context(), convID, userID)
	if err != nil {
		writeAppErr(w, "get conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// MarkRead advances the caller's read cursor.
// POST /api/conversations/{id}/read
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID := chi.URLParam(r, "id")

	if err := h.delivery.MarkRead(r.Context(), convID, userID); err != nil {
		writeAppErr(w, "mark conversation read", err)
		return
	}

	// Same event the socket path emits, so read receipts do not lag behind
	// the next poll when the read came over HTTP.
	if h.hub != nil {
		h.hub.BroadcastConversationRead(r.Context(), convID, userID)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Delete deactivates a conversation for everyone.
// DELETE /api/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID := chi.URLParam(r, "id")

	if err := h.delivery.DeleteConversation(r.Context(), convID, userID); err != nil {
		writeAppErr(w, "delete conversation", err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToConversation(r.Context(), convID, ws.OutgoingMessage{
			Type: ws.EventConversationDeleted,
			Payload: ws.ConversationDeletedPayload{
				ConversationID: convID,
				DeletedBy:      userID,
			},
		})
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
