package handler

import (
	"encoding/json"
	"net/http"

	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/apperr"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/middleware"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/push"
)

// PushHandler manages Web Push subscriptions (session required).
type PushHandler struct {
	client *push.Client
}

func NewPushHandler(client *push.Client) *PushHandler {
	return &PushHandler{client: client}
}

// SubscribeRequest carries the subscription from PushManager.getSubscription().
type SubscribeRequest struct {
	Subscription push.PushSubscription `json:"subscription"`
}

// Subscribe stores the caller's push subscription.
// POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.KindValidation, "invalid body")
		return
	}
	if req.Subscription.Endpoint == "" || req.Subscription.Keys.P256dh == "" || req.Subscription.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, apperr.KindValidation, "subscription.endpoint and subscription.keys required")
		return
	}
	if err := h.client.Subscribe(r.Context(), userID, req.Subscription); err != nil {
		writeAppErr(w, "push subscribe", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnsubscribeRequest removes a subscription by endpoint.
type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe removes the caller's push subscription.
// DELETE /api/push/subscribe
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var req UnsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.KindValidation, "invalid body")
		return
	}
	if req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, apperr.KindValidation, "endpoint required")
		return
	}
	if err := h.client.Unsubscribe(r.Context(), userID, req.Endpoint); err != nil {
		writeAppErr(w, "push unsubscribe", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
