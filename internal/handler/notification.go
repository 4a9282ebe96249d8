package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/middleware"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/model"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/service"
)

type NotificationHandler struct {
	notifier *service.Notifier
}

func NewNotificationHandler(notifier *service.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// List returns the caller's notifications, newest first. Supports
// ?type=message and ?unread=true filters for the polling surfaces.
// GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	notifs, err := h.notifier.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeAppErr(w, "list notifications", err)
		return
	}

	typeFilter := model.NotificationType(r.URL.Query().Get("type"))
	unreadOnly := r.URL.Query().Get("unread") == "true"
	if typeFilter != "" || unreadOnly {
		filtered := notifs[:0]
		for _, n := range notifs {
			if typeFilter != "" && n.Type != typeFilter {
				continue
			}
			if unreadOnly && n.IsRead {
				continue
			}
			filtered = append(filtered, n)
		}
		notifs = filtered
	}
	if notifs == nil {
		notifs = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notifs)
}

// UnreadCount returns the badge number.
// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	count, err := h.notifier.UnreadCount(r.Context(), userID)
	if err != nil {
		writeAppErr(w, "notification unread count", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// MarkRead marks one notification read.
// PUT /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.notifier.MarkRead(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeAppErr(w, "mark notification read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// MarkAllRead marks every unread notification of the caller read.
// PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.notifier.MarkAllRead(r.Context(), userID); err != nil {
		writeAppErr(w, "mark all notifications read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Delete soft-deletes one notification.
// DELETE /api/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.notifier.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeAppErr(w, "delete notification", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
