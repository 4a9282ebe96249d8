package model

import "testing"

func TestNotificationIcon(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotificationLike, "heart"},
		{NotificationComment, "message-circle"},
		{NotificationConnectionRequest, "user-plus"},
		{NotificationConnectionAccepted, "user-plus"},
		{NotificationMessage, "mail"},
		{NotificationApplicationApproved, "check-circle"},
		{NotificationApplicationRejected, "x-circle"},
		{NotificationPostMention, "at-sign"},
		{NotificationCommentMention, "at-sign"},
		{NotificationWelcome, "hand"},
		{NotificationType("something_new"), "bell"},
		{NotificationType(""), "bell"},
	}
	for _, tt := range tests {
		if got := tt.typ.Icon(); got != tt.want {
			t.Errorf("Icon(%q) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
