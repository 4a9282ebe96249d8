package service

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/apperr"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/model"
)

func newTestNotifier(t *testing.T) (*Notifier, *fakeNotifStore) {
	t.Helper()
	notifs := &fakeNotifStore{}
	users := &fakeUserStore{users: map[string]*model.User{
		"alice": {ID: "alice", Username: "alice", FullName: "Alice A", Email: "alice@example.com"},
		"bob":   {ID: "bob", Username: "bob", FullName: "Bob B", Email: "bob@example.com"},
	}}
	return NewNotifier(notifs, users), notifs
}

func TestNotifyCreatesInboxRow(t *testing.T) {
	s, notifs := newTestNotifier(t)
	n, err := s.Notify(context.Background(), "bob", model.NotificationLike, "Alice liked your post", "", &NotifyOptions{
		ActorID:         "alice",
		RelatedEntityID: "post-1",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if n == nil || n.ID == "" {
		t.Fatal("expected a created notification")
	}
	if n.IsRead {
		t.Fatal("new notification must start unread")
	}
	if got := len(notifs.forUser("bob")); got != 1 {
		t.Fatalf("stored rows = %d, want 1", got)
	}
}

func TestNotifySuppressesSelfAction(t *testing.T) {
	s, notifs := newTestNotifier(t)
	n, err := s.Notify(context.Background(), "alice", model.NotificationLike, "You liked your own post", "", &NotifyOptions{
		ActorID: "alice",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if n != nil {
		t.Fatal("self-action must be suppressed")
	}
	if got := len(notifs.forUser("alice")); got != 0 {
		t.Fatalf("stored rows = %d, want 0", got)
	}
}

func TestNotifyValidation(t *testing.T) {
	s, _ := newTestNotifier(t)
	if _, err := s.Notify(context.Background(), "", model.NotificationLike, "t", "", nil); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("missing user: got %v", err)
	}
	if _, err := s.Notify(context.Background(), "bob", model.NotificationLike, "", "", nil); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("missing title: got %v", err)
	}
}

func TestNotifyDedupesRepeatsWithinMinute(t *testing.T) {
	s, notifs := newTestNotifier(t)
	s.WithDedupe(&fakeDedupe{})
	ctx := context.Background()
	opts := &NotifyOptions{ActorID: "alice", RelatedEntityID: "post-1"}

	first, err := s.Notify(ctx, "bob", model.NotificationLike, "Alice liked your post", "", opts)
	if err != nil || first == nil {
		t.Fatalf("first notify: n=%v err=%v", first, err)
	}
	second, err := s.Notify(ctx, "bob", model.NotificationLike, "Alice liked your post", "", opts)
	if err != nil {
		t.Fatalf("second notify: %v", err)
	}
	if second != nil {
		t.Fatal("repeat within the same minute must be dropped")
	}
	if got := len(notifs.forUser("bob")); got != 1 {
		t.Fatalf("stored rows = %d, want 1", got)
	}

	// A different related entity is not a duplicate.
	other, err := s.Notify(ctx, "bob", model.NotificationLike, "Alice liked your post", "", &NotifyOptions{
		ActorID: "alice", RelatedEntityID: "post-2",
	})
	if err != nil || other == nil {
		t.Fatalf("distinct entity: n=%v err=%v", other, err)
	}
}

func TestDedupeKeyBucketsByMinute(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 30, 5, 0, time.UTC)
	k1 := dedupeKey("bob", model.NotificationLike, "post-1", base)
	k2 := dedupeKey("bob", model.NotificationLike, "post-1", base.Add(30*time.Second))
	k3 := dedupeKey("bob", model.NotificationLike, "post-1", base.Add(2*time.Minute))
	if k1 != k2 {
		t.Fatalf("same minute produced different keys: %s vs %s", k1, k2)
	}
	if k1 == k3 {
		t.Fatalf("different minutes produced the same key: %s", k1)
	}
}

func TestNotifyEmitsRealtimeEvent(t *testing.T) {
	s, _ := newTestNotifier(t)
	events := &fakeEvents{}
	s.WithEvents(events)
	if _, err := s.Notify(context.Background(), "bob", model.NotificationComment, "New comment", "nice post", nil); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(events.users) != 1 || events.users[0] != "bob" {
		t.Fatalf("realtime events = %v, want [bob]", events.users)
	}
}

func TestMarkReadIsOneWay(t *testing.T) {
	s, notifs := newTestNotifier(t)
	ctx := context.Background()
	n, _ := s.Notify(ctx, "bob", model.NotificationComment, "New comment", "", nil)

	if err := s.MarkRead(ctx, n.ID, "bob"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	// Already-read is a no-op, not an error.
	if err := s.MarkRead(ctx, n.ID, "bob"); err != nil {
		t.Fatalf("repeat mark read: %v", err)
	}
	got, _ := notifs.GetByID(ctx, n.ID)
	if !got.IsRead {
		t.Fatal("notification not marked read")
	}
	count, _ := s.UnreadCount(ctx, "bob")
	if count != 0 {
		t.Fatalf("unread count = %d, want 0", count)
	}
}

func TestMarkReadOwnerOnly(t *testing.T) {
	s, _ := newTestNotifier(t)
	ctx := context.Background()
	n, _ := s.Notify(ctx, "bob", model.NotificationComment, "New comment", "", nil)

	if err := s.MarkRead(ctx, n.ID, "alice"); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := s.Delete(ctx, n.ID, "alice"); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden delete, got %v", err)
	}
	if err := s.MarkRead(ctx, "no-such-id", "bob"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	s, _ := newTestNotifier(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := s.Notify(ctx, "bob", model.NotificationComment, "New comment", "", nil); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	if err := s.MarkAllRead(ctx, "bob"); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	count, _ := s.UnreadCount(ctx, "bob")
	if count != 0 {
		t.Fatalf("unread count = %d, want 0", count)
	}
}

func TestDeleteHidesNotification(t *testing.T) {
	s, _ := newTestNotifier(t)
	ctx := context.Background()
	n, _ := s.Notify(ctx, "bob", model.NotificationComment, "New comment", "", nil)

	if err := s.Delete(ctx, n.ID, "bob"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ := s.List(ctx, "bob", 0, 0)
	if len(list) != 0 {
		t.Fatalf("deleted notification still listed: %+v", list)
	}
	if err := s.MarkRead(ctx, n.ID, "bob"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("ã", 80) // 160 bytes of 2-byte runes, cut lands mid-rune
	got := truncate(long, notifyExcerptSize)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated excerpt is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	if len(got) > notifyExcerptSize {
		t.Fatalf("excerpt longer than limit: %d bytes", len(got))
	}
	if short := truncate("olá", 120); short != "olá" {
		t.Fatalf("short strings must pass through, got %q", short)
	}
}

func TestIconFallback(t *testing.T) {
	if model.NotificationLike.Icon() != "heart" {
		t.Fatal("like icon")
	}
	if model.NotificationType("made_up").Icon() != "bell" {
		t.Fatal("unknown types must fall back to bell")
	}
}
