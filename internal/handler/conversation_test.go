package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/middleware"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/model"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/repository"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/service"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/ws"
)

// Minimal stores backing one fixed conversation. The service-level fakes are
// package-private, so handler tests carry their own.

type fixedConvStore struct {
	conv         model.Conversation
	participants []model.Participant

	mu       sync.Mutex
	lastRead map[string]time.Time
}

func (s *fixedConvStore) Create(ctx context.Context, c *model.Conversation) error { return nil }

func (s *fixedConvStore) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	if id != s.conv.ID {
		return nil, repository.ErrNotFound
	}
	c := s.conv
	return &c, nil
}

func (s *fixedConvStore) FindDirect(ctx context.Context, userID1, userID2 string) (*model.Conversation, error) {
	return nil, repository.ErrNotFound
}

func (s *fixedConvStore) Deactivate(ctx context.Context, id string, at time.Time) error { return nil }

func (s *fixedConvStore) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (s *fixedConvStore) AddParticipant(ctx context.Context, p *model.Participant) error { return nil }

func (s *fixedConvStore) GetParticipants(ctx context.Context, conversationID string) ([]model.Participant, error) {
	out := make([]model.Participant, len(s.participants))
	copy(out, s.participants)
	return out, nil
}

func (s *fixedConvStore) GetParticipant(ctx context.Context, conversationID, userID string) (*model.Participant, error) {
	for i := range s.participants {
		if s.participants[i].ConversationID == conversationID && s.participants[i].UserID == userID {
			p := s.participants[i]
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fixedConvStore) IsActiveParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	p, err := s.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		return false, nil
	}
	return p.IsActive, nil
}

func (s *fixedConvStore) UpdateLastRead(ctx context.Context, conversationID, userID string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRead == nil {
		s.lastRead = make(map[string]time.Time)
	}
	s.lastRead[userID] = t
	return nil
}

func (s *fixedConvStore) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	if _, err := s.GetParticipant(ctx, s.conv.ID, userID); err != nil {
		return nil, nil
	}
	return []model.Conversation{s.conv}, nil
}

func (s *fixedConvStore) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	return 0, nil
}

type emptyMsgStore struct{}

func (emptyMsgStore) Create(ctx context.Context, m *model.Message) error { return nil }
func (emptyMsgStore) GetByID(ctx context.Context, id string) (*model.Message, error) {
	return nil, repository.ErrNotFound
}
func (emptyMsgStore) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	return nil, nil
}
func (emptyMsgStore) GetLast(ctx context.Context, conversationID string) (*model.Message, error) {
	return nil, repository.ErrNotFound
}
func (emptyMsgStore) UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error {
	return nil
}
func (emptyMsgStore) SoftDelete(ctx context.Context, id string, at time.Time) error { return nil }

type emptyNotifStore struct{}

func (emptyNotifStore) Create(ctx context.Context, n *model.Notification) error { return nil }
func (emptyNotifStore) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	return nil, repository.ErrNotFound
}
func (emptyNotifStore) ListForUser(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	return nil, nil
}
func (emptyNotifStore) UnreadCount(ctx context.Context, userID string) (int, error) { return 0, nil }
func (emptyNotifStore) MarkRead(ctx context.Context, id string, at time.Time) error { return nil }
func (emptyNotifStore) MarkAllRead(ctx context.Context, userID string, at time.Time) error {
	return nil
}
func (emptyNotifStore) SoftDelete(ctx context.Context, id string, at time.Time) error { return nil }

type mapUserStore map[string]*model.User

func (s mapUserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type noPlanStore struct{}

func (noPlanStore) GetByUser(ctx context.Context, userID string) (*model.MembershipPlan, error) {
	return nil, repository.ErrNotFound
}

// presenceSignal reports registrations so the test can wait for the hub to
// finish adding a client instead of sleeping.
type presenceSignal struct{ online chan string }

func (p *presenceSignal) SetOnline(ctx context.Context, userID string, online bool) error {
	if online {
		select {
		case p.online <- userID:
		default:
		}
	}
	return nil
}

// Marking a conversation read over HTTP must emit the same conversation_read
// event to the other participants that the socket path emits.
func TestMarkReadBroadcastsReadEvent(t *testing.T) {
	joined := time.Now().UTC().Add(-time.Hour)
	convs := &fixedConvStore{
		conv: model.Conversation{
			ID:        "conv-1",
			Type:      model.ConversationTypeDirect,
			CreatedBy: "alice",
			IsActive:  true,
			CreatedAt: joined,
			UpdatedAt: joined,
		},
		participants: []model.Participant{
			{ID: "p1", ConversationID: "conv-1", UserID: "alice", Role: model.RoleMember, JoinedAt: joined, LastReadAt: joined, IsActive: true},
			{ID: "p2", ConversationID: "conv-1", UserID: "bob", Role: model.RoleMember, JoinedAt: joined, LastReadAt: joined, IsActive: true},
		},
	}
	users := mapUserStore{
		"alice": {ID: "alice", Username: "alice", FullName: "Alice"},
		"bob":   {ID: "bob", Username: "bob", FullName: "Bob"},
	}

	notifier := service.NewNotifier(emptyNotifStore{}, users)
	delivery := service.NewDelivery(convs, emptyMsgStore{}, users, noPlanStore{}, notifier)

	presence := &presenceSignal{online: make(chan string, 1)}
	hub := ws.NewHub(delivery, convs, presence, 16)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	wsH := NewWSHandler(hub, "*")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.UserIDKey, r.URL.Query().Get("as"))
		wsH.ServeWS(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?as=bob"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	select {
	case <-presence.online:
	case <-time.After(2 * time.Second):
		t.Fatal("bob never registered with the hub")
	}

	convH := NewConversationHandler(delivery, hub)
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/conv-1/read", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "conv-1")
	reqCtx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	reqCtx = context.WithValue(reqCtx, middleware.UserIDKey, "alice")
	rec := httptest.NewRecorder()
	convH.MarkRead(rec, req.WithContext(reqCtx))
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read status = %d, body %s", rec.Code, rec.Body.String())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	var out struct {
		Type    string `json:"type"`
		Payload struct {
			ConversationID string `json:"conversation_id"`
			UserID         string `json:"user_id"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode broadcast: %v", err)
	}
	if out.Type != string(ws.EventConversationRead) {
		t.Fatalf("event type = %q, want %q", out.Type, ws.EventConversationRead)
	}
	if out.Payload.ConversationID != "conv-1" || out.Payload.UserID != "alice" {
		t.Fatalf("payload = %+v, want conv-1 read by alice", out.Payload)
	}
}
