package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/model"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/repository"
)

// In-memory store fakes. Each mirrors the SQL behavior of its repository
// counterpart closely enough for the service contracts under test.

type fakeConvStore struct {
	mu           sync.Mutex
	convs        map[string]*model.Conversation
	participants map[string][]model.Participant
}

func newFakeConvStore() *fakeConvStore {
	return &fakeConvStore{
		convs:        map[string]*model.Conversation{},
		participants: map[string][]model.Participant{},
	}
}

func (f *fakeConvStore) Create(ctx context.Context, c *model.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.convs[c.ID] = &cp
	return nil
}

func (f *fakeConvStore) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConvStore) FindDirect(ctx context.Context, userID1, userID2 string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.convs {
		if c.Type != model.ConversationTypeDirect || !c.IsActive {
			continue
		}
		if f.hasActive(id, userID1) && f.hasActive(id, userID2) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeConvStore) hasActive(conversationID, userID string) bool {
	for _, p := range f.participants[conversationID] {
		if p.UserID == userID && p.IsActive {
			return true
		}
	}
	return false
}

func (f *fakeConvStore) Deactivate(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.IsActive = false
	c.UpdatedAt = at
	return nil
}

func (f *fakeConvStore) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if c.LastMessageAt == nil || at.After(*c.LastMessageAt) {
		t := at
		c.LastMessageAt = &t
	}
	return nil
}

func (f *fakeConvStore) AddParticipant(ctx context.Context, p *model.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.participants[p.ConversationID] {
		if f.participants[p.ConversationID][i].UserID == p.UserID {
			f.participants[p.ConversationID][i].IsActive = true
			return nil
		}
	}
	f.participants[p.ConversationID] = append(f.participants[p.ConversationID], *p)
	return nil
}

func (f *fakeConvStore) GetParticipants(ctx context.Context, conversationID string) ([]model.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Participant, len(f.participants[conversationID]))
	copy(out, f.participants[conversationID])
	return out, nil
}

func (f *fakeConvStore) GetParticipant(ctx context.Context, conversationID, userID string) (*model.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.participants[conversationID] {
		if p.UserID == userID {
			cp := p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeConvStore) IsActiveParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasActive(conversationID, userID), nil
}

func (f *fakeConvStore) UpdateLastRead(ctx context.Context, conversationID, userID string, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.participants[conversationID] {
		p := &f.participants[conversationID][i]
		if p.UserID == userID && t.After(p.LastReadAt) {
			p.LastReadAt = t
		}
	}
	return nil
}

func (f *fakeConvStore) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Conversation
	for id, c := range f.convs {
		if c.IsActive && f.hasActive(id, userID) {
			out = append(out, *c)
		}
	}
	// ORDER BY last_message_at DESC NULLS LAST, created_at DESC
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastMessageAt, out[j].LastMessageAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeConvStore) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	return 0, nil
}

type fakeMsgStore struct {
	mu   sync.Mutex
	msgs []*model.Message
}

func (f *fakeMsgStore) Create(ctx context.Context, m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.msgs = append(f.msgs, &cp)
	return nil
}

func (f *fakeMsgStore) GetByID(ctx context.Context, id string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeMsgStore) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, m := range f.msgs {
		if m.ConversationID == conversationID && !m.IsDeleted {
			out = append(out, *m)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMsgStore) GetLast(ctx context.Context, conversationID string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.msgs) - 1; i >= 0; i-- {
		m := f.msgs[i]
		if m.ConversationID == conversationID && !m.IsDeleted {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeMsgStore) UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			m.Content = content
			m.IsEdited = true
			t := editedAt
			m.EditedAt = &t
			m.UpdatedAt = editedAt
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeMsgStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			m.IsDeleted = true
			t := at
			m.DeletedAt = &t
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeMsgStore) count(conversationID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.msgs {
		if m.ConversationID == conversationID && !m.IsDeleted {
			n++
		}
	}
	return n
}

type fakeNotifStore struct {
	mu     sync.Mutex
	notifs []*model.Notification
}

func (f *fakeNotifStore) Create(ctx context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *n
	f.notifs = append(f.notifs, &cp)
	return nil
}

func (f *fakeNotifStore) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifs {
		if n.ID == id && !n.IsDeleted {
			cp := *n
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeNotifStore) ListForUser(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for i := len(f.notifs) - 1; i >= 0; i-- {
		n := f.notifs[i]
		if n.UserID == userID && !n.IsDeleted {
			out = append(out, *n)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeNotifStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, x := range f.notifs {
		if x.UserID == userID && !x.IsRead && !x.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifStore) MarkRead(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifs {
		if n.ID == id && !n.IsRead {
			n.IsRead = true
			n.UpdatedAt = at
		}
	}
	return nil
}

func (f *fakeNotifStore) MarkAllRead(ctx context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifs {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.UpdatedAt = at
		}
	}
	return nil
}

func (f *fakeNotifStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifs {
		if n.ID == id {
			n.IsDeleted = true
		}
	}
	return nil
}

func (f *fakeNotifStore) forUser(userID string) []*model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Notification
	for _, n := range f.notifs {
		if n.UserID == userID && !n.IsDeleted {
			out = append(out, n)
		}
	}
	return out
}

type fakeUserStore struct {
	users map[string]*model.User
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type fakePlanStore struct {
	plans map[string]*model.MembershipPlan
}

func (f *fakePlanStore) GetByUser(ctx context.Context, userID string) (*model.MembershipPlan, error) {
	p, ok := f.plans[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeLimiter struct {
	allowed bool
	calls   int
}

func (f *fakeLimiter) CheckSendRateLimit(ctx context.Context, userID string) (bool, error) {
	f.calls++
	return f.allowed, nil
}

type fakeDedupe struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeDedupe) AcquireDedupeKey(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

type fakePush struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakePush) Notify(ctx context.Context, userID, title, body string, data map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID)
}

type fakeEvents struct {
	mu    sync.Mutex
	users []string
}

func (f *fakeEvents) NotificationCreated(userID string, n *model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
}
