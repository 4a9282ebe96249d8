package ws

import (
	"context"
	"sync"
	"time"

	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/apperr"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/logger"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/model"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/service"
)

// PresenceStore persists a user's online flag. If nil, presence is not tracked.
type PresenceStore interface {
	SetOnline(ctx context.Context, userID string, online bool) error
}

// Hub routes realtime events to connected clients. Incoming messages go
// through the delivery service, so WebSocket and REST sends share one set of
// rules; polling covers clients without a live socket.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]struct{}
	total    int
	maxConns int

	delivery *service.Delivery
	convs    service.ConversationStore
	presence PresenceStore

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(delivery *service.Delivery, convs service.ConversationStore, presence PresenceStore, maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		maxConns:   maxConns,
		delivery:   delivery,
		convs:      convs,
		presence:   presence,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	allClients := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			allClients = append(allClients, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	// Close connections outside the lock (network I/O).
	for _, c := range allClients {
		c.Close()
	}
	for _, c := range allClients {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.maxConns, c.userID)
		c.Close()
		return
	}
	if _, ok := h.clients[c.userID]; !ok {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.total++
	h.mu.Unlock()

	h.setPresence(c.userID, true)
	h.broadcastUserStatus(c.userID, true)
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	h.total--
	lastClient := len(clients) == 0
	if lastClient {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	// Network I/O outside the lock.
	c.Close()

	if lastClient {
		h.setPresence(c.userID, false)
		h.broadcastUserStatus(c.userID, false)
	}
}

func (h *Hub) setPresence(userID string, online bool) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.presence.SetOnline(ctx, userID, online); err != nil {
		logger.Errorf("ws set online=%v user=%s: %v", online, userID, err)
	}
}

// HandleMessage dispatches incoming WebSocket messages.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	switch msg.Type {
	case EventNewMessage:
		h.handleNewMessage(ctx, c, msg)
	case EventMessageEdited:
		h.handleEditMessage(ctx, c, msg)
	case EventMessageDeleted:
		h.handleDeleteMessage(ctx, c, msg)
	case EventConversationRead:
		h.handleConversationRead(ctx, c, msg)
	case EventTyping:
		h.handleTyping(ctx, c, msg)
	default:
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "unknown event type"})
	}
}

func (h *Hub) handleNewMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleNewMessage", time.Now())()
	if msg.ConversationID == "" {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "conversation_id required"})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	m, err := h.delivery.SendMessage(ctx, msg.ConversationID, c.userID, msg.Content)
	if err != nil {
		h.sendServiceError(c, "ws send message", err)
		return
	}

	h.BroadcastToConversation(ctx, msg.ConversationID, OutgoingMessage{Type: EventNewMessage, Payload: m})
}

func (h *Hub) handleEditMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleEditMessage", time.Now())()
	if msg.MessageID == "" {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "message_id required"})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	m, err := h.delivery.EditMessage(ctx, msg.MessageID, c.userID, msg.Content)
	if err != nil {
		h.sendServiceError(c, "ws edit message", err)
		return
	}

	var editedAt time.Time
	if m.EditedAt != nil {
		editedAt = *m.EditedAt
	}
	h.BroadcastToConversation(ctx, m.ConversationID, OutgoingMessage{Type: EventMessageEdited, Payload: MessageEditedPayload{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		Content:        m.Content,
		EditedAt:       editedAt,
	}})
}

func (h *Hub) handleDeleteMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleDeleteMessage", time.Now())()
	if msg.MessageID == "" {
		return
	}
	if msg.ConversationID == "" {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "conversation_id required"})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.delivery.DeleteMessage(ctx, msg.MessageID, c.userID); err != nil {
		h.sendServiceError(c, "ws delete message", err)
		return
	}

	h.BroadcastToConversation(ctx, msg.ConversationID, OutgoingMessage{Type: EventMessageDeleted, Payload: MessageDeletedPayload{
		MessageID:      msg.MessageID,
		ConversationID: msg.ConversationID,
	}})
}

func (h *Hub) handleConversationRead(ctx context.Context, c *Client, msg IncomingMessage) {
	if msg.ConversationID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.delivery.MarkRead(ctx, msg.ConversationID, c.userID); err != nil {
		h.sendServiceError(c, "ws mark read", err)
		return
	}

	h.BroadcastConversationRead(ctx, msg.ConversationID, c.userID)
}

// BroadcastConversationRead tells the other participants that userID's read
// cursor advanced, so their read receipts refresh without waiting for a poll.
// Shared by the socket and REST mark-read paths.
func (h *Hub) BroadcastConversationRead(ctx context.Context, conversationID, userID string) {
	out := OutgoingMessage{Type: EventConversationRead, Payload: ConversationReadPayload{
		ConversationID: conversationID,
		UserID:         userID,
		LastReadAt:     time.Now().UTC(),
	}}
	h.broadcastExcept(ctx, conversationID, userID, out)
}

func (h *Hub) handleTyping(ctx context.Context, c *Client, msg IncomingMessage) {
	if msg.ConversationID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	// Typing is fire-and-forget; no persistence, participants only.
	ok, err := h.convs.IsActiveParticipant(ctx, msg.ConversationID, c.userID)
	if err != nil || !ok {
		return
	}
	out := OutgoingMessage{Type: EventTyping, Payload: TypingPayload{
		ConversationID: msg.ConversationID,
		UserID:         c.userID,
	}}
	h.broadcastExcept(ctx, msg.ConversationID, c.userID, out)
}

func (h *Hub) sendServiceError(c *Client, op string, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		logger.Errorf("%s user=%s: %v", op, c.userID, err)
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "internal error"})
		return
	}
	h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: apperr.MessageOf(err)})
}

// NotificationCreated pushes a freshly created notification to the user's
// open connections. Satisfies the notifier's event sink.
func (h *Hub) NotificationCreated(userID string, n *model.Notification) {
	h.SendToUser(userID, OutgoingMessage{Type: EventNotification, Payload: n})
}

func (h *Hub) broadcastUserStatus(userID string, online bool) {
	evType := EventUserOffline
	if online {
		evType = EventUserOnline
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	convs, err := h.convs.ListForUser(ctx, userID)
	if err != nil {
		logger.Errorf("ws get conversations for status broadcast user=%s: %v", userID, err)
		return
	}

	out := OutgoingMessage{
		Type: evType,
		Payload: UserStatusPayload{
			UserID: userID,
			Online: online,
		},
	}

	notified := make(map[string]struct{}, 16)
	for _, conv := range convs {
		participants, err := h.convs.GetParticipants(ctx, conv.ID)
		if err != nil {
			logger.Errorf("ws get participants for status broadcast conv=%s: %v", conv.ID, err)
			continue
		}
		for i := range participants {
			p := &participants[i]
			if p.UserID == userID || !p.IsActive {
				continue
			}
			if _, ok := notified[p.UserID]; ok {
				continue
			}
			notified[p.UserID] = struct{}{}
			h.SendToUser(p.UserID, out)
		}
	}
}

// BroadcastToConversation sends an event to every active participant.
func (h *Hub) BroadcastToConversation(ctx context.Context, conversationID string, msg OutgoingMessage) {
	h.broadcastExcept(ctx, conversationID, "", msg)
}

func (h *Hub) broadcastExcept(ctx context.Context, conversationID, exceptUserID string, msg OutgoingMessage) {
	participants, err := h.convs.GetParticipants(ctx, conversationID)
	if err != nil {
		logger.Errorf("ws broadcast to conversation %s: %v", conversationID, err)
		return
	}
	for i := range participants {
		p := &participants[i]
		if !p.IsActive || p.UserID == exceptUserID {
			continue
		}
		h.SendToUser(p.UserID, msg)
	}
}

// SendToUser fans an event out to all of the user's open connections.
func (h *Hub) SendToUser(userID string, msg OutgoingMessage) {
	h.mu.RLock()
	clients, ok := h.clients[userID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(clients))
	for c := range clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// Backpressure: send buffer full, close slow client.
		logger.Errorf("ws send buffer full, closing slow client user=%s", c.userID)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
