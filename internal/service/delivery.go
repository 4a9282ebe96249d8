package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/apperr"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/logger"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/model"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/repository"
)

const (
	messageListLimit  = 100
	maxContentLength  = 10000
	notifyExcerptSize = 120
)

// Delivery owns the lifecycle of conversations and messages and the
// per-participant read cursors behind unread badges and read receipts.
// All timestamps are server-assigned UTC; client clocks never order anything.
type Delivery struct {
	convs    ConversationStore
	msgs     MessageStore
	users    UserStore
	plans    PlanStore
	notifier *Notifier
	limiter  SendLimiter
}

func NewDelivery(convs ConversationStore, msgs MessageStore, users UserStore, plans PlanStore, notifier *Notifier) *Delivery {
	return &Delivery{convs: convs, msgs: msgs, users: users, plans: plans, notifier: notifier}
}

// WithSendLimiter enables per-user messaging flood control.
func (s *Delivery) WithSendLimiter(l SendLimiter) *Delivery { s.limiter = l; return s }

// CreateDirectConversation finds or creates the direct conversation between
// the unordered pair (initiatorID, targetUserID). Calling it twice, in either
// argument order, yields the same conversation.
func (s *Delivery) CreateDirectConversation(ctx context.Context, initiatorID, targetUserID string) (*model.Conversation, error) {
	if targetUserID == "" {
		return nil, apperr.Validation("user_id is required")
	}
	if targetUserID == initiatorID {
		return nil, apperr.Conflict("cannot start a conversation with yourself")
	}
	if _, err := s.users.GetByID(ctx, targetUserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}

	existing, err := s.convs.FindDirect(ctx, initiatorID, targetUserID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:        uuid.New().String(),
		Type:      model.ConversationTypeDirect,
		CreatedBy: initiatorID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, err
	}
	for _, uid := range []string{initiatorID, targetUserID} {
		p := &model.Participant{
			ID:             uuid.New().String(),
			ConversationID: conv.ID,
			UserID:         uid,
			Role:           model.RoleMember,
			JoinedAt:       now,
			LastReadAt:     now,
			IsActive:       true,
		}
		if err := s.convs.AddParticipant(ctx, p); err != nil {
			return nil, err
		}
	}
	return conv, nil
}

// CreateGroupConversation creates a named group with the creator as its sole
// initial participant, role moderator.
func (s *Delivery) CreateGroupConversation(ctx context.Context, creatorID, name, description string) (*model.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:          uuid.New().String(),
		Type:        model.ConversationTypeGroup,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedBy:   creatorID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, err
	}
	p := &model.Participant{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		UserID:         creatorID,
		Role:           model.RoleModerator,
		JoinedAt:       now,
		LastReadAt:     now,
		IsActive:       true,
	}
	if err := s.convs.AddParticipant(ctx, p); err != nil {
		return nil, err
	}
	return conv, nil
}

// SendMessage posts a message, advances the conversation's last_message_at
// and fans out message notifications to the other active participants.
// Plan gating is enforced here, not in the UI: the free public tier gets a
// locked error and no row is created.
func (s *Delivery) SendMessage(ctx context.Context, conversationID, senderID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("content is required")
	}
	if len(content) > maxContentLength {
		return nil, apperr.Validation("content is too long")
	}

	conv, err := s.activeConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, conversationID, senderID); err != nil {
		return nil, err
	}
	if err := s.requireMessagingPlan(ctx, senderID); err != nil {
		return nil, err
	}
	if s.limiter != nil {
		allowed, err := s.limiter.CheckSendRateLimit(ctx, senderID)
		if err != nil {
			logger.Errorf("send rate limit user=%s: %v", senderID, err)
		} else if !allowed {
			return nil, apperr.New(apperr.KindRateLimited, "too many messages, slow down")
		}
	}

	now := time.Now().UTC()
	m := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		MessageType:    model.MessageTypeText,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.msgs.Create(ctx, m); err != nil {
		return nil, err
	}
	if err := s.convs.TouchLastMessage(ctx, conversationID, now); err != nil {
		logger.Errorf("touch last message conv=%s: %v", conversationID, err)
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		logger.Errorf("send message get sender user=%s: %v", senderID, err)
	} else {
		pub := sender.ToPublic()
		m.Sender = &pub
	}

	s.fanOutMessageNotifications(ctx, conv, m, sender)
	return m, nil
}

func (s *Delivery) fanOutMessageNotifications(ctx context.Context, conv *model.Conversation, m *model.Message, sender *model.User) {
	participants, err := s.convs.GetParticipants(ctx, conv.ID)
	if err != nil {
		logger.Errorf("fan out get participants conv=%s: %v", conv.ID, err)
		return
	}
	title := "New message"
	if sender != nil {
		title = "New message from " + sender.FullName
	}
	if conv.Type == model.ConversationTypeGroup && conv.Name != "" {
		title += " in " + conv.Name
	}
	for i := range participants {
		p := &participants[i]
		if p.UserID == m.SenderID || !p.IsActive {
			continue
		}
		_, err := s.notifier.Notify(ctx, p.UserID, model.NotificationMessage, title, truncate(m.Content, notifyExcerptSize), &NotifyOptions{
			ActionURL:         "/messages/" + conv.ID,
			RelatedEntityID:   conv.ID,
			RelatedEntityType: "conversation",
			ActorID:           m.SenderID,
			Metadata:          map[string]string{"message_id": m.ID},
		})
		if err != nil {
			logger.Errorf("fan out notify user=%s conv=%s: %v", p.UserID, conv.ID, err)
		}
	}
}

// GetMessage returns one visible message. Participants only.
func (s *Delivery) GetMessage(ctx context.Context, messageID, callerID string) (*model.Message, error) {
	m, err := s.visibleMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, m.ConversationID, callerID); err != nil {
		return nil, err
	}
	return m, nil
}

// EditMessage replaces the content of the sender's own message. created_at
// is preserved; is_edited and edited_at record the change.
func (s *Delivery) EditMessage(ctx context.Context, messageID, editorID, newContent string) (*model.Message, error) {
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, apperr.Validation("content is required")
	}
	m, err := s.visibleMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m.SenderID != editorID {
		return nil, apperr.Forbidden("only the sender can edit a message")
	}
	now := time.Now().UTC()
	if err := s.msgs.UpdateContent(ctx, messageID, newContent, now); err != nil {
		return nil, err
	}
	m.Content = newContent
	m.IsEdited = true
	m.EditedAt = &now
	m.UpdatedAt = now
	return m, nil
}

// DeleteMessage soft-deletes the sender's own message. Deleted messages are
// excluded from all listings; no tombstone is rendered.
func (s *Delivery) DeleteMessage(ctx context.Context, messageID, requesterID string) error {
	m, err := s.visibleMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID != requesterID {
		return apperr.Forbidden("only the sender can delete a message")
	}
	return s.msgs.SoftDelete(ctx, messageID, time.Now().UTC())
}

// DeleteConversation deactivates a conversation. Any active participant may
// do it; messages are kept but the conversation leaves everyone's list.
func (s *Delivery) DeleteConversation(ctx context.Context, conversationID, requesterID string) error {
	if _, err := s.activeConversation(ctx, conversationID); err != nil {
		return err
	}
	if err := s.requireParticipant(ctx, conversationID, requesterID); err != nil {
		return err
	}
	return s.convs.Deactivate(ctx, conversationID, time.Now().UTC())
}

// MarkRead advances the caller's read cursor to now. Called whenever a
// conversation becomes the active one in the UI. The cursor never moves
// backwards.
func (s *Delivery) MarkRead(ctx context.Context, conversationID, userID string) error {
	if _, err := s.activeConversation(ctx, conversationID); err != nil {
		return err
	}
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return err
	}
	return s.convs.UpdateLastRead(ctx, conversationID, userID, time.Now().UTC())
}

// ListConversations returns the caller's active conversations ordered by
// last_message_at descending, each enriched with last message, participant
// profiles, unread flag and unread count.
func (s *Delivery) ListConversations(ctx context.Context, userID string) ([]model.ConversationView, error) {
	convs, err := s.convs.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]model.ConversationView, 0, len(convs))
	for i := range convs {
		view, err := s.buildView(ctx, &convs[i], userID)
		if err != nil {
			logger.Errorf("list conversations enrich conv=%s: %v", convs[i].ID, err)
			continue
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *Delivery) buildView(ctx context.Context, conv *model.Conversation, userID string) (*model.ConversationView, error) {
	participants, err := s.convs.GetParticipants(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	pubs := make([]model.UserPublic, 0, len(participants))
	var caller *model.Participant
	for i := range participants {
		p := &participants[i]
		if p.UserID == userID {
			caller = p
		}
		u, err := s.users.GetByID(ctx, p.UserID)
		if err != nil {
			continue
		}
		pubs = append(pubs, u.ToPublic())
	}

	lastMsg, err := s.msgs.GetLast(ctx, conv.ID)
	if err != nil {
		logger.Errorf("build view last message conv=%s: %v", conv.ID, err)
	}
	unreadCount, err := s.convs.UnreadCount(ctx, conv.ID, userID)
	if err != nil {
		logger.Errorf("build view unread count conv=%s: %v", conv.ID, err)
	}

	return &model.ConversationView{
		Conversation: *conv,
		LastMessage:  lastMsg,
		Participants: pubs,
		Unread:       lastMsg.UnreadFor(caller),
		UnreadCount:  unreadCount,
	}, nil
}

// ListMessages returns the conversation's messages in chronological order,
// soft-deleted rows excluded. Participants only.
func (s *Delivery) ListMessages(ctx context.Context, conversationID, callerID string, limit, offset int) ([]model.Message, error) {
	if _, err := s.activeConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, conversationID, callerID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > messageListLimit {
		limit = messageListLimit
	}
	messages, err := s.msgs.ListByConversation(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if messages[i].ReplyToID == nil {
			continue
		}
		reply, err := s.msgs.GetByID(ctx, *messages[i].ReplyToID)
		if err == nil && !reply.IsDeleted {
			messages[i].ReplyTo = reply
		}
	}
	return messages, nil
}

// GetConversation returns the conversation with its full participant records;
// their last_read_at values drive the client's read-receipt computation.
func (s *Delivery) GetConversation(ctx context.Context, conversationID, callerID string) (*model.ConversationDetail, error) {
	conv, err := s.activeConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, conversationID, callerID); err != nil {
		return nil, err
	}
	participants, err := s.convs.GetParticipants(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	lastMsg, err := s.msgs.GetLast(ctx, conversationID)
	if err != nil {
		logger.Errorf("get conversation last message conv=%s: %v", conversationID, err)
	}
	unreadCount, err := s.convs.UnreadCount(ctx, conversationID, callerID)
	if err != nil {
		logger.Errorf("get conversation unread count conv=%s: %v", conversationID, err)
	}
	return &model.ConversationDetail{
		Conversation: *conv,
		Participants: participants,
		LastMessage:  lastMsg,
		UnreadCount:  unreadCount,
	}, nil
}

func (s *Delivery) visibleMessage(ctx context.Context, messageID string) (*model.Message, error) {
	m, err := s.msgs.GetByID(ctx, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("message not found")
	}
	if err != nil {
		return nil, err
	}
	if m.IsDeleted {
		return nil, apperr.NotFound("message not found")
	}
	return m, nil
}

func (s *Delivery) activeConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("conversation not found")
	}
	if err != nil {
		return nil, err
	}
	if !conv.IsActive {
		return nil, apperr.NotFound("conversation not found")
	}
	return conv, nil
}

func (s *Delivery) requireParticipant(ctx context.Context, conversationID, userID string) error {
	ok, err := s.convs.IsActiveParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("not a participant of this conversation")
	}
	return nil
}

// requireMessagingPlan is the server-side plan gate. Users without a plan
// record count as public tier; client-side checks are a UX convenience only.
func (s *Delivery) requireMessagingPlan(ctx context.Context, userID string) error {
	plan, err := s.plans.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Locked("messaging requires a paid membership plan")
	}
	if err != nil {
		return err
	}
	if !plan.CanMessage || !plan.Active(time.Now().UTC()) {
		return apperr.Locked("messaging requires a paid membership plan")
	}
	return nil
}
