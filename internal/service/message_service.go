package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"microsocial/internal/apperror"
	"microsocial/internal/models"
	"microsocial/internal/realtime"
	"microsocial/internal/repository"
)

const unknownUserName = "Unknown"

type MessageService interface {
	SendMessage(ctx context.Context, senderID, receiverID, content string) (*models.Message, error)
	ListConversations(ctx context.Context, callerID string) ([]*models.Conversation, error)
	GetConversation(ctx context.Context, callerID, counterpartID string) ([]*models.Message, error)
}

type messageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	notifier    realtime.Notifier
	log         *zap.Logger
}

func NewMessageService(messageRepo repository.MessageRepository, userRepo repository.UserRepository, notifier realtime.Notifier, log *zap.Logger) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		log:         log,
	}
}

func (m *messageService) SendMessage(ctx context.Context, senderID, receiverID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	receiverID = strings.TrimSpace(receiverID)

	if content == "" {
		return nil, apperror.ValidationFailed("content", "message cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, apperror.ValidationFailed("content", "message is too long")
	}
	if receiverID == "" {
		return nil, apperror.ValidationFailed("receiverId", "receiver is required")
	}
	if receiverID == senderID {
		return nil, apperror.ValidationFailed("receiverId", "cannot send a message to yourself")
	}

	if err := requireAccount(ctx, m.userRepo, senderID); err != nil {
		return nil, err
	}
	if _, err := m.userRepo.GetByUserID(ctx, receiverID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := m.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	m.notifier.Notify(ctx, realtime.UserChannel(receiverID), realtime.EventNewMessage, msg)
	return msg, nil
}

// ListConversations builds the caller's inbox: one entry per counterpart with
// the latest message, most recent activity first.
func (m *messageService) ListConversations(ctx context.Context, callerID string) ([]*models.Conversation, error) {
	messages, err := m.messageRepo.ListInvolving(ctx, callerID)
	if err != nil {
		return nil, err
	}

	byCounterpart := make(map[string]*models.Conversation)
	for _, msg := range messages {
		counterpart := msg.ReceiverID
		if msg.ReceiverID == callerID {
			counterpart = msg.SenderID
		}

		conv, ok := byCounterpart[counterpart]
		if !ok {
			conv = &models.Conversation{CounterpartID: counterpart, LastMessage: *msg}
			byCounterpart[counterpart] = conv
		} else if msg.CreatedAt.After(conv.LastMessage.CreatedAt) {
			conv.LastMessage = *msg
		}

		if msg.ReceiverID == callerID && !msg.Read {
			conv.UnreadCount++
		}
	}

	conversations := make([]*models.Conversation, 0, len(byCounterpart))
	for _, conv := range byCounterpart {
		m.describeCounterpart(ctx, conv)
		conversations = append(conversations, conv)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessage.CreatedAt.After(conversations[j].LastMessage.CreatedAt)
	})

	return conversations, nil
}

func (m *messageService) describeCounterpart(ctx context.Context, conv *models.Conversation) {
	user, err := m.userRepo.GetByUserID(ctx, conv.CounterpartID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			m.log.Warn("failed to load conversation counterpart",
				zap.String("userId", conv.CounterpartID),
				zap.Error(err),
			)
		}
		conv.Name = unknownUserName
		return
	}

	conv.Name = user.Name
	conv.Image = user.Image
}

// GetConversation returns the thread in chronological order and marks the
// counterpart's messages to the caller as read.
func (m *messageService) GetConversation(ctx context.Context, callerID, counterpartID string) ([]*models.Message, error) {
	messages, err := m.messageRepo.ListBetween(ctx, callerID, counterpartID)
	if err != nil {
		return nil, err
	}

	if _, err := m.messageRepo.MarkRead(ctx, counterpartID, callerID); err != nil {
		return nil, err
	}

	return messages, nil
}
