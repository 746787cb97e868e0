package services

import (
	"context"

	"github.com/Ktiseos-Nyx/plural-chat/contract"
	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/repositories"
	"github.com/Ktiseos-Nyx/plural-chat/runtime"
	"github.com/google/uuid"
)

const maxPageSize = 100

type IChatService interface {
	Connect(accountID domain.AccountID, sink contract.EventSink) (sessionID string)
	Disconnect(accountID domain.AccountID, sessionID string)
	Post(ctx context.Context, origin runtime.Origin, evt domain.InboundEvent) error
	History(ctx context.Context, channelID domain.ChannelID, cursor *string, limit int) ([]domain.Message, *string, error)
}

// EventHandler is the inbound side of the router.
type EventHandler interface {
	Handle(ctx context.Context, origin runtime.Origin, evt domain.InboundEvent) error
}

type ChatService struct {
	router   EventHandler
	registry contract.IRegistry
	messages repositories.IMessageRepository
}

func NewChatService(router EventHandler, registry contract.IRegistry, messages repositories.IMessageRepository) *ChatService {
	return &ChatService{router: router, registry: registry, messages: messages}
}

// Connect attaches a new session and returns its id.
func (s *ChatService) Connect(accountID domain.AccountID, sink contract.EventSink) string {
	sessionID := uuid.NewString()
	s.registry.Attach(accountID, sessionID, sink)
	return sessionID
}

func (s *ChatService) Disconnect(accountID domain.AccountID, sessionID string) {
	s.registry.Detach(accountID, sessionID)
}

func (s *ChatService) Post(ctx context.Context, origin runtime.Origin, evt domain.InboundEvent) error {
	return s.router.Handle(ctx, origin, evt)
}

// History pages a channel backwards, newest first. limit is clamped to
// [1, 100].
func (s *ChatService) History(ctx context.Context, channelID domain.ChannelID, cursor *string, limit int) ([]domain.Message, *string, error) {
	return s.messages.GetMessages(ctx, channelID, cursor, min(max(limit, 1), maxPageSize))
}
