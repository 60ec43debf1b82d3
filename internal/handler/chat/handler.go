package chat

import (
	"context"

	"kazini/internal/model/chat"
	chatsvc "kazini/internal/service/chat"
)

// SessionService 导师对话服务
type SessionService interface {
	HandleTurn(ctx context.Context, req *chatsvc.TurnRequest) (*chatsvc.TurnResult, error)
	ListConversations(ctx context.Context, userID string, page int) (*chatsvc.ConversationList, error)
	ListMessages(ctx context.Context, userID string, conversationID int64) ([]*chat.Message, error)
	SetFeedback(ctx context.Context, userID string, conversationID, messageID int64, value int) error
	DeleteConversation(ctx context.Context, userID string, conversationID int64) error
}

// Handler 导师对话处理器
// 所有接口都要求已认证，用户ID只从认证上下文读取
type Handler struct {
	sessionService SessionService
}

// NewHandler 创建导师对话处理器
func NewHandler(sessionService SessionService) *Handler {
	return &Handler{
		sessionService: sessionService,
	}
}
