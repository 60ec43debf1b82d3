package chat

import (
	"context"
	"time"

	"kazini/internal/ai"
	"kazini/internal/model/chat"
)

// Store 会话与消息存储
// 所有接收调用方会话ID的方法都必须带上所有者做过滤
type Store interface {
	CreateConversation(ctx context.Context, userID string) (*chat.Conversation, error)
	FindConversation(ctx context.Context, id int64, userID string) (*chat.Conversation, error)
	// TouchConversation 更新最近活跃时间；title 非空且会话尚无标题时写入标题
	TouchConversation(ctx context.Context, id int64, title string, at time.Time) error
	ListConversations(ctx context.Context, userID string, page, pageSize int) ([]*chat.Conversation, int64, error)
	DeleteConversation(ctx context.Context, id int64, userID string) error

	AppendMessage(ctx context.Context, conversationID int64, sender chat.Sender, text string) (*chat.Message, error)
	FindMessage(ctx context.Context, conversationID, messageID int64) (*chat.Message, error)
	ListMessages(ctx context.Context, conversationID int64) ([]*chat.Message, error)
	SetFeedback(ctx context.Context, conversationID, messageID int64, value int) error
}

// AssessmentReader 用户测评快照（外部模块维护）
type AssessmentReader interface {
	FindAssessment(ctx context.Context, userID string) (*chat.Assessment, error)
}

// Generator 上游生成服务
type Generator interface {
	Generate(ctx context.Context, p ai.Prompt) ai.Outcome
}
