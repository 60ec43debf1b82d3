package chat

import (
	"context"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"kazini/internal/model/chat"
)

// MongoStore 基于 MongoDB 的会话存储
// 组合会话仓库与消息仓库
type MongoStore struct {
	convs *ConversationRepo
	msgs  *MessageRepo
}

// NewMongoStore 创建 MongoDB 会话存储
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		convs: NewConversationRepo(db),
		msgs:  NewMessageRepo(db),
	}
}

func (s *MongoStore) CreateConversation(ctx context.Context, userID string) (*chat.Conversation, error) {
	return s.convs.Create(ctx, userID)
}

func (s *MongoStore) FindConversation(ctx context.Context, id int64, userID string) (*chat.Conversation, error) {
	return s.convs.FindOwned(ctx, id, userID)
}

func (s *MongoStore) TouchConversation(ctx context.Context, id int64, title string, at time.Time) error {
	return s.convs.Touch(ctx, id, title, at)
}

func (s *MongoStore) ListConversations(ctx context.Context, userID string, page, pageSize int) ([]*chat.Conversation, int64, error) {
	offset, ok := pageOffset(page, pageSize)
	if !ok {
		offset = math.MaxInt
	}
	return s.convs.ListByUserID(ctx, userID, int64(pageSize), int64(offset))
}

// DeleteConversation 删除会话及其所有消息
// 先删会话：残留的消息无法再通过所有权校验访问
func (s *MongoStore) DeleteConversation(ctx context.Context, id int64, userID string) error {
	if err := s.convs.DeleteOwned(ctx, id, userID); err != nil {
		return err
	}
	return s.msgs.DeleteByConversation(ctx, id)
}

func (s *MongoStore) AppendMessage(ctx context.Context, conversationID int64, sender chat.Sender, text string) (*chat.Message, error) {
	return s.msgs.Create(ctx, conversationID, sender, text)
}

func (s *MongoStore) FindMessage(ctx context.Context, conversationID, messageID int64) (*chat.Message, error) {
	return s.msgs.FindInConversation(ctx, conversationID, messageID)
}

func (s *MongoStore) ListMessages(ctx context.Context, conversationID int64) ([]*chat.Message, error) {
	return s.msgs.ListByConversation(ctx, conversationID)
}

func (s *MongoStore) SetFeedback(ctx context.Context, conversationID, messageID int64, value int) error {
	return s.msgs.SetFeedback(ctx, conversationID, messageID, value)
}
