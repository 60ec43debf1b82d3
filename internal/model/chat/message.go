package chat

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sender 消息发送方
type Sender string

const (
	SenderUser      Sender = "user"      // 用户
	SenderAssistant Sender = "assistant" // 助手
)

// 反馈取值
const (
	FeedbackNegative = 0
	FeedbackPositive = 1
)

// IsValidFeedback 反馈只接受 0 或 1
func IsValidFeedback(v int) bool {
	return v == FeedbackNegative || v == FeedbackPositive
}

// Message 会话中的一条消息
// 创建后只有 Feedback 可以修改，重复反馈覆盖旧值
type Message struct {
	ID             int64     `bson:"_id" json:"id" gorm:"primaryKey;autoIncrement"`
	ConversationID int64     `bson:"conversation_id" json:"conversation" gorm:"not null;index:idx_msg_conv_created,priority:1"`
	Sender         Sender    `bson:"sender" json:"sender" gorm:"size:20;not null"`
	Text           string    `bson:"text" json:"text" gorm:"type:text;not null"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at" gorm:"index:idx_msg_conv_created,priority:2"`
	Feedback       *int      `bson:"feedback" json:"feedback"`
}

// TableName GORM 表名
func (Message) TableName() string {
	return "chat_messages"
}

// Collection 返回集合名称
func (m *Message) Collection() string {
	return "chat_messages"
}

// EnsureIndexes 创建和维护索引
func (m *Message) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(m.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "conversation_id", Value: 1}, bson.E{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_conv_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
