package chat

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Conversation 导师对话会话
// Title 在第一条助手回复前为 nil，之后只会被设置一次
type Conversation struct {
	ID           int64     `bson:"_id" json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       string    `bson:"user_id" json:"-" gorm:"size:64;not null;index:idx_conv_user_activity,priority:1"`
	Title        *string   `bson:"title" json:"title" gorm:"size:255"`
	LastActivity time.Time `bson:"last_activity" json:"last_activity" gorm:"not null;index:idx_conv_user_activity,priority:2"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`

	Messages []Message `bson:"-" json:"-" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// TableName GORM 表名
func (Conversation) TableName() string {
	return "chat_conversations"
}

// Collection 返回集合名称
func (c *Conversation) Collection() string {
	return "chat_conversations"
}

// HasTitle 标题是否已设置
func (c *Conversation) HasTitle() bool {
	return c.Title != nil && *c.Title != ""
}

// OwnedBy 会话是否属于指定用户
func (c *Conversation) OwnedBy(userID string) bool {
	return c.UserID == userID
}

// EnsureIndexes 创建和维护索引
func (c *Conversation) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(c.Collection())
	indexes := []mongo.IndexModel{
		{
			// 会话列表按最近活跃倒序
			Keys:    bson.D{bson.E{Key: "user_id", Value: 1}, bson.E{Key: "last_activity", Value: -1}},
			Options: options.Index().SetName("idx_user_activity"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
