package chat

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kazini/internal/model/chat"
	"kazini/internal/pkg/mongodb"
	"kazini/internal/repository"
)

// MessageRepo 消息仓库（MongoDB）
// 消息独立成集合，不再嵌入会话文档，便于单条更新反馈
type MessageRepo struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewMessageRepo 创建消息仓库
func NewMessageRepo(db *mongo.Database) *MessageRepo {
	var msg chat.Message
	return &MessageRepo{
		db:         db,
		collection: db.Collection(msg.Collection()),
	}
}

// Create 追加消息
func (r *MessageRepo) Create(ctx context.Context, conversationID int64, sender chat.Sender, text string) (*chat.Message, error) {
	id, err := mongodb.NextSequence(ctx, r.db, r.collection.Name())
	if err != nil {
		return nil, err
	}

	msg := &chat.Message{
		ID:             id,
		ConversationID: conversationID,
		Sender:         sender,
		Text:           text,
		CreatedAt:      time.Now(),
	}
	if _, err := r.collection.InsertOne(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// FindInConversation 查询会话内的指定消息
func (r *MessageRepo) FindInConversation(ctx context.Context, conversationID, messageID int64) (*chat.Message, error) {
	var msg chat.Message
	err := r.collection.FindOne(ctx, bson.M{"_id": messageID, "conversation_id": conversationID}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListByConversation 按创建时间正序列出消息
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID int64) ([]*chat.Message, error) {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "created_at", Value: 1}, bson.E{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	msgs := make([]*chat.Message, 0)
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SetFeedback 写入反馈，覆盖旧值
func (r *MessageRepo) SetFeedback(ctx context.Context, conversationID, messageID int64, value int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": messageID, "conversation_id": conversationID},
		bson.M{"$set": bson.M{"feedback": value}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByConversation 删除会话下所有消息
func (r *MessageRepo) DeleteByConversation(ctx context.Context, conversationID int64) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"conversation_id": conversationID})
	return err
}
