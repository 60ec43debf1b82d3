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

// ConversationRepo 会话仓库（MongoDB）
type ConversationRepo struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewConversationRepo 创建会话仓库
func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	var conv chat.Conversation
	return &ConversationRepo{
		db:         db,
		collection: db.Collection(conv.Collection()),
	}
}

// Create 为用户创建一个无标题会话
func (r *ConversationRepo) Create(ctx context.Context, userID string) (*chat.Conversation, error) {
	id, err := mongodb.NextSequence(ctx, r.db, r.collection.Name())
	if err != nil {
		return nil, err
	}

	now := time.Now()
	conv := &chat.Conversation{
		ID:           id,
		UserID:       userID,
		LastActivity: now,
		CreatedAt:    now,
	}
	if _, err := r.collection.InsertOne(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// FindOwned 按 (id, user_id) 查询
func (r *ConversationRepo) FindOwned(ctx context.Context, id int64, userID string) (*chat.Conversation, error) {
	var conv chat.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Touch 更新最近活跃时间，标题仅在为空时写入
// 条件写入在一次 pipeline update 中完成，并发的两轮对话不会互相覆盖标题
func (r *ConversationRepo) Touch(ctx context.Context, id int64, title string, at time.Time) error {
	set := bson.D{bson.E{Key: "last_activity", Value: at}}
	if title != "" {
		set = append(set, bson.E{Key: "title", Value: bson.D{bson.E{Key: "$cond", Value: bson.A{
			bson.D{bson.E{Key: "$eq", Value: bson.A{
				bson.D{bson.E{Key: "$ifNull", Value: bson.A{"$title", ""}}},
				"",
			}}},
			bson.D{bson.E{Key: "$literal", Value: title}},
			"$title",
		}}}})
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, mongo.Pipeline{
		bson.D{bson.E{Key: "$set", Value: set}},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListByUserID 查询用户会话列表，按最近活跃倒序
func (r *ConversationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int64) ([]*chat.Conversation, int64, error) {
	filter := bson.M{"user_id": userID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "last_activity", Value: -1}, bson.E{Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	convs := make([]*chat.Conversation, 0)
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

// DeleteOwned 删除属于用户的会话
func (r *ConversationRepo) DeleteOwned(ctx context.Context, id int64, userID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
