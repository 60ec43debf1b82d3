package chat

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kazini/internal/model/chat"
	"kazini/internal/repository"
)

// AssessmentRepo 测评快照仓库（MongoDB）
// 服务运行时只读，SaveAssessment 供种子脚本使用
type AssessmentRepo struct {
	collection *mongo.Collection
}

// NewAssessmentRepo 创建测评快照仓库
func NewAssessmentRepo(db *mongo.Database) *AssessmentRepo {
	var a chat.Assessment
	return &AssessmentRepo{
		collection: db.Collection(a.Collection()),
	}
}

// FindAssessment 查询用户测评快照
func (r *AssessmentRepo) FindAssessment(ctx context.Context, userID string) (*chat.Assessment, error) {
	var a chat.Assessment
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAssessment 写入或覆盖测评快照
func (r *AssessmentRepo) SaveAssessment(ctx context.Context, a *chat.Assessment) error {
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"user_id": a.UserID},
		a,
		options.Replace().SetUpsert(true),
	)
	return err
}
