package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"kazini/internal/model/chat"
)

const ensureIndexesTimeout = 30 * time.Second

// Model 需要维护索引的集合模型
type Model interface {
	Collection() string
	EnsureIndexes(ctx context.Context, db *mongo.Database) error
}

// EnsureIndexes 在启动时为会话、消息与测评集合创建索引
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, ensureIndexesTimeout)
	defer cancel()

	models := []Model{
		&chat.Conversation{},
		&chat.Message{},
		&chat.Assessment{},
	}
	for _, m := range models {
		if err := m.EnsureIndexes(ctx, db); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", m.Collection(), err)
		}
	}
	return nil
}
