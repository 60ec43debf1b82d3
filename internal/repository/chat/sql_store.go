package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"kazini/internal/model/chat"
	"kazini/internal/repository"
)

// SQLStore 基于 GORM 的会话存储（postgres / sqlite）
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore 创建 SQL 会话存储
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// AutoMigrate 同步表结构
func (s *SQLStore) AutoMigrate() error {
	return s.db.AutoMigrate(&chat.Conversation{}, &chat.Message{}, &chat.Assessment{})
}

func (s *SQLStore) CreateConversation(ctx context.Context, userID string) (*chat.Conversation, error) {
	now := time.Now()
	conv := &chat.Conversation{
		UserID:       userID,
		LastActivity: now,
		CreatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *SQLStore) FindConversation(ctx context.Context, id int64, userID string) (*chat.Conversation, error) {
	var conv chat.Conversation
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&conv).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &conv, nil
}

// TouchConversation 更新最近活跃时间，标题仅在为空时写入
func (s *SQLStore) TouchConversation(ctx context.Context, id int64, title string, at time.Time) error {
	updates := map[string]any{"last_activity": at}
	if title != "" {
		updates["title"] = gorm.Expr("CASE WHEN title IS NULL OR title = '' THEN ? ELSE title END", title)
	}

	res := s.db.WithContext(ctx).
		Model(&chat.Conversation{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListConversations(ctx context.Context, userID string, page, pageSize int) ([]*chat.Conversation, int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&chat.Conversation{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	convs := make([]*chat.Conversation, 0)
	offset, ok := pageOffset(page, pageSize)
	if !ok {
		return convs, total, nil
	}
	err = s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_activity DESC").
		Order("id DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&convs).Error
	if err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

// DeleteConversation 删除会话及其所有消息（同一事务）
func (s *SQLStore) DeleteConversation(ctx context.Context, id int64, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv chat.Conversation
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&conv).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&chat.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&conv).Error
	})
}

func (s *SQLStore) AppendMessage(ctx context.Context, conversationID int64, sender chat.Sender, text string) (*chat.Message, error) {
	msg := &chat.Message{
		ConversationID: conversationID,
		Sender:         sender,
		Text:           text,
		CreatedAt:      time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *SQLStore) FindMessage(ctx context.Context, conversationID, messageID int64) (*chat.Message, error) {
	var msg chat.Message
	err := s.db.WithContext(ctx).
		Where("id = ? AND conversation_id = ?", messageID, conversationID).
		First(&msg).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &msg, nil
}

func (s *SQLStore) ListMessages(ctx context.Context, conversationID int64) ([]*chat.Message, error) {
	msgs := make([]*chat.Message, 0)
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *SQLStore) SetFeedback(ctx context.Context, conversationID, messageID int64, value int) error {
	res := s.db.WithContext(ctx).
		Model(&chat.Message{}).
		Where("id = ? AND conversation_id = ?", messageID, conversationID).
		Update("feedback", value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// FindAssessment 查询用户测评快照
func (s *SQLStore) FindAssessment(ctx context.Context, userID string) (*chat.Assessment, error) {
	var a chat.Assessment
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// SaveAssessment 写入或覆盖测评快照（种子数据与测试使用）
func (s *SQLStore) SaveAssessment(ctx context.Context, a *chat.Assessment) error {
	return s.db.WithContext(ctx).Save(a).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}
