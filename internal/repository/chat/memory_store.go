package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"kazini/internal/model/chat"
	"kazini/internal/repository"
)

// MemoryStore 进程内会话存储
// 用于 store.driver=memory 的本地开发以及测试，进程退出即丢失
type MemoryStore struct {
	mu          sync.RWMutex
	convs       map[int64]*chat.Conversation
	msgs        map[int64]*chat.Message
	assessments map[string]*chat.Assessment
	nextConvID  int64
	nextMsgID   int64
	now         func() time.Time
}

// NewMemoryStore 创建进程内会话存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convs:       make(map[int64]*chat.Conversation),
		msgs:        make(map[int64]*chat.Message),
		assessments: make(map[string]*chat.Assessment),
		now:         time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) CreateConversation(_ context.Context, userID string) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextConvID++
	now := s.now()
	conv := &chat.Conversation{
		ID:           s.nextConvID,
		UserID:       userID,
		LastActivity: now,
		CreatedAt:    now,
	}
	s.convs[conv.ID] = conv
	return cloneConversation(conv), nil
}

func (s *MemoryStore) FindConversation(_ context.Context, id int64, userID string) (*chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[id]
	if !ok || !conv.OwnedBy(userID) {
		return nil, repository.ErrNotFound
	}
	return cloneConversation(conv), nil
}

func (s *MemoryStore) TouchConversation(_ context.Context, id int64, title string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok {
		return repository.ErrNotFound
	}
	conv.LastActivity = at
	if title != "" && !conv.HasTitle() {
		t := title
		conv.Title = &t
	}
	return nil
}

func (s *MemoryStore) ListConversations(_ context.Context, userID string, page, pageSize int) ([]*chat.Conversation, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := make([]*chat.Conversation, 0)
	for _, conv := range s.convs {
		if conv.OwnedBy(userID) {
			owned = append(owned, conv)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].LastActivity.Equal(owned[j].LastActivity) {
			return owned[i].LastActivity.After(owned[j].LastActivity)
		}
		return owned[i].ID > owned[j].ID
	})

	total := int64(len(owned))
	start, ok := pageOffset(page, pageSize)
	if !ok || start >= len(owned) {
		return []*chat.Conversation{}, total, nil
	}
	end := start + pageSize
	if end > len(owned) {
		end = len(owned)
	}

	result := make([]*chat.Conversation, 0, end-start)
	for _, conv := range owned[start:end] {
		result = append(result, cloneConversation(conv))
	}
	return result, total, nil
}

func (s *MemoryStore) DeleteConversation(_ context.Context, id int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok || !conv.OwnedBy(userID) {
		return repository.ErrNotFound
	}
	delete(s.convs, id)
	for msgID, msg := range s.msgs {
		if msg.ConversationID == id {
			delete(s.msgs, msgID)
		}
	}
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, conversationID int64, sender chat.Sender, text string) (*chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[conversationID]; !ok {
		return nil, repository.ErrNotFound
	}

	s.nextMsgID++
	msg := &chat.Message{
		ID:             s.nextMsgID,
		ConversationID: conversationID,
		Sender:         sender,
		Text:           text,
		CreatedAt:      s.now(),
	}
	s.msgs[msg.ID] = msg
	return cloneMessage(msg), nil
}

func (s *MemoryStore) FindMessage(_ context.Context, conversationID, messageID int64) (*chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.msgs[messageID]
	if !ok || msg.ConversationID != conversationID {
		return nil, repository.ErrNotFound
	}
	return cloneMessage(msg), nil
}

func (s *MemoryStore) ListMessages(_ context.Context, conversationID int64) ([]*chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]*chat.Message, 0)
	for _, msg := range s.msgs {
		if msg.ConversationID == conversationID {
			msgs = append(msgs, cloneMessage(msg))
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
	return msgs, nil
}

func (s *MemoryStore) SetFeedback(_ context.Context, conversationID, messageID int64, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.msgs[messageID]
	if !ok || msg.ConversationID != conversationID {
		return repository.ErrNotFound
	}
	v := value
	msg.Feedback = &v
	return nil
}

// FindAssessment 查询用户测评快照
func (s *MemoryStore) FindAssessment(_ context.Context, userID string) (*chat.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assessments[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// SaveAssessment 写入或覆盖测评快照
func (s *MemoryStore) SaveAssessment(_ context.Context, a *chat.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	s.assessments[a.UserID] = &cp
	return nil
}

func cloneConversation(c *chat.Conversation) *chat.Conversation {
	cp := *c
	if c.Title != nil {
		t := *c.Title
		cp.Title = &t
	}
	cp.Messages = nil
	return &cp
}

func cloneMessage(m *chat.Message) *chat.Message {
	cp := *m
	if m.Feedback != nil {
		f := *m.Feedback
		cp.Feedback = &f
	}
	return &cp
}
