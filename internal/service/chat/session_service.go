package chat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kazini/internal/ai"
	"kazini/internal/config"
	"kazini/internal/model/chat"
	"kazini/internal/pkg/ctxutil"
	"kazini/internal/pkg/metrics"
)

const (
	titleMaxRunes     = 120
	titleEllipsis     = "..."
	defaultMaxTokens  = 512
	defaultTokensCap  = 4096
	defaultDailyLimit = 1000
	defaultPageSize   = 20
)

// TurnRequest 一轮对话的输入
type TurnRequest struct {
	UserID         string
	Text           string
	ConversationID *int64
	MaxTokens      int
}

// TurnResult 一轮对话的结果
type TurnResult struct {
	Reply          string
	ConversationID int64
	MessageID      int64
	// Fallback 回复来自兜底文案
	Fallback bool
}

// ConversationList 会话分页结果
type ConversationList struct {
	Items    []*chat.Conversation
	Total    int64
	Page     int
	PageSize int
}

// HasNext 是否存在下一页
func (l *ConversationList) HasNext() bool {
	return int64(l.Page*l.PageSize) < l.Total
}

// HasPrevious 是否存在上一页
func (l *ConversationList) HasPrevious() bool {
	return l.Page > 1
}

// SessionService 导师对话会话服务
// 职责: 限流、会话归属、上下文构建、生成与兜底、消息持久化
type SessionService struct {
	store     Store
	generator Generator
	limiter   *RateLimiter
	contexts  *ContextBuilder
	cfg       config.ChatConfig
	now       func() time.Time
}

// NewSessionService 创建会话服务
func NewSessionService(store Store, generator Generator, limiter *RateLimiter, contexts *ContextBuilder, cfg config.ChatConfig) *SessionService {
	if cfg.DefaultMaxTokens <= 0 {
		cfg.DefaultMaxTokens = defaultMaxTokens
	}
	if cfg.MaxTokensCap <= 0 {
		cfg.MaxTokensCap = defaultTokensCap
	}
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = defaultDailyLimit
	}
	if cfg.HistoryPageSize <= 0 {
		cfg.HistoryPageSize = defaultPageSize
	}
	if contexts == nil {
		contexts = NewContextBuilder(nil)
	}
	return &SessionService{
		store:     store,
		generator: generator,
		limiter:   limiter,
		contexts:  contexts,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// HandleTurn 处理一轮用户消息
// 流程: 限流检查 -> 解析会话 -> 保存用户消息 -> 构建上下文 -> 生成或兜底 -> 保存回复 -> 更新会话 -> 计数
// 生成失败不会返回错误，只会改用兜底回复
func (s *SessionService) HandleTurn(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	logger := s.logger(ctx, req.UserID)

	// 1. 限流
	if s.limiter != nil {
		count, err := s.limiter.Check(ctx, req.UserID)
		if err != nil {
			metrics.CounterStoreErrors.WithLabelValues("check").Inc()
			logger.Warn().Err(err).Msg("Usage counter unavailable, allowing turn")
		} else if count >= s.cfg.DailyLimit {
			metrics.ChatTurnsTotal.WithLabelValues(metrics.TurnRateLimited).Inc()
			logger.Info().Int64("count", count).Msg("Daily message limit reached")
			return nil, ErrRateLimitExceeded
		}
	}

	// 2. 解析会话，不存在或不属于当前用户时新建
	conv, err := s.resolveConversation(ctx, req.UserID, req.ConversationID)
	if err != nil {
		return nil, s.failed(err)
	}
	logger = logger.With().Int64("conversation_id", conv.ID).Logger()

	// 3. 保存用户消息
	if _, err := s.store.AppendMessage(ctx, conv.ID, chat.SenderUser, text); err != nil {
		return nil, s.failed(fmt.Errorf("failed to save user message: %w", err))
	}

	// 4-5. 构建上下文并调用生成服务
	userContext := s.contexts.Build(ctx, req.UserID)
	out := s.generator.Generate(ctx, ai.Prompt{
		System:    s.cfg.SystemPrompt,
		Context:   userContext,
		UserText:  text,
		MaxTokens: s.maxTokens(req.MaxTokens),
	})

	// 6. 成功用生成结果，失败用兜底文案
	reply := out.Text
	outcome := metrics.TurnGenerated
	if !out.OK() {
		logger.Error().
			Err(out.Err).
			Str("reason", string(out.Reason)).
			Dur("latency", out.Latency).
			Msg("Generation failed, using fallback reply")
		reply = SelectFallback(text, userContext)
		outcome = metrics.TurnFallback
	}

	// 生成结束后的写入不再跟随请求取消，保证每轮都落库一条助手消息
	ctx = context.WithoutCancel(ctx)

	assistantMsg, err := s.store.AppendMessage(ctx, conv.ID, chat.SenderAssistant, reply)
	if err != nil {
		return nil, s.failed(fmt.Errorf("failed to save assistant message: %w", err))
	}

	// 7-8. 首条回复作为标题，刷新最近活跃时间
	title := ""
	if !conv.HasTitle() {
		title = deriveTitle(reply)
	}
	if err := s.store.TouchConversation(ctx, conv.ID, title, s.now()); err != nil {
		return nil, s.failed(fmt.Errorf("failed to update conversation: %w", err))
	}

	// 9. 计数
	if s.limiter != nil {
		if _, err := s.limiter.Increment(ctx, req.UserID); err != nil {
			metrics.CounterStoreErrors.WithLabelValues("increment").Inc()
			logger.Warn().Err(err).Msg("Failed to increment usage counter")
		}
	}

	metrics.ChatTurnsTotal.WithLabelValues(outcome).Inc()
	logger.Debug().
		Int64("message_id", assistantMsg.ID).
		Str("outcome", outcome).
		Int("prompt_tokens", out.PromptTokens).
		Int("output_tokens", out.OutputTokens).
		Msg("Chat turn completed")

	return &TurnResult{
		Reply:          reply,
		ConversationID: conv.ID,
		MessageID:      assistantMsg.ID,
		Fallback:       !out.OK(),
	}, nil
}

func (s *SessionService) resolveConversation(ctx context.Context, userID string, id *int64) (*chat.Conversation, error) {
	if id != nil {
		conv, err := s.store.FindConversation(ctx, *id, userID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("failed to load conversation: %w", err)
		}
	}

	conv, err := s.store.CreateConversation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// logger 带上用户与请求ID的日志
func (s *SessionService) logger(ctx context.Context, userID string) zerolog.Logger {
	lc := log.With().Str("user_id", userID)
	if rid, ok := ctxutil.GetRequestID(ctx); ok {
		lc = lc.Str("request_id", rid)
	}
	return lc.Logger()
}

func (s *SessionService) failed(err error) error {
	metrics.ChatTurnsTotal.WithLabelValues(metrics.TurnFailed).Inc()
	return err
}

func (s *SessionService) maxTokens(requested int) int {
	switch {
	case requested <= 0:
		return s.cfg.DefaultMaxTokens
	case requested > s.cfg.MaxTokensCap:
		return s.cfg.MaxTokensCap
	default:
		return requested
	}
}

// ListConversations 分页列出用户会话，按最近活跃时间倒序
// page 从 1 开始；越界页返回 ErrNotFound
func (s *SessionService) ListConversations(ctx context.Context, userID string, page int) (*ConversationList, error) {
	if page < 1 || page-1 > math.MaxInt/s.cfg.HistoryPageSize {
		return nil, ErrNotFound
	}
	items, total, err := s.store.ListConversations(ctx, userID, page, s.cfg.HistoryPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if page > 1 && len(items) == 0 {
		return nil, ErrNotFound
	}
	return &ConversationList{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: s.cfg.HistoryPageSize,
	}, nil
}

// ListMessages 列出会话的所有消息，按创建时间升序
func (s *SessionService) ListMessages(ctx context.Context, userID string, conversationID int64) ([]*chat.Message, error) {
	if _, err := s.store.FindConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// SetFeedback 记录消息反馈，重复调用覆盖旧值
// 检查顺序: 会话归属 -> 消息存在 -> 取值
func (s *SessionService) SetFeedback(ctx context.Context, userID string, conversationID, messageID int64, value int) error {
	if _, err := s.store.FindConversation(ctx, conversationID, userID); err != nil {
		return err
	}
	if _, err := s.store.FindMessage(ctx, conversationID, messageID); err != nil {
		return err
	}
	if !chat.IsValidFeedback(value) {
		return ErrInvalidFeedback
	}
	if err := s.store.SetFeedback(ctx, conversationID, messageID, value); err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// DeleteConversation 删除会话及其消息
func (s *SessionService) DeleteConversation(ctx context.Context, userID string, conversationID int64) error {
	if err := s.store.DeleteConversation(ctx, conversationID, userID); err != nil {
		return err
	}
	logger := s.logger(ctx, userID)
	logger.Info().Int64("conversation_id", conversationID).Msg("Conversation deleted")
	return nil
}

// deriveTitle 取回复前 120 个字符，超出时追加省略号
func deriveTitle(reply string) string {
	if utf8.RuneCountInString(reply) <= titleMaxRunes {
		return reply
	}
	return string([]rune(reply)[:titleMaxRunes]) + titleEllipsis
}
