package chain

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"kazini/internal/ai/component"
	"kazini/internal/config"
)

var (
	ErrNilResponse   = errors.New("chat model returned no message")
	ErrEmptyResponse = errors.New("chat model returned empty content")
)

// MentorChain 职业导师对话链
// 工作流: 系统指令 -> 用户上下文 -> 用户消息 -> ChatModel
type MentorChain struct {
	chatModel   model.BaseChatModel
	temperature *float32
}

// MentorRequest 导师对话请求
type MentorRequest struct {
	SystemPrompt string // 系统指令
	UserContext  string // 用户测评上下文
	Message      string // 用户消息
	MaxTokens    int    // 回复 token 上限
}

// MentorResponse 导师对话响应
type MentorResponse struct {
	Text         string
	PromptTokens int
	OutputTokens int
}

// NewMentorChain 根据配置创建导师对话链
func NewMentorChain(ctx context.Context, cfg *config.AIConfig) (*MentorChain, error) {
	chatModel, err := component.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewMentorChainWithModel(chatModel, component.Temperature(cfg.Options)), nil
}

// NewMentorChainWithModel 使用指定 ChatModel 创建（便于测试注入）
// temperature 为 nil 时不下发温度参数
func NewMentorChainWithModel(chatModel model.BaseChatModel, temperature *float32) *MentorChain {
	return &MentorChain{
		chatModel:   chatModel,
		temperature: temperature,
	}
}

// BuildMessages 构建发送给模型的消息
// 顺序固定：系统指令、系统级用户上下文、用户消息
func BuildMessages(req *MentorRequest) []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(req.SystemPrompt),
		schema.SystemMessage("User context: " + req.UserContext),
		schema.UserMessage(req.Message),
	}
}

// Run 执行一次对话
func (c *MentorChain) Run(ctx context.Context, req *MentorRequest) (*MentorResponse, error) {
	opts := make([]model.Option, 0, 2)
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if c.temperature != nil {
		opts = append(opts, model.WithTemperature(*c.temperature))
	}

	resp, err := c.chatModel.Generate(ctx, BuildMessages(req), opts...)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNilResponse
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	// 提取 token 使用量
	var promptTokens, outputTokens int
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		promptTokens = resp.ResponseMeta.Usage.PromptTokens
		outputTokens = resp.ResponseMeta.Usage.CompletionTokens
	}

	return &MentorResponse{
		Text:         text,
		PromptTokens: promptTokens,
		OutputTokens: outputTokens,
	}, nil
}
