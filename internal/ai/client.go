package ai

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"

	"kazini/internal/ai/chain"
	"kazini/internal/config"
	"kazini/internal/pkg/metrics"
)

// ErrModelUnavailable ChatModel 未能初始化
var ErrModelUnavailable = errors.New("chat model unavailable")

// FailureReason 生成失败原因
type FailureReason string

const (
	ReasonTimeout   FailureReason = "timeout"   // 超过请求级超时
	ReasonTransport FailureReason = "transport" // 网络或上游错误
	ReasonMalformed FailureReason = "malformed" // 响应结构异常
	ReasonEmpty     FailureReason = "empty"     // 响应文本为空
)

// Prompt 一次生成调用的输入
type Prompt struct {
	System    string
	Context   string
	UserText  string
	MaxTokens int
}

// Outcome 生成结果：成功时 Text 非空，失败时 Reason 与 Err 非空
type Outcome struct {
	Text         string
	Reason       FailureReason
	Err          error
	PromptTokens int
	OutputTokens int
	Latency      time.Duration
}

// OK 是否生成成功
func (o Outcome) OK() bool {
	return o.Reason == ""
}

// Client AI 能力层客户端
// 职责: 在请求级超时内调用导师对话链，并把所有失败归类为 Outcome，不重试
type Client struct {
	chain   *chain.MentorChain
	timeout time.Duration
}

// NewClient 创建 AI 客户端
// ChatModel 初始化失败时返回错误，调用方可改用 NewUnavailableClient 继续运行
func NewClient(ctx context.Context, cfg *config.AIConfig, timeout time.Duration) (*Client, error) {
	if cfg.APIKey == "" {
		log.Warn().Msg("AI API key not configured, generation calls will fall back")
	}

	mentorChain, err := chain.NewMentorChain(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{chain: mentorChain, timeout: timeout}, nil
}

// NewClientWithModel 使用指定 ChatModel 创建（便于测试注入）
func NewClientWithModel(chatModel model.BaseChatModel, temperature *float32, timeout time.Duration) *Client {
	return &Client{
		chain:   chain.NewMentorChainWithModel(chatModel, temperature),
		timeout: timeout,
	}
}

// NewUnavailableClient 创建一个每次都返回失败的客户端，所有回复走兜底
func NewUnavailableClient() *Client {
	return &Client{}
}

// Generate 调用上游生成回复
func (c *Client) Generate(ctx context.Context, p Prompt) Outcome {
	start := time.Now()
	out := c.generate(ctx, p)
	out.Latency = time.Since(start)

	status := "ok"
	if !out.OK() {
		status = string(out.Reason)
	}
	metrics.GenerationDuration.WithLabelValues(status).Observe(out.Latency.Seconds())

	return out
}

func (c *Client) generate(ctx context.Context, p Prompt) Outcome {
	if c.chain == nil {
		return Outcome{Reason: ReasonTransport, Err: ErrModelUnavailable}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.chain.Run(ctx, &chain.MentorRequest{
		SystemPrompt: p.System,
		UserContext:  p.Context,
		Message:      p.UserText,
		MaxTokens:    p.MaxTokens,
	})
	if err != nil {
		return Outcome{Reason: classify(ctx, err), Err: err}
	}

	return Outcome{
		Text:         resp.Text,
		PromptTokens: resp.PromptTokens,
		OutputTokens: resp.OutputTokens,
	}
}

func classify(ctx context.Context, err error) FailureReason {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, chain.ErrEmptyResponse):
		return ReasonEmpty
	case errors.Is(err, chain.ErrNilResponse):
		return ReasonMalformed
	default:
		return ReasonTransport
	}
}
