package component

import (
	"context"
	"fmt"

	arkext "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"kazini/internal/config"
)

const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultArkModel    = "doubao-seed-1-6-flash-250615"
	DefaultArkBaseURL  = "https://ark.cn-beijing.volces.com/api/v3"
)

// NewChatModel 创建 ChatModel
// 支持多种 Provider: openai, azure, ark
func NewChatModel(ctx context.Context, cfg *config.AIConfig) (model.BaseChatModel, error) {
	switch cfg.Provider {
	case "openai", "":
		return newOpenAIChatModel(ctx, cfg, false)
	case "azure":
		return newOpenAIChatModel(ctx, cfg, true)
	case "ark":
		return newArkChatModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

// Temperature 返回配置的采样温度，未配置时为 nil
func Temperature(opts config.AIOptionsConfig) *float32 {
	if opts.Temperature == nil {
		return nil
	}
	t := float32(*opts.Temperature)
	return &t
}

// samplingOptions 把配置中的采样参数转换为指针形式，未设置的保持 nil
func samplingOptions(opts config.AIOptionsConfig) (temperature *float32, maxTokens *int, topP *float32) {
	temperature = Temperature(opts)
	if opts.MaxTokens > 0 {
		m := opts.MaxTokens
		maxTokens = &m
	}
	if opts.TopP > 0 {
		p := float32(opts.TopP)
		topP = &p
	}
	return temperature, maxTokens, topP
}

// newOpenAIChatModel 创建 OpenAI / Azure OpenAI ChatModel
func newOpenAIChatModel(ctx context.Context, cfg *config.AIConfig, byAzure bool) (model.BaseChatModel, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}

	modelCfg := &openai.ChatModelConfig{
		Model:   modelName,
		APIKey:  cfg.APIKey,
		ByAzure: byAzure,
	}

	// Base URL (用于代理或兼容 API，Azure 必填)
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}

	modelCfg.Temperature, modelCfg.MaxTokens, modelCfg.TopP = samplingOptions(cfg.Options)

	return openai.NewChatModel(ctx, modelCfg)
}

// newArkChatModel 创建 Ark ChatModel（使用 eino-ext 模块）
func newArkChatModel(ctx context.Context, cfg *config.AIConfig) (model.BaseChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultArkBaseURL
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultArkModel
	}

	modelCfg := &arkext.ChatModelConfig{
		Model:   modelName,
		APIKey:  cfg.APIKey,
		BaseURL: baseURL,
	}
	modelCfg.Temperature, modelCfg.MaxTokens, modelCfg.TopP = samplingOptions(cfg.Options)

	return arkext.NewChatModel(ctx, modelCfg)
}
