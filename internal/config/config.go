package config

import (
	"errors"
	"time"
)

// DefaultSystemPrompt 导师默认系统提示词
const DefaultSystemPrompt = "You are Kazini, an empathetic career mentor for university students. " +
	"Provide concise, actionable advice and suggest next steps (skills to learn, courses, or internships) when relevant. " +
	"If unsure, be honest and give safe resources. Keep answers friendly and short."

// Config 应用配置根结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	AI      AIConfig      `mapstructure:"ai"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Log     LogConfig     `mapstructure:"log"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Store   StoreConfig   `mapstructure:"store"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig AI 服务配置
type AIConfig struct {
	Provider string          `mapstructure:"provider"`
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature *float64 `mapstructure:"temperature"` // nil 时使用模型默认值，0 表示确定性输出
	MaxTokens   int      `mapstructure:"max_tokens"`
	TopP        float64  `mapstructure:"top_p"`
}

// ChatConfig 导师对话配置
type ChatConfig struct {
	SystemPrompt      string        `mapstructure:"system_prompt"`      // 系统提示词
	DailyLimit        int64         `mapstructure:"daily_limit"`        // 每用户每日消息上限
	DefaultMaxTokens  int           `mapstructure:"default_max_tokens"` // 未指定 max_tokens 时的默认值
	MaxTokensCap      int           `mapstructure:"max_tokens_cap"`     // max_tokens 上限
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"` // 单次生成调用超时，不重试
	CounterTTL        time.Duration `mapstructure:"counter_ttl"`        // 计数器过期时间
	HistoryPageSize   int           `mapstructure:"history_page_size"`  // 会话列表分页大小
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StoreConfig 会话存储配置
type StoreConfig struct {
	Driver       string `mapstructure:"driver"` // mongo, postgres, sqlite, memory
	DSN          string `mapstructure:"dsn"`    // postgres/sqlite 连接串
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`          // JWT密钥
	AccessTokenExpiry time.Duration `mapstructure:"access_token_expiry"` // Access Token过期时间
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	validDrivers := map[string]bool{"mongo": true, "postgres": true, "sqlite": true, "memory": true}
	if !validDrivers[c.Store.Driver] {
		return errors.New("invalid store driver, must be mongo/postgres/sqlite/memory")
	}
	if (c.Store.Driver == "postgres" || c.Store.Driver == "sqlite") && c.Store.DSN == "" {
		return errors.New("store dsn is required for sql drivers")
	}

	if c.Chat.DailyLimit <= 0 {
		return errors.New("chat daily_limit must be positive")
	}
	if c.Chat.DefaultMaxTokens <= 0 {
		return errors.New("chat default_max_tokens must be positive")
	}
	if c.Chat.MaxTokensCap < c.Chat.DefaultMaxTokens {
		return errors.New("chat max_tokens_cap must not be below default_max_tokens")
	}
	if c.Chat.GenerationTimeout <= 0 {
		return errors.New("chat generation_timeout must be positive")
	}

	return nil
}
