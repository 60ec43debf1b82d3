package model

import "encoding/json"

// ChatRequest 发送消息请求
// POST /api/chatbot/
type ChatRequest struct {
	Message        string `json:"message"`                   // 用户消息（去除首尾空白后不能为空）
	ConversationID *int64 `json:"conversation_id,omitempty"` // 续聊的会话ID，可选
	MaxTokens      *int   `json:"max_tokens,omitempty"`      // 回复 token 上限，可选
}

// FeedbackRequest 消息反馈请求
// feedback 保留原始 JSON，只接受字面量 0 或 1
type FeedbackRequest struct {
	Feedback json.RawMessage `json:"feedback"`
}
