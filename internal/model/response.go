package model

import "kazini/internal/model/chat"

// ChatResponse 发送消息响应
type ChatResponse struct {
	Reply          string `json:"reply"`
	ConversationID int64  `json:"conversation_id"`
	MessageID      int64  `json:"message_id"`
}

// ConversationPage 会话分页列表
type ConversationPage struct {
	Count    int64                `json:"count"`
	Next     *string              `json:"next"`
	Previous *string              `json:"previous"`
	Results  []*chat.Conversation `json:"results"`
}

// MessageResponse 简单消息响应
type MessageResponse struct {
	Message string `json:"message"`
}
