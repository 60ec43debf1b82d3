package chat

import (
	"errors"

	"kazini/internal/repository"
)

var (
	ErrEmptyMessage      = errors.New("No message provided")
	ErrInvalidFeedback   = errors.New("feedback must be 0 or 1")
	ErrRateLimitExceeded = errors.New("Daily message limit reached.")
	// ErrNotFound 会话或消息不存在，或不属于当前用户
	ErrNotFound = repository.ErrNotFound
)
