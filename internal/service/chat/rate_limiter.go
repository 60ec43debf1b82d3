package chat

import (
	"context"
	"fmt"
	"time"

	"kazini/internal/pkg/cache"
)

const (
	usageKeyFormat  = "chat_count_user_%s_%s"
	usageDateLayout = "2006-01-02"
	defaultUsageTTL = 24 * time.Hour
)

// RateLimiter 每用户每日消息计数
// 上限由调用方比较；Check 与 Increment 不是原子操作
type RateLimiter struct {
	counter cache.Counter
	ttl     time.Duration
	now     func() time.Time
}

// NewRateLimiter 创建计数器，ttl<=0 时使用 24h
func NewRateLimiter(counter cache.Counter, ttl time.Duration) *RateLimiter {
	if ttl <= 0 {
		ttl = defaultUsageTTL
	}
	return &RateLimiter{counter: counter, ttl: ttl, now: time.Now}
}

// WithClock 替换时钟（测试用）
func (r *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	r.now = now
	return r
}

// Check 返回用户今日已用消息数
func (r *RateLimiter) Check(ctx context.Context, userID string) (int64, error) {
	n, err := r.counter.Get(ctx, r.key(userID))
	if err != nil {
		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}
	return n, nil
}

// Increment 今日计数加一并刷新过期时间
func (r *RateLimiter) Increment(ctx context.Context, userID string) (int64, error) {
	key := r.key(userID)
	n, err := r.counter.Incr(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage counter: %w", err)
	}
	if err := r.counter.Expire(ctx, key, r.ttl); err != nil {
		return n, fmt.Errorf("failed to set usage counter ttl: %w", err)
	}
	return n, nil
}

func (r *RateLimiter) key(userID string) string {
	return fmt.Sprintf(usageKeyFormat, userID, r.now().Format(usageDateLayout))
}
