package cache

import (
	"context"
	"sync"
	"time"
)

// Counter 带过期时间的整数计数器存储
// Get 与 Incr 之间不保证原子性，调用方需接受并发下的少量误差
type Counter interface {
	Get(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

var (
	_ Counter = (*RedisCache)(nil)
	_ Counter = (*MemoryCounter)(nil)
)

type counterEntry struct {
	value     int64
	expiresAt time.Time // 零值表示永不过期
}

// MemoryCounter 进程内计数器
// 用于测试以及未配置 Redis 时的单实例部署
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*counterEntry
	now     func() time.Time
}

// NewMemoryCounter 创建进程内计数器
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		entries: make(map[string]*counterEntry),
		now:     time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (m *MemoryCounter) WithClock(now func() time.Time) *MemoryCounter {
	m.now = now
	return m
}

// Get 读取计数，不存在或已过期返回 0
func (m *MemoryCounter) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.live(key)
	if e == nil {
		return 0, nil
	}
	return e.value, nil
}

// Incr 计数加一
func (m *MemoryCounter) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.live(key)
	if e == nil {
		e = &counterEntry{}
		m.entries[key] = e
	}
	e.value++
	return e.value, nil
}

// Expire 设置过期时间，key 不存在时忽略
func (m *MemoryCounter) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e := m.live(key); e != nil {
		e.expiresAt = m.now().Add(ttl)
	}
	return nil
}

// live 返回未过期的条目，顺带清理过期条目；调用方需持有锁
func (m *MemoryCounter) live(key string) *counterEntry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil
	}
	return e
}
