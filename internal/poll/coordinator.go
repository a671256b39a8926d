package poll

import "sync"

// Coordinator 按投票间ID串行化变更操作。
// 同一个投票间的读-改-写序列互斥执行，不同投票间的操作完全并行。
// 锁在等待存储响应期间保持持有，保证并发操作排队而不是交错。
type Coordinator struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// lockEntry 带引用计数，最后一个持有者释放后从map中移除，
// 防止map随投票间数量无限增长。
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewCoordinator 创建一个新的串行化协调器。
func NewCoordinator() *Coordinator {
	return &Coordinator{
		entries: make(map[string]*lockEntry),
	}
}

// Lock 获取指定投票间的互斥锁，返回对应的解锁函数。
// 典型用法: defer c.Lock(pollID)()
func (c *Coordinator) Lock(pollID string) (unlock func()) {
	c.mu.Lock()
	entry, exists := c.entries[pollID]
	if !exists {
		entry = &lockEntry{}
		c.entries[pollID] = entry
	}
	entry.refs++
	c.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		c.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(c.entries, pollID)
		}
		c.mu.Unlock()
	}
}
