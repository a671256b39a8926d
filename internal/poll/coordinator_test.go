package poll

import (
	"sync"
	"testing"
	"time"
)

func TestCoordinatorSerializesSamePoll(t *testing.T) {
	c := NewCoordinator()

	// 非原子的读-改-写，只有在锁真正互斥时才不会丢更新
	counter := 0
	var wg sync.WaitGroup
	const workers = 64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := c.Lock("ABC123")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("发生丢失更新: counter=%d, want %d", counter, workers)
	}
}

func TestCoordinatorIndependentPolls(t *testing.T) {
	c := NewCoordinator()

	// 持有A的锁不应阻塞B的操作
	unlockA := c.Lock("AAAAAA")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := c.Lock("BBBBBB")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("不同投票间的锁相互阻塞")
	}
}

func TestCoordinatorReleasesEntries(t *testing.T) {
	c := NewCoordinator()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := c.Lock("XYZ789")
			time.Sleep(time.Microsecond)
			unlock()
		}()
	}
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) != 0 {
		t.Fatalf("全部释放后锁表应为空, got %d 条", len(c.entries))
	}
}
