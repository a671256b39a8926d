package gateway

import (
	"testing"
)

// drain 读空一个客户端当前排队的消息。
func drain(c *Client) []outboundMessage {
	var msgs []outboundMessage
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return msgs
			}
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func TestHubBroadcastToRoom(t *testing.T) {
	h := NewHub()
	c1 := newClient(nil, "AB12cd", "u1", "小王")
	c2 := newClient(nil, "AB12cd", "u2", "小李")
	c3 := newClient(nil, "XY99zz", "u3", "小张")
	h.register(c1)
	h.register(c2)
	h.register(c3)

	h.Broadcast("AB12cd", EventPollUpdated, map[string]string{"topic": "午饭"})

	for _, c := range []*Client{c1, c2} {
		msgs := drain(c)
		if len(msgs) != 1 || msgs[0].Event != EventPollUpdated {
			t.Errorf("用户 %s 应收到一条 %s 事件, got %v", c.userID, EventPollUpdated, msgs)
		}
	}
	if msgs := drain(c3); len(msgs) != 0 {
		t.Errorf("其他投票间的客户端不应收到广播, got %v", msgs)
	}
}

func TestHubUnregister(t *testing.T) {
	h := NewHub()
	c1 := newClient(nil, "AB12cd", "u1", "小王")
	c2 := newClient(nil, "AB12cd", "u2", "小李")
	h.register(c1)
	h.register(c2)

	h.unregister(c1)
	if _, ok := <-c1.send; ok {
		t.Error("注销后客户端的发送队列应已关闭")
	}

	h.Broadcast("AB12cd", EventPollUpdated, nil)
	if msgs := drain(c2); len(msgs) != 1 {
		t.Errorf("留在房间的客户端应继续收到广播, got %v", msgs)
	}

	// 最后一个成员离开后房间被清除
	h.unregister(c2)
	h.mu.RLock()
	_, exists := h.rooms["AB12cd"]
	h.mu.RUnlock()
	if exists {
		t.Error("空房间应被清除")
	}

	// 重复注销是安全的
	h.unregister(c2)
}

func TestHubCloseRoom(t *testing.T) {
	h := NewHub()
	c1 := newClient(nil, "AB12cd", "u1", "小王")
	c2 := newClient(nil, "AB12cd", "u2", "小李")
	h.register(c1)
	h.register(c2)

	h.CloseRoom("AB12cd")

	for _, c := range []*Client{c1, c2} {
		if _, ok := <-c.send; ok {
			t.Errorf("解散房间后用户 %s 的发送队列应已关闭", c.userID)
		}
	}
	h.mu.RLock()
	_, exists := h.rooms["AB12cd"]
	h.mu.RUnlock()
	if exists {
		t.Error("解散后的房间不应残留")
	}

	// 解散不存在的房间是安全的
	h.CloseRoom("XY99zz")
}

func TestClientEnqueueDropsWhenFull(t *testing.T) {
	c := newClient(nil, "AB12cd", "u1", "小王")

	for i := 0; i < sendBufferSize+5; i++ {
		c.enqueue(outboundMessage{Event: EventPollUpdated})
	}
	if got := len(drain(c)); got != sendBufferSize {
		t.Errorf("缓冲满后应丢弃超出的消息: got %d, want %d", got, sendBufferSize)
	}
}

func TestClientEnqueueAfterClose(t *testing.T) {
	c := newClient(nil, "AB12cd", "u1", "小王")
	c.closeSend()
	c.closeSend() // 重复关闭是安全的

	// 向已关闭的队列入队不应panic
	c.enqueue(outboundMessage{Event: EventPollUpdated})
}
