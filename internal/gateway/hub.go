package gateway

import (
	"fmt"
	"sync"

	"github.com/SlpAus/ranked-poll-backend/pkg/lifecycle"
)

// Hub 维护按投票间分组的websocket客户端，负责组内广播。
// 它只管投递，不理解事件语义；投递语义是尽力而为，
// 写缓冲已满的慢客户端会被跳过而不是阻塞整个房间。
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewHub 创建一个空的集线器。
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Run 把集线器挂接到生命周期管理：收到停机信号后断开所有客户端。
func (h *Hub) Run(handle *lifecycle.Handle) {
	defer handle.Close()
	fmt.Println("Websocket集线器已启动。")

	<-handle.Done()
	fmt.Println("Websocket集线器: 收到停机信号，正在断开所有客户端...")

	h.mu.Lock()
	defer h.mu.Unlock()
	for pollID, room := range h.rooms {
		for client := range room {
			client.closeSend()
		}
		delete(h.rooms, pollID)
	}
}

// register 把客户端加入其投票间的房间。
func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, exists := h.rooms[client.pollID]
	if !exists {
		room = make(map[*Client]struct{})
		h.rooms[client.pollID] = room
	}
	room[client] = struct{}{}
	fmt.Printf("用户 %s 加入投票间 %s 的实时房间，当前连接数: %d\n",
		client.userID, client.pollID, len(room))
}

// unregister 把客户端移出房间，空房间顺带清除。
func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, exists := h.rooms[client.pollID]
	if !exists {
		return
	}
	if _, ok := room[client]; !ok {
		return
	}
	delete(room, client)
	client.closeSend()
	if len(room) == 0 {
		delete(h.rooms, client.pollID)
	}
}

// Broadcast 向一个投票间的所有在线成员投递一条事件。
func (h *Hub) Broadcast(pollID, event string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[pollID] {
		client.enqueue(outboundMessage{Event: event, Data: payload})
	}
}

// CloseRoom 断开一个投票间的所有连接并移除房间。
// 在投票间被取消后调用。
func (h *Hub) CloseRoom(pollID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, exists := h.rooms[pollID]
	if !exists {
		return
	}
	for client := range room {
		client.closeSend()
	}
	delete(h.rooms, pollID)
}
