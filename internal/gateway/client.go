package gateway

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// pingInterval 是保活ping的发送间隔
	pingInterval = 15 * time.Second
	// writeTimeout 是单次写操作的超时
	writeTimeout = 10 * time.Second
	// sendBufferSize 是单个客户端的出站消息缓冲
	sendBufferSize = 16
)

// Client 是一条已通过鉴权的websocket连接。
// 所有写操作都经过send通道由writePump串行执行，
// 避免对同一连接的并发写。
type Client struct {
	conn   *websocket.Conn
	send   chan outboundMessage
	pollID string
	userID string
	name   string

	closeOnce sync.Once
}

// newClient 创建一个客户端。
func newClient(conn *websocket.Conn, pollID, userID, name string) *Client {
	return &Client{
		conn:   conn,
		send:   make(chan outboundMessage, sendBufferSize),
		pollID: pollID,
		userID: userID,
		name:   name,
	}
}

// enqueue 把一条出站消息放入发送队列。
// 缓冲已满的慢客户端直接丢弃该条消息，不阻塞调用方；
// 客户端总能通过下一次广播拿到完整快照。
func (c *Client) enqueue(msg outboundMessage) {
	defer func() {
		// send通道可能在入队的同时被关闭（停机或房间解散），
		// 此时放弃投递即可
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
		fmt.Printf("警告: 用户 %s 的发送缓冲已满，丢弃事件 %s\n", c.userID, msg.Event)
	}
}

// sendException 向该客户端下发一条结构化错误事件。
func (c *Client) sendException(errType, message string) {
	c.enqueue(outboundMessage{
		Event: EventException,
		Data:  exceptionPayload{Type: errType, Message: message},
	})
}

// closeSend 关闭发送队列，writePump随之退出并关闭底层连接。
// 重复调用是安全的。
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// writePump 是该连接唯一的写入者：串行发送队列中的消息并定期ping。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// 发送队列已关闭，礼貌地通知对端后断开
				c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 循环读取入站消息并交给网关分发，连接断开时返回。
func (c *Client) readPump(dispatch func(*Client, Envelope)) {
	defer c.conn.Close()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			// 客户端断开或读取出错
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			c.sendException("ValidationFailed", "消息格式错误，无法解析")
			continue
		}
		dispatch(c, envelope)
	}
}
