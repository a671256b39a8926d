package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SlpAus/ranked-poll-backend/internal/platform/database"
	"github.com/SlpAus/ranked-poll-backend/internal/poll"
	"github.com/SlpAus/ranked-poll-backend/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// 包级的websocket升级器
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS策略由HTTP层的中间件统一控制
	},
}

// Gateway 是实时入口：完成连接鉴权、参与者物化、事件分发和广播。
type Gateway struct {
	hub     *Hub
	service *poll.Service
}

// New 创建一个实时网关。
func New(service *poll.Service, hub *Hub) *Gateway {
	return &Gateway{hub: hub, service: service}
}

// ServeWS 处理websocket升级请求。
// 令牌在升级前校验，连接建立即视为参与者到场：写入参与者条目
// 并向整个房间广播最新快照。
func (g *Gateway) ServeWS(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		tokenString = c.GetHeader("token")
	}
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"type":    string(poll.KindUnauthenticated),
			"message": "连接缺少访问令牌",
		})
		return
	}

	claims, err := token.Verify(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"type":    string(poll.KindUnauthenticated),
			"message": "访问令牌无效或已过期",
		})
		return
	}

	if !database.IsRedisHealthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"type":    string(poll.KindStorageUnavailable),
			"message": "存储暂时不可用，请稍后重试",
		})
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade失败时gorilla已经写入了HTTP错误响应
		return
	}

	client := newClient(conn, claims.PollID, claims.UserID, claims.Name)
	g.hub.register(client)
	go client.writePump()

	// 参与者在连接建立时物化
	updated, err := g.service.AddParticipant(c.Request.Context(), claims.PollID, claims.UserID, claims.Name)
	if err != nil {
		client.sendException(string(poll.KindOf(err)), poll.MessageOf(err))
		g.hub.unregister(client)
		return
	}
	g.hub.Broadcast(claims.PollID, EventPollUpdated, updated)

	// 阻塞读取直到连接断开
	client.readPump(g.dispatch)
	g.handleDisconnect(client)
}

// handleDisconnect 处理连接断开：移除参与者并广播（仅在投票开始前）。
// 断线清理和管理员移除走同一条串行化路径，不会双重删除。
func (g *Gateway) handleDisconnect(client *Client) {
	g.hub.unregister(client)

	updated, err := g.service.RemoveParticipantOnDisconnect(
		database.Ctx, client.pollID, client.userID)
	if err != nil {
		fmt.Printf("警告: 断线清理失败 (投票间 %s, 用户 %s): %v\n",
			client.pollID, client.userID, err)
		return
	}
	if updated != nil {
		g.hub.Broadcast(client.pollID, EventPollUpdated, updated)
	}
}

// dispatch 把入站事件路由到对应的处理函数。
// 所有错误都以 exception 事件回给发送方，客户端永远不会无声等待。
func (g *Gateway) dispatch(client *Client, envelope Envelope) {
	if !database.IsRedisHealthy() {
		client.sendException(string(poll.KindStorageUnavailable), "存储暂时不可用，请稍后重试")
		return
	}

	var err error
	switch envelope.Event {
	case EventNominate:
		err = g.handleNominate(client, envelope.Data)
	case EventRemoveNomination:
		err = g.handleRemoveNomination(client, envelope.Data)
	case EventRemoveParticipant:
		err = g.handleRemoveParticipant(client, envelope.Data)
	case EventStartPoll:
		err = g.handleStartPoll(client)
	case EventSubmitRankings:
		err = g.handleSubmitRankings(client, envelope.Data)
	case EventClosePoll:
		err = g.handleClosePoll(client)
	case EventCancelPoll:
		err = g.handleCancelPoll(client)
	default:
		err = poll.Errorf(poll.KindValidationFailed, "未知的事件: %s", envelope.Event)
	}

	if err != nil {
		client.sendException(string(poll.KindOf(err)), poll.MessageOf(err))
	}
}

// requireAdmin 对管理员专属事件做实时权限判定。
func (g *Gateway) requireAdmin(client *Client) error {
	return g.service.EnsureAdmin(database.Ctx, client.pollID, client.userID)
}

func (g *Gateway) handleNominate(client *Client, data json.RawMessage) error {
	var payload nominatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return poll.NewError(poll.KindValidationFailed, "nominate事件的载荷格式错误")
	}

	updated, err := g.service.AddNomination(database.Ctx, client.pollID, client.userID, payload.Text)
	if err != nil {
		return err
	}
	g.hub.Broadcast(client.pollID, EventPollUpdated, updated)
	return nil
}

func (g *Gateway) handleRemoveNomination(client *Client, data json.RawMessage) error {
	if err := g.requireAdmin(client); err != nil {
		return err
	}
	var payload targetPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return poll.NewError(poll.KindValidationFailed, "remove_nomination事件的载荷格式错误")
	}

	updated, err := g.service.RemoveNomination(database.Ctx, client.pollID, payload.ID)
	if err != nil {
		return err
	}
	g.hub.Broadcast(client.pollID, EventPollUpdated, updated)
	return nil
}

func (g *Gateway) handleRemoveParticipant(client *Client, data json.RawMessage) error {
	if err := g.requireAdmin(client); err != nil {
		return err
	}
	var payload targetPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return poll.NewError(poll.KindValidationFailed, "remove_participant事件的载荷格式错误")
	}

	updated, err := g.service.RemoveParticipantByAdmin(database.Ctx, client.pollID, payload.ID)
	if err != nil {
		return err
	}
	g.hub.Broadcast(client.pollID, EventPollUpdated, updated)
	return nil
}

func (g *Gateway) handleStartPoll(client *Client) error {
	if err := g.requireAdmin(client); err != nil {
		return err
	}

	updated, err := g.service.StartPoll(database.Ctx, client.pollID)
	if err != nil {
		return err
	}
	g.hub.Broadcast(client.pollID, EventPollUpdated, updated)
	return nil
}

func (g *Gateway) handleSubmitRankings(client *Client, data json.RawMessage) error {
	var payload rankingsPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return poll.NewError(poll.KindValidationFailed, "submit_rankings事件的载荷格式错误")
	}

	updated, err := g.service.SubmitRankings(database.Ctx, client.pollID, client.userID, payload.Rankings)
	if err != nil {
		return err
	}
	g.hub.Broadcast(client.pollID, EventPollUpdated, updated)
	return nil
}

func (g *Gateway) handleClosePoll(client *Client) error {
	if err := g.requireAdmin(client); err != nil {
		return err
	}

	updated, err := g.service.ClosePoll(database.Ctx, client.pollID)
	if err != nil {
		return err
	}
	g.hub.Broadcast(client.pollID, EventPollUpdated, updated)
	return nil
}

func (g *Gateway) handleCancelPoll(client *Client) error {
	if err := g.requireAdmin(client); err != nil {
		return err
	}

	if err := g.service.CancelPoll(database.Ctx, client.pollID); err != nil {
		return err
	}
	g.hub.Broadcast(client.pollID, EventPollCancelled, cancelledPayload{PollID: client.pollID})
	g.hub.CloseRoom(client.pollID)
	return nil
}
