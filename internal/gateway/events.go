package gateway

import "encoding/json"

// 出站事件名。每次成功的变更后向投票间的所有成员广播完整快照。
const (
	// EventPollUpdated 携带投票间的完整当前快照
	EventPollUpdated = "poll_updated"
	// EventPollCancelled 只携带投票间的标识
	EventPollCancelled = "poll_cancelled"
	// EventException 是下发给单个客户端的结构化错误事件
	EventException = "exception"
)

// 入站事件名。
const (
	EventNominate          = "nominate"
	EventRemoveNomination  = "remove_nomination"
	EventRemoveParticipant = "remove_participant"
	EventStartPoll         = "start_poll"
	EventSubmitRankings    = "submit_rankings"
	EventClosePoll         = "close_poll"
	EventCancelPoll        = "cancel_poll"
)

// Envelope 是websocket上双向消息的统一信封。
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outboundMessage 是已经确定载荷的出站消息。
type outboundMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// exceptionPayload 是 exception 事件的载荷：错误类别加人类可读的消息。
type exceptionPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// cancelledPayload 是 poll_cancelled 事件的载荷。
type cancelledPayload struct {
	PollID string `json:"pollID"`
}

// nominatePayload 是 nominate 事件的入站载荷。
type nominatePayload struct {
	Text string `json:"text"`
}

// targetPayload 是 remove_nomination / remove_participant 事件的入站载荷。
type targetPayload struct {
	ID string `json:"id"`
}

// rankingsPayload 是 submit_rankings 事件的入站载荷。
type rankingsPayload struct {
	Rankings []string `json:"rankings"`
}
