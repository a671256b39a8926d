package poll

// Nomination 是一个待投票的候选选项。
type Nomination struct {
	// UserID 是提交该提名的参与者ID
	UserID string `json:"userID"`
	// Text 是提名的展示文本
	Text string `json:"text"`
}

// Result 是计票结果中的一项。
// Rank为1的项是获胜者，其余项按名次降序排列。
type Result struct {
	NominationID string `json:"nominationID"`
	Text         string `json:"text"`
	// Rank 是最终名次，1为获胜者
	Rank int `json:"rank"`
	// Round 是该提名获胜或被淘汰的决选轮次。
	// 0表示无需决选即有定论（唯一候选，或没有任何有效选票）。
	Round int `json:"round"`
}

// Results 是完整的计票结果，按名次升序排列。
type Results []Result

// Poll 是一个投票间的权威聚合文档。
// 热数据整体存放在Redis中，按字段独立读写。
type Poll struct {
	// ID 是6位的人类可分享代码
	ID string `json:"id"`
	// Topic 是投票主题
	Topic string `json:"topic"`
	// VotesPerVoter 是每张选票最多可包含的排序数
	VotesPerVoter int `json:"votesPerVoter"`
	// AdminID 是创建该投票间的参与者ID，管理员身份以此为准
	AdminID string `json:"adminID"`
	// HasStarted 表示投票是否已开始
	HasStarted bool `json:"hasStarted"`
	// HasClosed 表示投票是否已结束（结果已计算且不可再变更）
	HasClosed bool `json:"hasClosed"`
	// Participants 是 userID -> 显示名 的映射
	Participants map[string]string `json:"participants"`
	// Nominations 是 nominationID -> 提名 的映射
	Nominations map[string]Nomination `json:"nominations"`
	// Rankings 是 userID -> 有序提名ID序列 的映射
	Rankings map[string][]string `json:"rankings"`
	// Results 在投票间关闭前为空，关闭后不可变
	Results Results `json:"results"`
}

// Stage 返回投票间当前所处的生命周期阶段。
// 取消的投票间会被整体删除，因此不会出现在存储中。
func (p *Poll) Stage() Stage {
	switch {
	case p.HasClosed:
		return StageClosed
	case p.HasStarted:
		return StageVoting
	default:
		return StageCreated
	}
}
