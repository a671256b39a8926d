package poll

import "strings"

// Stage 定义了投票间生命周期阶段的枚举类型。
// Created -> Voting -> Closed；Created/Voting 均可被取消（整体删除）。
// 过期由Redis的TTL实现，过期后所有操作都表现为 NotFound。
type Stage string

const (
	// StageCreated 表示投票间已创建，参与者可自由加入、提名
	StageCreated Stage = "created"
	// StageVoting 表示投票已开始，参与者提交排序选票
	StageVoting Stage = "voting"
	// StageClosed 表示投票已结束，结果已固定，为终态
	StageClosed Stage = "closed"
)

// Action 定义了针对投票间的所有变更动作。
type Action string

const (
	ActionJoin              Action = "join"
	ActionAddNomination     Action = "add_nomination"
	ActionRemoveNomination  Action = "remove_nomination"
	ActionRemoveParticipant Action = "remove_participant"
	ActionStart             Action = "start"
	ActionSubmitRankings    Action = "submit_rankings"
	ActionClose             Action = "close"
	ActionCancel            Action = "cancel"
)

// Rules 参数化了状态机中有分歧的裁决。
// 提名在投票开始后是否冻结是一个产品层面的开关，两种变体
// 共用同一套状态机契约。
type Rules struct {
	// FreezeNominationsOnStart 为true时，提名的增删只在Created阶段合法；
	// 为false时在Voting阶段同样合法。
	FreezeNominationsOnStart bool
}

// legalStages 返回一个动作在当前规则下的合法阶段集合。
func (r Rules) legalStages(action Action) []Stage {
	switch action {
	case ActionJoin:
		return []Stage{StageCreated, StageVoting}
	case ActionAddNomination, ActionRemoveNomination:
		if r.FreezeNominationsOnStart {
			return []Stage{StageCreated}
		}
		return []Stage{StageCreated, StageVoting}
	case ActionRemoveParticipant:
		return []Stage{StageCreated, StageVoting}
	case ActionStart:
		return []Stage{StageCreated}
	case ActionSubmitRankings:
		return []Stage{StageVoting}
	case ActionClose:
		return []Stage{StageVoting}
	case ActionCancel:
		return []Stage{StageCreated, StageVoting}
	default:
		return nil
	}
}

// EnsureAllowed 校验一个动作在给定阶段是否合法。
// 不合法时返回 InvalidState 错误，并在消息中指明要求的阶段。
func (r Rules) EnsureAllowed(action Action, stage Stage) error {
	stages := r.legalStages(action)
	for _, s := range stages {
		if s == stage {
			return nil
		}
	}

	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return Errorf(KindInvalidState,
		"动作 %s 在阶段 %s 不合法，要求阶段: %s", action, stage, strings.Join(names, "|"))
}
