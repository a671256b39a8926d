package poll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SlpAus/ranked-poll-backend/pkg/id"
	"github.com/SlpAus/ranked-poll-backend/pkg/token"
)

// createCodeAttempts 是创建投票间时代码碰撞的最大重试次数。
// 62^6的代码空间下连续碰撞意味着存储异常，而不是运气不好。
const createCodeAttempts = 5

const (
	maxTopicLength          = 200
	maxNameLength           = 50
	maxNominationTextLength = 200
)

// Service 实现投票间的全部领域操作。
// 每个变更操作都遵循同一条路径：鉴权（调用方完成）-> 按投票间串行化
// -> 读取文档 -> 状态机校验 -> 字段级写入。广播由网关在操作成功后执行。
type Service struct {
	repo  Repository
	locks *Coordinator
	rules Rules
	ttl   time.Duration
}

// NewService 创建一个投票间服务。
func NewService(repo Repository, rules Rules, ttl time.Duration) *Service {
	return &Service{
		repo:  repo,
		locks: NewCoordinator(),
		rules: rules,
		ttl:   ttl,
	}
}

// TTL 返回投票间的存活时长，访问令牌的有效期与其一致。
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// AuthResult 是创建/加入操作的返回值：投票间快照加上为调用方签发的令牌。
type AuthResult struct {
	Poll        *Poll  `json:"poll"`
	AccessToken string `json:"accessToken"`
}

// CreatePoll 创建一个新的投票间并为创建者签发访问令牌。
// 创建者即管理员；参与者条目在其websocket连接建立时才物化。
func (s *Service) CreatePoll(ctx context.Context, topic string, votesPerVoter int, name string) (*AuthResult, error) {
	topic = strings.TrimSpace(topic)
	name = strings.TrimSpace(name)
	if topic == "" || len(topic) > maxTopicLength {
		return nil, NewError(KindValidationFailed, "投票主题不能为空且不能超长")
	}
	if votesPerVoter < 1 {
		return nil, NewError(KindValidationFailed, "每人可排序票数必须为正整数")
	}
	if name == "" || len(name) > maxNameLength {
		return nil, NewError(KindValidationFailed, "显示名不能为空且不能超长")
	}

	userID, err := id.NewUserID()
	if err != nil {
		return nil, WrapError(KindUnknown, "无法生成用户ID", err)
	}

	// 代码可能碰撞，冲突时换码重试
	var created *Poll
	for attempt := 0; attempt < createCodeAttempts; attempt++ {
		pollID, err := id.NewPollCode()
		if err != nil {
			return nil, WrapError(KindUnknown, "无法生成投票间代码", err)
		}

		p := &Poll{
			ID:            pollID,
			Topic:         topic,
			VotesPerVoter: votesPerVoter,
			AdminID:       userID,
		}
		err = s.repo.CreatePoll(ctx, p, s.ttl)
		if err == nil {
			created = p
			break
		}
		if errors.Is(err, ErrPollCodeTaken) {
			fmt.Printf("投票间代码碰撞: %s，正在重试...\n", pollID)
			continue
		}
		return nil, err
	}
	if created == nil {
		return nil, NewError(KindStorageUnavailable, "连续多次代码碰撞，放弃创建投票间")
	}

	accessToken, err := token.Issue(created.ID, userID, name, s.ttl)
	if err != nil {
		return nil, WrapError(KindUnknown, "无法签发访问令牌", err)
	}

	fmt.Printf("投票间 %s 已创建，管理员: %s\n", created.ID, userID)
	snapshot, err := s.repo.GetPoll(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Poll: snapshot, AccessToken: accessToken}, nil
}

// JoinPoll 校验投票间代码并为新参与者签发访问令牌。
// 这里只发凭证，不写入参与者条目——参与者在实时连接建立时才物化。
func (s *Service) JoinPoll(ctx context.Context, pollID, name string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	if !id.IsValidPollCode(pollID) {
		return nil, NewError(KindValidationFailed, "投票间代码必须是6位字母或数字")
	}
	if name == "" || len(name) > maxNameLength {
		return nil, NewError(KindValidationFailed, "显示名不能为空且不能超长")
	}

	p, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := s.rules.EnsureAllowed(ActionJoin, p.Stage()); err != nil {
		return nil, err
	}

	userID, err := id.NewUserID()
	if err != nil {
		return nil, WrapError(KindUnknown, "无法生成用户ID", err)
	}
	accessToken, err := token.Issue(pollID, userID, name, s.ttl)
	if err != nil {
		return nil, WrapError(KindUnknown, "无法签发访问令牌", err)
	}
	return &AuthResult{Poll: p, AccessToken: accessToken}, nil
}

// GetPoll 返回投票间的当前快照。
func (s *Service) GetPoll(ctx context.Context, pollID string) (*Poll, error) {
	return s.repo.GetPoll(ctx, pollID)
}

// EnsureAdmin 校验调用方是否是投票间的管理员。
// 管理员身份是投票间的实时属性，每次都对照存储中的adminID重新判定，
// 绝不缓存在令牌里。
func (s *Service) EnsureAdmin(ctx context.Context, pollID, userID string) error {
	p, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		return err
	}
	if p.AdminID != userID {
		return NewError(KindForbidden, "只有管理员可以执行此操作")
	}
	return nil
}

// AddParticipant 在实时连接建立时物化一个参与者条目。
func (s *Service) AddParticipant(ctx context.Context, pollID, userID, name string) (*Poll, error) {
	unlock := s.locks.Lock(pollID)
	defer unlock()

	p, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := s.rules.EnsureAllowed(ActionJoin, p.Stage()); err != nil {
		return nil, err
	}

	if err := s.repo.AddParticipant(ctx, pollID, userID, name); err != nil {
		return nil, err
	}
	return s.repo.GetPoll(ctx, pollID)
}

// RemoveParticipantByAdmin 由管理员显式移除一个参与者。
// 在Created和Voting阶段均合法；投票开始后被移除参与者已提交的选票
// 予以保留，计票结果不因管理动作而追溯变化。
// 管理员不能移除自己，避免投票间失去管理者。
func (s *Service) RemoveParticipantByAdmin(ctx context.Context, pollID, targetUserID string) (*Poll, error) {
	unlock := s.locks.Lock(pollID)
	defer unlock()

	p, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := s.rules.EnsureAllowed(ActionRemoveParticipant, p.Stage()); err != nil {
		return nil, err
	}
	if targetUserID == p.AdminID {
		return nil, NewError(KindValidationFailed, "管理员不能移除自己")
	}

	if err := s.repo.RemoveParticipant(ctx, pollID, targetUserID); err != nil {
		return nil, err
	}
	return s.repo.GetPoll(ctx, pollID)
}

// RemoveParticipantOnDisconnect 在实时连接断开时移除参与者。
// 只在投票尚未开始时生效；投票开始后参与者离线不影响其已提交的选票。
// 无需变更时返回 (nil, nil)，调用方据此跳过广播。
func (s *Service) RemoveParticipantOnDisconnect(ctx context.Context, pollID, userID string) (*Poll, error) {
	unlock := s.locks.Lock(pollID)
	defer unlock()

	p, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		// 投票间可能已被取消或过期，断线清理按无事发生处理
		if KindOf(err) == KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	if p.HasStarted {
		return nil, nil
	}

	if err := s.repo.RemoveParticipant(ctx, pollID, userID); err != nil {
		return nil, err
	}
	return s.repo.GetPoll(ctx, pollID)
}

// AddNomination 由任意参与者提交一个提名。
func (s *Service) AddNomination(ctx context.Context, pollID, userID, text string) (*Poll, error) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxNominationTextLength {
		return nil, NewError(KindValidationFailed, "提名内容不能为空且不能超长")
	}

	unlock := s.locks.Lock(pollID)
	defer unlock()

	p, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := s.rules.EnsureAllowed(ActionAddNomination, p.Stage()); err != nil {
		return nil, err
	}

	nominationID, err := id.NewNominationID()
	if err != nil {
		return nil, WrapError(KindUnknown, "无法生成提名ID", err)
	}
	nomination := Nomination{UserID: userID, Text: text}
	if err := s.repo.AddNomination(ctx, pollID, nominationID, nomination); err != nil {
		return nil, err
	}
	return s.repo.GetPoll(ctx, pollID)
}

// RemoveNomination 由管理员移除一个提名。
// 已有选票引用被移除提名时不回写选票，计票阶段会跳过失效的条目。
func (s *Service) RemoveNomination(ctx context.Context, pollID, nominationID string) (*Poll, error) {
	unlock := s.locks.Lock(pollID)
	defer unlock()

	p, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := s.rules.EnsureAllowed(ActionRemoveNomination, p.Stage()); err != nil {
		return nil, err
	}
	if _, exists := p.Nominations[nominationID]; !exists {
		return nil, Errorf(KindNotFound, "提名 %s 不存在", nominationID)
	}

	if err := s.repo.RemoveNomination(ctx, pollID, nominationID); err != nil {
		return nil, err
	}
	return s.repo.GetPoll(ctx, pollID)
}

// StartPoll 由管理员开始投票，投票间进入Voting阶段。
func (s *Service) StartPoll(ctx context.Context, pollID string) (*Poll, error) {
	unlock := s.locks.Lock(pollID)
	defer unlock()

	p, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := s.rules.EnsureAllowed(ActionStart, p.Stage()); err != nil {
		return nil, err
	}

	if err := s.repo.MarkStarted(ctx, pollID); err != nil {
		return nil, err
	}
	fmt.Printf("投票间 %s 已开始投票\n", pollID)
	return s.repo.GetPoll(ctx, pollID)
}

// SubmitRankings 记录调用方自己的选票。
// 选票要么完整写入，要么校验失败整体拒绝，绝不部分写入或静默截断。
func (s *Service) SubmitRankings(ctx context.Context, pollID, userID string, rankings []string) (*Poll, error) {
	unlock := s.locks.Lock(pollID)
	defer unlock()

	p, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := s.rules.EnsureAllowed(ActionSubmitRankings, p.Stage()); err != nil {
		return nil, err
	}

	if len(rankings) == 0 {
		return nil, NewError(KindValidationFailed, "选票不能为空")
	}
	if len(rankings) > p.VotesPerVoter {
		return nil, Errorf(KindValidationFailed,
			"选票最多只能包含 %d 个排序", p.VotesPerVoter)
	}
	seen := make(map[string]bool, len(rankings))
	for _, nominationID := range rankings {
		if _, exists := p.Nominations[nominationID]; !exists {
			return nil, Errorf(KindValidationFailed, "选票引用了不存在的提名 %s", nominationID)
		}
		if seen[nominationID] {
			return nil, Errorf(KindValidationFailed, "选票中的提名 %s 重复出现", nominationID)
		}
		seen[nominationID] = true
	}

	if err := s.repo.SetRankings(ctx, pollID, userID, rankings); err != nil {
		return nil, err
	}
	return s.repo.GetPoll(ctx, pollID)
}

// ClosePoll 由管理员结束投票：计票、固定结果、归档到数据库。
// 结果写入后投票间进入终态，重复close会因阶段校验而失败。
func (s *Service) ClosePoll(ctx context.Context, pollID string) (*Poll, error) {
	unlock := s.locks.Lock(pollID)
	defer unlock()

	p, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := s.rules.EnsureAllowed(ActionClose, p.Stage()); err != nil {
		return nil, err
	}

	results := ComputeResults(p.Rankings, p.Nominations, p.VotesPerVoter)
	if err := s.repo.SetResults(ctx, pollID, results); err != nil {
		return nil, err
	}

	closed, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	// 归档失败不阻断关闭流程，热数据中的结果已经固定
	if err := archiveClosedPoll(closed); err != nil {
		fmt.Printf("警告: 投票间 %s 归档失败: %v\n", pollID, err)
	}

	fmt.Printf("投票间 %s 已关闭，结果已计算\n", pollID)
	return closed, nil
}

// CancelPoll 由管理员取消投票，投票间文档被整体删除。
func (s *Service) CancelPoll(ctx context.Context, pollID string) error {
	unlock := s.locks.Lock(pollID)
	defer unlock()

	p, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		return err
	}
	if err := s.rules.EnsureAllowed(ActionCancel, p.Stage()); err != nil {
		return err
	}

	if err := s.repo.DeletePoll(ctx, pollID); err != nil {
		return err
	}
	fmt.Printf("投票间 %s 已被管理员取消\n", pollID)
	return nil
}
