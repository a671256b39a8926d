package poll

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Repository 是投票间热数据的存储协作方接口。
// 所有方法都是字段级的原子写入，调用方（Service）负责在
// Coordinator 的保护下完成读-改-写序列。
type Repository interface {
	// CreatePoll 原子创建一个投票间文档并设置TTL。
	// 代码已被占用时返回 ErrPollCodeTaken。
	CreatePoll(ctx context.Context, p *Poll, ttl time.Duration) error
	// GetPoll 读取完整的投票间文档，不存在或已过期时返回 NotFound。
	GetPoll(ctx context.Context, pollID string) (*Poll, error)
	AddParticipant(ctx context.Context, pollID, userID, name string) error
	RemoveParticipant(ctx context.Context, pollID, userID string) error
	AddNomination(ctx context.Context, pollID, nominationID string, nomination Nomination) error
	RemoveNomination(ctx context.Context, pollID, nominationID string) error
	// MarkStarted 把投票间置为投票阶段。
	MarkStarted(ctx context.Context, pollID string) error
	// SetRankings 整体写入一个参与者的选票，不存在部分写入。
	SetRankings(ctx context.Context, pollID, userID string, rankings []string) error
	// SetResults 写入计票结果并把投票间置为终态。
	SetResults(ctx context.Context, pollID string, results Results) error
	DeletePoll(ctx context.Context, pollID string) error
}

// ErrPollCodeTaken 表示创建时投票间代码发生碰撞，调用方应换码重试。
var ErrPollCodeTaken = errors.New("投票间代码已被占用")

// --- Redis 键与字段布局 ---
//
// 每个投票间是一个Redis Hash，键为 poll:{id}，TTL即投票间的存活时长。
// 标量属性各占一个字段；participants/nominations/rankings 以
// 前缀+ID的动态字段存放，使得单个参与者或提名的增删
// 只触碰自己的字段，不需要重写整个文档。

const (
	pollKeyPrefix = "poll:"

	fieldTopic         = "topic"
	fieldVotesPerVoter = "votesPerVoter"
	fieldAdminID       = "adminID"
	fieldHasStarted    = "hasStarted"
	fieldHasClosed     = "hasClosed"
	fieldResults       = "results"

	participantFieldPrefix = "participant:"
	nominationFieldPrefix  = "nomination:"
	rankingsFieldPrefix    = "rankings:"
)

func pollKey(pollID string) string {
	return pollKeyPrefix + pollID
}

// encodeBool 把布尔值编码为Hash字段值。
func encodeBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// storageError 把底层Redis错误包装为 StorageUnavailable 领域错误。
func storageError(operation string, cause error) error {
	return WrapError(KindStorageUnavailable, "存储操作失败: "+operation, cause)
}

// RedisRepository 是 Repository 的Redis实现。
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository 创建一个基于给定Redis客户端的仓库。
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// CreatePoll 原子创建投票间文档。
// 用 HSetNX 占用adminID字段作为存在性哨兵，保证两个并发的
// 同名创建只有一个成功。
func (r *RedisRepository) CreatePoll(ctx context.Context, p *Poll, ttl time.Duration) error {
	key := pollKey(p.ID)

	set, err := r.client.HSetNX(ctx, key, fieldAdminID, p.AdminID).Result()
	if err != nil {
		return storageError("创建投票间", err)
	}
	if !set {
		return ErrPollCodeTaken
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldTopic, p.Topic,
			fieldVotesPerVoter, strconv.Itoa(p.VotesPerVoter),
			fieldHasStarted, encodeBool(false),
			fieldHasClosed, encodeBool(false),
		)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		// 初始化失败时清掉哨兵字段，避免留下残缺的文档
		r.client.Del(ctx, key)
		return storageError("初始化投票间文档", err)
	}
	return nil
}

// GetPoll 读取并还原完整的投票间文档。
func (r *RedisRepository) GetPoll(ctx context.Context, pollID string) (*Poll, error) {
	fields, err := r.client.HGetAll(ctx, pollKey(pollID)).Result()
	if err != nil {
		return nil, storageError("读取投票间", err)
	}
	if len(fields) == 0 {
		return nil, Errorf(KindNotFound, "投票间 %s 不存在或已过期", pollID)
	}

	p := &Poll{
		ID:           pollID,
		Participants: make(map[string]string),
		Nominations:  make(map[string]Nomination),
		Rankings:     make(map[string][]string),
		Results:      Results{},
	}

	for field, value := range fields {
		switch {
		case field == fieldTopic:
			p.Topic = value
		case field == fieldVotesPerVoter:
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, storageError("解析votesPerVoter字段", err)
			}
			p.VotesPerVoter = n
		case field == fieldAdminID:
			p.AdminID = value
		case field == fieldHasStarted:
			p.HasStarted = value == "1"
		case field == fieldHasClosed:
			p.HasClosed = value == "1"
		case field == fieldResults:
			if err := json.Unmarshal([]byte(value), &p.Results); err != nil {
				return nil, storageError("解析results字段", err)
			}
		case strings.HasPrefix(field, participantFieldPrefix):
			p.Participants[strings.TrimPrefix(field, participantFieldPrefix)] = value
		case strings.HasPrefix(field, nominationFieldPrefix):
			var nomination Nomination
			if err := json.Unmarshal([]byte(value), &nomination); err != nil {
				return nil, storageError("解析nomination字段", err)
			}
			p.Nominations[strings.TrimPrefix(field, nominationFieldPrefix)] = nomination
		case strings.HasPrefix(field, rankingsFieldPrefix):
			var rankings []string
			if err := json.Unmarshal([]byte(value), &rankings); err != nil {
				return nil, storageError("解析rankings字段", err)
			}
			p.Rankings[strings.TrimPrefix(field, rankingsFieldPrefix)] = rankings
		}
	}
	return p, nil
}

// setField 在确认投票间存在后写入单个Hash字段。
// 存在性检查防止对已过期的键写入后留下一个没有TTL的幽灵文档。
// 调用方持有该投票间的串行锁，检查和写入之间不会有同间并发写。
func (r *RedisRepository) setField(ctx context.Context, pollID, field, value string) error {
	key := pollKey(pollID)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return storageError("检查投票间存在性", err)
	}
	if exists == 0 {
		return Errorf(KindNotFound, "投票间 %s 不存在或已过期", pollID)
	}
	if err := r.client.HSet(ctx, key, field, value).Err(); err != nil {
		return storageError("写入字段 "+field, err)
	}
	return nil
}

// deleteField 删除单个Hash字段。键不存在时视为已删除。
func (r *RedisRepository) deleteField(ctx context.Context, pollID, field string) error {
	if err := r.client.HDel(ctx, pollKey(pollID), field).Err(); err != nil {
		return storageError("删除字段 "+field, err)
	}
	return nil
}

func (r *RedisRepository) AddParticipant(ctx context.Context, pollID, userID, name string) error {
	return r.setField(ctx, pollID, participantFieldPrefix+userID, name)
}

func (r *RedisRepository) RemoveParticipant(ctx context.Context, pollID, userID string) error {
	return r.deleteField(ctx, pollID, participantFieldPrefix+userID)
}

func (r *RedisRepository) AddNomination(ctx context.Context, pollID, nominationID string, nomination Nomination) error {
	payload, err := json.Marshal(nomination)
	if err != nil {
		return storageError("序列化提名", err)
	}
	return r.setField(ctx, pollID, nominationFieldPrefix+nominationID, string(payload))
}

func (r *RedisRepository) RemoveNomination(ctx context.Context, pollID, nominationID string) error {
	return r.deleteField(ctx, pollID, nominationFieldPrefix+nominationID)
}

func (r *RedisRepository) MarkStarted(ctx context.Context, pollID string) error {
	return r.setField(ctx, pollID, fieldHasStarted, encodeBool(true))
}

func (r *RedisRepository) SetRankings(ctx context.Context, pollID, userID string, rankings []string) error {
	payload, err := json.Marshal(rankings)
	if err != nil {
		return storageError("序列化选票", err)
	}
	return r.setField(ctx, pollID, rankingsFieldPrefix+userID, string(payload))
}

// SetResults 在同一个事务里写入结果并标记终态，保证两者不会分离。
func (r *RedisRepository) SetResults(ctx context.Context, pollID string, results Results) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return storageError("序列化计票结果", err)
	}

	key := pollKey(pollID)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return storageError("检查投票间存在性", err)
	}
	if exists == 0 {
		return Errorf(KindNotFound, "投票间 %s 不存在或已过期", pollID)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldResults, string(payload))
		pipe.HSet(ctx, key, fieldHasClosed, encodeBool(true))
		return nil
	})
	if err != nil {
		return storageError("写入计票结果", err)
	}
	return nil
}

func (r *RedisRepository) DeletePoll(ctx context.Context, pollID string) error {
	if err := r.client.Del(ctx, pollKey(pollID)).Err(); err != nil {
		return storageError("删除投票间", err)
	}
	return nil
}
