package poll

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository 是 Repository 的内存实现。
// 用于单元测试和不依赖Redis的本地开发，语义与Redis实现一致：
// 创建时做代码冲突检查，TTL到期后投票间表现为不存在。
type MemoryRepository struct {
	mu    sync.RWMutex
	polls map[string]*memoryPoll
	// now 可在测试中替换以模拟时间流逝
	now func() time.Time
}

type memoryPoll struct {
	doc       Poll
	expiresAt time.Time
}

// NewMemoryRepository 创建一个空的内存仓库。
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		polls: make(map[string]*memoryPoll),
		now:   time.Now,
	}
}

// SetClockForTest 替换仓库的时钟，用于测试TTL过期行为。
func (r *MemoryRepository) SetClockForTest(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// get 返回存活的投票间条目，过期条目顺带清除。调用方必须持有写锁。
func (r *MemoryRepository) get(pollID string) *memoryPoll {
	entry, exists := r.polls[pollID]
	if !exists {
		return nil
	}
	if r.now().After(entry.expiresAt) {
		delete(r.polls, pollID)
		return nil
	}
	return entry
}

func notFound(pollID string) error {
	return Errorf(KindNotFound, "投票间 %s 不存在或已过期", pollID)
}

func (r *MemoryRepository) CreatePoll(_ context.Context, p *Poll, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.get(p.ID) != nil {
		return ErrPollCodeTaken
	}

	doc := Poll{
		ID:            p.ID,
		Topic:         p.Topic,
		VotesPerVoter: p.VotesPerVoter,
		AdminID:       p.AdminID,
		Participants:  make(map[string]string),
		Nominations:   make(map[string]Nomination),
		Rankings:      make(map[string][]string),
		Results:       Results{},
	}
	r.polls[p.ID] = &memoryPoll{
		doc:       doc,
		expiresAt: r.now().Add(ttl),
	}
	return nil
}

func (r *MemoryRepository) GetPoll(_ context.Context, pollID string) (*Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.get(pollID)
	if entry == nil {
		return nil, notFound(pollID)
	}
	return copyPoll(&entry.doc), nil
}

func (r *MemoryRepository) AddParticipant(_ context.Context, pollID, userID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.get(pollID)
	if entry == nil {
		return notFound(pollID)
	}
	entry.doc.Participants[userID] = name
	return nil
}

func (r *MemoryRepository) RemoveParticipant(_ context.Context, pollID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.get(pollID)
	if entry == nil {
		return notFound(pollID)
	}
	delete(entry.doc.Participants, userID)
	return nil
}

func (r *MemoryRepository) AddNomination(_ context.Context, pollID, nominationID string, nomination Nomination) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.get(pollID)
	if entry == nil {
		return notFound(pollID)
	}
	entry.doc.Nominations[nominationID] = nomination
	return nil
}

func (r *MemoryRepository) RemoveNomination(_ context.Context, pollID, nominationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.get(pollID)
	if entry == nil {
		return notFound(pollID)
	}
	delete(entry.doc.Nominations, nominationID)
	return nil
}

func (r *MemoryRepository) MarkStarted(_ context.Context, pollID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.get(pollID)
	if entry == nil {
		return notFound(pollID)
	}
	entry.doc.HasStarted = true
	return nil
}

func (r *MemoryRepository) SetRankings(_ context.Context, pollID, userID string, rankings []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.get(pollID)
	if entry == nil {
		return notFound(pollID)
	}
	ballot := make([]string, len(rankings))
	copy(ballot, rankings)
	entry.doc.Rankings[userID] = ballot
	return nil
}

func (r *MemoryRepository) SetResults(_ context.Context, pollID string, results Results) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.get(pollID)
	if entry == nil {
		return notFound(pollID)
	}
	entry.doc.Results = append(Results{}, results...)
	entry.doc.HasClosed = true
	return nil
}

func (r *MemoryRepository) DeletePoll(_ context.Context, pollID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.polls, pollID)
	return nil
}

// copyPoll 返回文档的深拷贝，避免调用方看到仓库内部的可变状态。
func copyPoll(p *Poll) *Poll {
	out := &Poll{
		ID:            p.ID,
		Topic:         p.Topic,
		VotesPerVoter: p.VotesPerVoter,
		AdminID:       p.AdminID,
		HasStarted:    p.HasStarted,
		HasClosed:     p.HasClosed,
		Participants:  make(map[string]string, len(p.Participants)),
		Nominations:   make(map[string]Nomination, len(p.Nominations)),
		Rankings:      make(map[string][]string, len(p.Rankings)),
		Results:       append(Results{}, p.Results...),
	}
	for userID, name := range p.Participants {
		out.Participants[userID] = name
	}
	for nominationID, nomination := range p.Nominations {
		out.Nominations[nominationID] = nomination
	}
	for userID, rankings := range p.Rankings {
		ballot := make([]string, len(rankings))
		copy(ballot, rankings)
		out.Rankings[userID] = ballot
	}
	return out
}
