package poll

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SlpAus/ranked-poll-backend/internal/platform/database"
)

// PollRecord 定义了已结束投票间在归档数据库中的持久化结构。
// 热数据随TTL过期后，归档记录是结果的唯一长期副本。
type PollRecord struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time

	// PollID 是投票间的6位代码
	PollID string `gorm:"uniqueIndex" json:"pollID"`

	// Topic 是投票主题
	Topic string `json:"topic"`

	// VotesPerVoter 是每张选票的排序配额
	VotesPerVoter int `json:"votesPerVoter"`

	// AdminID 是管理员的用户ID
	AdminID string `json:"adminID"`

	// Participants/Nominations/Rankings/Results 以JSON快照整体存档
	Participants string `json:"participants"`
	Nominations  string `json:"nominations"`
	Rankings     string `json:"rankings"`
	Results      string `json:"results"`

	// ClosedAt 是投票间关闭（结果固定）的时间
	ClosedAt time.Time `json:"closedAt"`
}

// SetupArchive 迁移归档数据库的表结构。
func SetupArchive() error {
	if err := database.DB.AutoMigrate(&PollRecord{}); err != nil {
		return fmt.Errorf("无法迁移投票间归档表: %w", err)
	}
	fmt.Println("投票间归档表已就绪。")
	return nil
}

// archiveClosedPoll 把一个已关闭的投票间快照写入归档数据库。
// 归档数据库未初始化时（单元测试环境）静默跳过。
func archiveClosedPoll(p *Poll) error {
	if database.DB == nil {
		return nil
	}

	participants, err := json.Marshal(p.Participants)
	if err != nil {
		return fmt.Errorf("无法序列化参与者快照: %w", err)
	}
	nominations, err := json.Marshal(p.Nominations)
	if err != nil {
		return fmt.Errorf("无法序列化提名快照: %w", err)
	}
	rankings, err := json.Marshal(p.Rankings)
	if err != nil {
		return fmt.Errorf("无法序列化选票快照: %w", err)
	}
	results, err := json.Marshal(p.Results)
	if err != nil {
		return fmt.Errorf("无法序列化结果快照: %w", err)
	}

	record := PollRecord{
		PollID:        p.ID,
		Topic:         p.Topic,
		VotesPerVoter: p.VotesPerVoter,
		AdminID:       p.AdminID,
		Participants:  string(participants),
		Nominations:   string(nominations),
		Rankings:      string(rankings),
		Results:       string(results),
		ClosedAt:      time.Now(),
	}
	if err := database.DB.Create(&record).Error; err != nil {
		return fmt.Errorf("无法写入归档记录: %w", err)
	}
	return nil
}
