package models

import "time"

// ThreadCategory groups forum threads.
type ThreadCategory string

const (
	ThreadGeneral    ThreadCategory = "GENERAL"
	ThreadVibeChecks ThreadCategory = "VIBE_CHECKS"
	ThreadShowTell   ThreadCategory = "SHOW_TELL"
	ThreadTechnical  ThreadCategory = "TECHNICAL"
)

func (c ThreadCategory) Valid() bool {
	switch c {
	case ThreadGeneral, ThreadVibeChecks, ThreadShowTell, ThreadTechnical:
		return true
	}
	return false
}

// Thread is a forum thread.
type Thread struct {
	ID         string         `gorm:"type:uuid;primaryKey" json:"id"`
	Title      string         `gorm:"not null" json:"title"`
	Content    string         `gorm:"not null" json:"content"`
	Category   ThreadCategory `gorm:"type:varchar(32);not null;default:GENERAL" json:"category"`
	UserID     string         `gorm:"type:varchar(64);not null;index" json:"user_id"`
	VoteCount  int            `gorm:"not null;default:0;check:chk_threads_vote_count,vote_count >= 0" json:"vote_count"`
	ReplyCount int            `gorm:"not null;default:0;check:chk_threads_reply_count,reply_count >= 0" json:"reply_count"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (t Thread) Target() Target {
	return Target{Kind: TargetThread, ID: t.ID, OwnerID: t.UserID, VoteCount: t.VoteCount, CreatedAt: t.CreatedAt}
}
