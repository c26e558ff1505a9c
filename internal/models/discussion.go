package models

import "time"

// ThreadReply is one reply in a forum thread. Replies nest through ParentID;
// the thread's reply_count counts every reply at any depth.
type ThreadReply struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ThreadID  string    `gorm:"type:uuid;not null;index" json:"thread_id"`
	ParentID  *string   `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	UserID    string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is feedback left on a project. Deleting a comment deletes the
// replies beneath it.
type Comment struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID string    `gorm:"type:uuid;not null;index" json:"project_id"`
	ParentID  *string   `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	UserID    string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Text      string    `gorm:"not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReplyDrift reports a thread whose stored reply_count disagrees with the
// number of replies referencing it.
type ReplyDrift struct {
	ThreadID    string `json:"thread_id"`
	Stored      int    `json:"stored"`
	LiveReplies int    `json:"live_replies"`
}
