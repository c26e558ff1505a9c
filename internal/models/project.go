package models

import "time"

type Project struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Tagline     string    `json:"tagline"`
	Description string    `json:"description"`
	DemoURL     string    `json:"demo_url,omitempty"`
	RepoURL     string    `json:"repo_url,omitempty"`
	Category    string    `gorm:"type:varchar(32);not null;default:OTHER" json:"category"`
	UserID      string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	VoteCount   int       `gorm:"not null;default:0;check:chk_projects_vote_count,vote_count >= 0" json:"vote_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p Project) Target() Target {
	return Target{Kind: TargetProject, ID: p.ID, OwnerID: p.UserID, VoteCount: p.VoteCount, CreatedAt: p.CreatedAt}
}
