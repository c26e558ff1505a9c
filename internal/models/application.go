package models

import "time"

// ApplicationStatus is the review state of a grant application.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "PENDING"
	ApplicationReviewing ApplicationStatus = "REVIEWING"
	ApplicationApproved  ApplicationStatus = "APPROVED"
	ApplicationRejected  ApplicationStatus = "REJECTED"
	// ApplicationWithdrawn is only ever read; nothing writes it.
	ApplicationWithdrawn ApplicationStatus = "WITHDRAWN"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationReviewing, ApplicationApproved, ApplicationRejected, ApplicationWithdrawn:
		return true
	}
	return false
}

// GrantApplication links one project to one grant.
type GrantApplication struct {
	ID        string            `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID string            `gorm:"type:uuid;not null;uniqueIndex:idx_applications_project_grant,priority:1" json:"project_id"`
	GrantID   string            `gorm:"type:uuid;not null;uniqueIndex:idx_applications_project_grant,priority:2;index" json:"grant_id"`
	Message   *string           `json:"message,omitempty"`
	Status    ApplicationStatus `gorm:"type:varchar(16);not null;default:PENDING;index" json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ApplicationFilter narrows application listings. Zero fields match all.
type ApplicationFilter struct {
	GrantID   string
	ProjectID string
	Status    ApplicationStatus
}

func (f ApplicationFilter) Match(a GrantApplication) bool {
	if f.GrantID != "" && a.GrantID != f.GrantID {
		return false
	}
	if f.ProjectID != "" && a.ProjectID != f.ProjectID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}
